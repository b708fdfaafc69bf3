package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	seq := int64(42)

	tests := []struct {
		name string
		raw  string
		want Envelope
	}{
		{
			name: "dispatch_with_seq_and_type",
			raw:  `{"op":0,"d":{"id":"G1"},"s":42,"t":"GUILD_CREATE"}`,
			want: Envelope{Op: OpDispatch, Data: json.RawMessage(`{"id":"G1"}`), Seq: &seq, Type: "GUILD_CREATE"},
		},
		{
			name: "hello_null_seq",
			raw:  `{"op":10,"d":{"heartbeat_interval":41250},"s":null,"t":null}`,
			want: Envelope{Op: OpHello, Data: json.RawMessage(`{"heartbeat_interval":41250}`)},
		},
		{
			name: "ack_without_body",
			raw:  `{"op":11}`,
			want: Envelope{Op: OpHeartbeatACK},
		},
		{
			name: "invalid_session_bool_body",
			raw:  `{"op":9,"d":false}`,
			want: Envelope{Op: OpInvalidSession, Data: json.RawMessage(`false`)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEnvelope([]byte(tc.raw))
			if err != nil {
				t.Fatalf("ParseEnvelope() error = %v", err)
			}
			if got.Op != tc.want.Op {
				t.Errorf("Op = %v, want %v", got.Op, tc.want.Op)
			}
			if string(got.Data) != string(tc.want.Data) {
				t.Errorf("Data = %s, want %s", got.Data, tc.want.Data)
			}
			if (got.Seq == nil) != (tc.want.Seq == nil) {
				t.Fatalf("Seq presence = %v, want %v", got.Seq != nil, tc.want.Seq != nil)
			}
			if got.Seq != nil && *got.Seq != *tc.want.Seq {
				t.Errorf("Seq = %d, want %d", *got.Seq, *tc.want.Seq)
			}
			if got.Type != tc.want.Type {
				t.Errorf("Type = %q, want %q", got.Type, tc.want.Type)
			}
		})
	}
}

func TestParseEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{"missing_opcode", []byte(`{"d":{}}`), ErrMissingOpcode},
		{"malformed_json", []byte(`{"op":`), ErrMalformedEnvelope},
		{"wrong_op_type", []byte(`{"op":"zero"}`), ErrMalformedEnvelope},
		{"oversized", make([]byte, MaxMessageSize+1), ErrMessageTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEnvelope(tc.raw)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ParseEnvelope() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestEncodeEnvelope(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
		d    any
		want string
	}{
		{
			name: "heartbeat_with_seq",
			op:   OpHeartbeat,
			d:    int64(31),
			want: `{"op":1,"d":31}`,
		},
		{
			name: "heartbeat_without_seq",
			op:   OpHeartbeat,
			d:    nil,
			want: `{"op":1,"d":null}`,
		},
		{
			name: "resume",
			op:   OpResume,
			d:    Resume{Token: "tok", SessionID: "abc", Seq: 9},
			want: `{"op":6,"d":{"token":"tok","session_id":"abc","seq":9}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeEnvelope(tc.op, tc.d)
			if err != nil {
				t.Fatalf("EncodeEnvelope() error = %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("EncodeEnvelope() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEncodeEnvelopeRoundTrip(t *testing.T) {
	data, err := EncodeEnvelope(OpIdentify, Identify{
		Token:   "tok",
		Intents: IntentsDefault,
	})
	if err != nil {
		t.Fatalf("EncodeEnvelope() error = %v", err)
	}

	env, err := ParseEnvelope(data)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.Op != OpIdentify {
		t.Errorf("Op = %v, want OpIdentify", env.Op)
	}
	if env.Seq != nil {
		t.Errorf("Seq = %v, want nil on client frames", *env.Seq)
	}

	var id Identify
	if err := json.Unmarshal(env.Data, &id); err != nil {
		t.Fatalf("Unmarshal body: %v", err)
	}
	if id.Token != "tok" {
		t.Errorf("Token = %q, want %q", id.Token, "tok")
	}
	if id.Intents != IntentsDefault {
		t.Errorf("Intents = %d, want %d", id.Intents, IntentsDefault)
	}
}

func TestParseHello(t *testing.T) {
	h, err := ParseHello(json.RawMessage(`{"heartbeat_interval":41250}`))
	if err != nil {
		t.Fatalf("ParseHello() error = %v", err)
	}
	if h.HeartbeatInterval != 41250 {
		t.Errorf("HeartbeatInterval = %d, want 41250", h.HeartbeatInterval)
	}

	if _, err := ParseHello(json.RawMessage(`[]`)); err == nil {
		t.Error("ParseHello() on array body: expected error")
	}
}

func TestParseInvalidSession(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"resumable", `true`, true},
		{"not_resumable", `false`, false},
		{"null_body", `null`, false},
		{"empty_body", ``, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseInvalidSession(json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("ParseInvalidSession() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseInvalidSession() = %v, want %v", got, tc.want)
			}
		})
	}

	if _, err := ParseInvalidSession(json.RawMessage(`"yes"`)); err == nil {
		t.Error("ParseInvalidSession() on string body: expected error")
	}
}

func BenchmarkParseEnvelope(b *testing.B) {
	raw := []byte(`{"op":0,"d":{"id":"G1","name":"guild"},"s":1042,"t":"GUILD_UPDATE"}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseEnvelope(raw)
	}
}

func BenchmarkEncodeEnvelope(b *testing.B) {
	d := Resume{Token: "tok", SessionID: "abc", Seq: 9}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = EncodeEnvelope(OpResume, d)
	}
}
