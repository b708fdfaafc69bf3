package protocol

import (
	"bytes"
	"testing"
)

func TestInflateRoundTrip(t *testing.T) {
	payload := []byte(`{"op":0,"d":{"id":"G1"},"s":7,"t":"GUILD_CREATE"}`)

	deflated, err := Deflate(payload)
	if err != nil {
		t.Fatalf("Deflate() error = %v", err)
	}
	if bytes.Equal(deflated, payload) {
		t.Fatal("Deflate() returned input unchanged")
	}

	inflated, err := Inflate(deflated)
	if err != nil {
		t.Fatalf("Inflate() error = %v", err)
	}
	if !bytes.Equal(inflated, payload) {
		t.Errorf("Inflate() = %s, want %s", inflated, payload)
	}
}

func TestInflateGarbage(t *testing.T) {
	if _, err := Inflate([]byte{0xde, 0xad, 0xbe, 0xef}); err == nil {
		t.Error("Inflate() on garbage: expected error")
	}
}

func TestInflateEmpty(t *testing.T) {
	if _, err := Inflate(nil); err == nil {
		t.Error("Inflate() on empty input: expected error")
	}
}

func BenchmarkInflate(b *testing.B) {
	payload := bytes.Repeat([]byte(`{"op":0,"t":"MESSAGE_CREATE"}`), 64)
	deflated, err := Deflate(payload)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Inflate(deflated)
	}
}
