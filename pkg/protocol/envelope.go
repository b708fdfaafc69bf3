package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Codec errors.
var (
	ErrMalformedEnvelope = errors.New("protocol: malformed envelope")
	ErrMissingOpcode     = errors.New("protocol: envelope missing opcode")
	ErrMessageTooLarge   = errors.New("protocol: message exceeds size limit")
)

// MaxMessageSize caps inbound gateway messages. The read limit on the
// socket enforces it; ParseEnvelope double-checks for callers feeding
// buffers from elsewhere.
const MaxMessageSize = 4 << 20

// Envelope is the wire envelope wrapping every gateway frame.
//
// Seq is a pointer so that an absent or null "s" field stays
// distinguishable from sequence zero.
type Envelope struct {
	Op   Opcode          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
}

// envelopeWire mirrors Envelope with a pointer opcode so decoding can
// tell a missing "op" apart from opcode zero.
type envelopeWire struct {
	Op   *int            `json:"op"`
	Data json.RawMessage `json:"d"`
	Seq  *int64          `json:"s"`
	Type string          `json:"t"`
}

// ParseEnvelope decodes a raw gateway message into an Envelope.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if w.Op == nil {
		return nil, ErrMissingOpcode
	}

	return &Envelope{
		Op:   Opcode(*w.Op),
		Data: w.Data,
		Seq:  w.Seq,
		Type: w.Type,
	}, nil
}

// EncodeEnvelope marshals an outbound frame for the given opcode.
// Sequence and event name are never set on client-originated frames.
func EncodeEnvelope(op Opcode, d any) ([]byte, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s body: %w", op, err)
	}
	return json.Marshal(Envelope{Op: op, Data: body})
}

// ParseHello decodes the Hello (opcode 10) body.
func ParseHello(data json.RawMessage) (*Hello, error) {
	var h Hello
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: hello: %v", ErrMalformedEnvelope, err)
	}
	return &h, nil
}

// ParseInvalidSession decodes the InvalidSession (opcode 9) body, a bare
// boolean reporting whether the session may still be resumed.
func ParseInvalidSession(data json.RawMessage) (resumable bool, err error) {
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, &resumable); err != nil {
		return false, fmt.Errorf("%w: invalid session: %v", ErrMalformedEnvelope, err)
	}
	return resumable, nil
}
