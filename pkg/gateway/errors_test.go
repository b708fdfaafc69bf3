package gateway

import (
	"errors"
	"testing"
)

func TestSessionErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *SessionError
		want string
	}{
		{
			name: "with shard",
			err:  NewSessionError(3, "identify", ErrNotConnected),
			want: "gateway: shard 3: identify: gateway: not connected",
		},
		{
			name: "unknown shard",
			err:  NewSessionError(-1, "manager", ErrMissingToken),
			want: "gateway: manager: gateway: missing token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionErrorUnwrap(t *testing.T) {
	err := NewSessionError(0, "send heartbeat", ErrNotConnected)

	if !errors.Is(err, ErrNotConnected) {
		t.Error("errors.Is failed to reach the wrapped sentinel")
	}
	var serr *SessionError
	if !errors.As(error(err), &serr) {
		t.Error("errors.As failed")
	}
	if serr.Op != "send heartbeat" || serr.Shard != 0 {
		t.Errorf("unwrapped = %+v", serr)
	}
}

func TestCloseErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *CloseError
		want string
	}{
		{
			name: "with reason",
			err:  &CloseError{Code: 4004, Reason: "Authentication failed.", Fatal: true},
			want: "gateway: connection closed with code 4004: Authentication failed.",
		},
		{
			name: "without reason",
			err:  &CloseError{Code: 1006},
			want: "gateway: connection closed with code 1006",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandlerErrorFormat(t *testing.T) {
	err := &HandlerError{Shard: 2, EventType: "MESSAGE_CREATE", Panic: "nil map write"}
	want := `gateway: shard 2: handler for "MESSAGE_CREATE" panicked: nil map write`
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
