package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Inflate decompresses a zlib-deflated gateway payload. The gateway
// sends these as binary frames when the session identified with
// compression enabled; each frame is a complete zlib stream.
func Inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("protocol: inflate: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, MaxMessageSize+1))
	if err != nil {
		return nil, fmt.Errorf("protocol: inflate: %w", err)
	}
	if len(out) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	return out, nil
}

// Deflate zlib-compresses a payload the way the gateway does. Used by
// the loopback test server; clients only inflate.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("protocol: deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("protocol: deflate: %w", err)
	}
	return buf.Bytes(), nil
}
