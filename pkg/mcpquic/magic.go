package mcpquic

import (
	"bytes"
	"fmt"
	"io"
)

// ValidateMagicBytes reads the 4-byte preamble a client sends on its first
// stream and checks it against MagicBytes.
func ValidateMagicBytes(r io.Reader) error {
	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("read magic bytes: %w", err)
	}
	if !bytes.Equal(magic, []byte(MagicBytes)) {
		return fmt.Errorf("%w: got %q", ErrInvalidMagicBytes, string(magic))
	}
	return nil
}

// SendMagicBytes writes the preamble. Clients send it right after opening
// the stream, before any JSON-RPC message.
func SendMagicBytes(w io.Writer) error {
	if _, err := w.Write([]byte(MagicBytes)); err != nil {
		return fmt.Errorf("write magic bytes: %w", err)
	}
	return nil
}
