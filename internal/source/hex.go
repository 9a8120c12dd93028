// Package source reads hex-encoded telegrams, one per line, from a stream
// such as stdin or a serial-attached receiver.
package source

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// DecodeHex decodes a telegram written as hex. Whitespace, '|' and '_'
// separators and a leading 0x are ignored.
func DecodeHex(input string) ([]byte, error) {
	clean := strings.ToUpper(StripSeparators(input))
	clean = strings.TrimPrefix(clean, "0X")
	if clean == "" {
		return nil, fmt.Errorf("empty hex telegram")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex telegram must contain an even number of digits, got %d", len(clean))
	}
	decoded := make([]byte, len(clean)/2)
	if _, err := hex.Decode(decoded, []byte(clean)); err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return decoded, nil
}

// StripSeparators drops whitespace, '|' and '_' from s.
func StripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == '|' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
