package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderLength is the size of the fixed header that follows the optional
	// transport prefix: L, C, M(2), A(6), CI, access, status, config(2).
	HeaderLength = 15

	// MinIdentifyLength is the smallest buffer the router inspects.
	MinIdentifyLength = 10

	prefixLength = 2
	idOffset     = 4
)

var (
	ErrTooShort         = errors.New("telegram too short")
	ErrHeaderIncomplete = errors.New("telegram header incomplete")
)

// Telegram holds the fixed header of an application-layer telegram. Field
// offsets are relative to Raw[Offset], i.e. after the transport prefix.
type Telegram struct {
	Raw           []byte
	Prefixed      bool
	Offset        int
	Length        byte
	Control       byte
	Manufacturer  uint16
	MeterID       [4]byte
	Version       byte
	DeviceType    byte
	CI            byte
	AccessNumber  byte
	Status        byte
	Config        uint16
	PayloadOffset int
}

// PrefixLength reports how many transport prefix bytes (0x54 0x3D or
// 0x54 0xCD) precede the application layer.
func PrefixLength(raw []byte) int {
	if len(raw) >= prefixLength && raw[0] == 0x54 && (raw[1] == 0x3D || raw[1] == 0xCD) {
		return prefixLength
	}
	return 0
}

// Parse strips the optional prefix and extracts the fixed header.
func Parse(raw []byte) (Telegram, error) {
	offset := PrefixLength(raw)
	if len(raw)-offset < HeaderLength {
		return Telegram{}, fmt.Errorf("%w: %d bytes after %d byte prefix", ErrHeaderIncomplete, len(raw)-offset, offset)
	}
	h := raw[offset:]
	t := Telegram{
		Raw:           raw,
		Prefixed:      offset > 0,
		Offset:        offset,
		Length:        h[0],
		Control:       h[1],
		Manufacturer:  binary.LittleEndian.Uint16(h[2:4]),
		Version:       h[8],
		DeviceType:    h[9],
		CI:            h[10],
		AccessNumber:  h[11],
		Status:        h[12],
		Config:        binary.LittleEndian.Uint16(h[13:15]),
		PayloadOffset: offset + HeaderLength,
	}
	copy(t.MeterID[:], h[idOffset:idOffset+4])
	return t, nil
}

// MeterID extracts the display identifier without parsing the full header.
func MeterID(raw []byte) (string, error) {
	if len(raw) < MinIdentifyLength {
		return "", fmt.Errorf("%w: %d bytes", ErrTooShort, len(raw))
	}
	offset := PrefixLength(raw)
	if len(raw) < offset+idOffset+4 {
		return "", fmt.Errorf("%w: no room for address", ErrHeaderIncomplete)
	}
	var id [4]byte
	copy(id[:], raw[offset+idOffset:offset+idOffset+4])
	return formatID(id), nil
}

// MeterIDString returns the EN 13757 display format (MSB first).
func (t Telegram) MeterIDString() string {
	return formatID(t.MeterID)
}

// ManufacturerCode decodes the three-letter FLAG manufacturer id.
func (t Telegram) ManufacturerCode() string {
	m := t.Manufacturer
	return string([]byte{
		byte((m>>10)&0x1F) + 64,
		byte((m>>5)&0x1F) + 64,
		byte(m&0x1F) + 64,
	})
}

// SecurityMode returns the security mode bits of the configuration word.
// Zero means the payload is not encrypted.
func (t Telegram) SecurityMode() byte {
	return byte((t.Config >> 8) & 0x1F)
}

func formatID(id [4]byte) string {
	return fmt.Sprintf("%02X%02X%02X%02X", id[3], id[2], id[1], id[0])
}
