package records

import (
	"errors"
	"fmt"
)

const (
	// Padding is the idle filler byte that may appear wherever a DIF is
	// expected.
	Padding = 0x2F

	codeVariable = 0x07
	codeReserved = 0x08
	codeSpecial  = 0x0F
	extensionBit = 0x80
)

// ErrTruncatedRecord reports a DIFE/VIFE chain or VIF cut off by the end of
// the buffer.
var ErrTruncatedRecord = errors.New("truncated data record")

var dataLengths = [16]int{0, 1, 2, 3, 4, 6, 8, 0, 0, 1, 2, 3, 4, 6, 8, 0}

// Record represents a parsed DIF/VIF entry from a telegram payload.
type Record struct {
	Offset  int
	DIF     byte
	DIFE    []byte
	VIF     byte
	VIFE    []byte
	Data    []byte
	Storage int
	Tariff  int
	Subunit int
}

// VIFBase is the meaning code with the extension bit cleared.
func (r Record) VIFBase() byte { return r.VIF & 0x7F }

// Extension returns the first VIFE with its continuation bit cleared.
func (r Record) Extension() (byte, bool) {
	if len(r.VIFE) == 0 {
		return 0, false
	}
	return r.VIFE[0] & 0x7F, true
}

func (r Record) String() string {
	return fmt.Sprintf("record@%d dif=%02X vif=%02X storage=%d len=%d", r.Offset, r.DIF, r.VIF, r.Storage, len(r.Data))
}

// DataLength returns the payload length encoded in the DIF low nibble. The
// boolean is false for codes that never carry a usable payload. Code 0x07
// reports zero; the length byte follows the VIF chain.
func DataLength(dif byte) (int, bool) {
	switch code := dif & 0x0F; code {
	case codeReserved, codeSpecial:
		return 0, false
	default:
		return dataLengths[code], true
	}
}

// StorageNumber assembles DIF bit 6 and the low nibble of each DIFE.
func StorageNumber(dif byte, difes []byte) int {
	storage := int((dif >> 6) & 0x01)
	for i, dife := range difes {
		storage |= int(dife&0x0F) << (1 + i*4)
	}
	return storage
}
