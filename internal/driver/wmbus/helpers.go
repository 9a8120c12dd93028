package wmbus

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Date is a calendar date decoded from a type G field.
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DateTime is a minute-resolution timestamp decoded from a type F field.
type DateTime struct {
	Date
	Hour   int
	Minute int
}

func (dt DateTime) String() string {
	return fmt.Sprintf("%s %02d:%02d", dt.Date, dt.Hour, dt.Minute)
}

// DecodeUint accumulates a little-endian unsigned integer. Bytes beyond the
// eighth do not fit and are ignored.
func DecodeUint(b []byte) uint64 {
	var value uint64
	for i, by := range b {
		if i >= 8 {
			break
		}
		value |= uint64(by) << (8 * i)
	}
	return value
}

// DecodeBCDString renders a BCD field (most significant byte last) as its
// digits. A field containing a nibble above 9 is rendered as upper-case hex
// in the same byte order instead.
func DecodeBCDString(b []byte) string {
	digits := make([]byte, 0, len(b)*2)
	reversed := make([]byte, len(b))
	valid := true
	for i := range b {
		by := b[len(b)-1-i]
		reversed[i] = by
		high, low := by>>4, by&0x0F
		if high > 9 || low > 9 {
			valid = false
		}
		digits = append(digits, '0'+high, '0'+low)
	}
	if !valid {
		return strings.ToUpper(hex.EncodeToString(reversed))
	}
	return string(digits)
}

// DecodeTypeGDate decodes the two-byte type G date. The boolean is false
// when the input is short or the day or month is zero.
func DecodeTypeGDate(b []byte) (Date, bool) {
	if len(b) < 2 {
		return Date{}, false
	}
	raw := uint16(b[0]) | uint16(b[1])<<8
	d := Date{
		Day:   int(raw & 0x1F),
		Month: int((raw >> 8) & 0x0F),
		Year:  2000 + (int((raw>>12)&0x0F)<<3 | int((raw>>5)&0x07)),
	}
	if d.Day == 0 || d.Month == 0 {
		return Date{}, false
	}
	return d, true
}

// DecodeTypeFDateTime decodes the four-byte type F date-time under the same
// validity rule as DecodeTypeGDate.
func DecodeTypeFDateTime(b []byte) (DateTime, bool) {
	if len(b) < 4 {
		return DateTime{}, false
	}
	dt := DateTime{
		Date: Date{
			Day:   int(b[2] & 0x1F),
			Month: int(b[3] & 0x0F),
			Year:  2000 + (int((b[3]>>4)&0x0F)<<3 | int((b[2]>>5)&0x07)),
		},
		Hour:   int(b[1] & 0x1F),
		Minute: int(b[0] & 0x3F),
	}
	if dt.Day == 0 || dt.Month == 0 {
		return DateTime{}, false
	}
	return dt, true
}

// FormatStatus renders the status flag word: "OK" when clear, otherwise
// ERROR_FLAGS_ with the low 16 bits in hex.
func FormatStatus(flags uint64) string {
	if flags == 0 {
		return "OK"
	}
	return fmt.Sprintf("ERROR_FLAGS_%04X", flags&0xFFFF)
}

// FormatFloat prints v with three decimals and trims trailing zeros, so 1.000
// becomes "1" and 1.960 becomes "1.96".
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	if strings.IndexByte(s, '.') < 0 {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
