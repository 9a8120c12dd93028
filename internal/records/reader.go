package records

import "fmt"

// Reader walks the DIF/DIFE/VIF/VIFE records of a buffer. It is used like
// bufio.Scanner and cannot be restarted:
//
//	r := records.NewReader(raw, offset)
//	for r.Next() {
//		rec := r.Record()
//	}
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	buf  []byte
	pos  int
	rec  Record
	err  error
	done bool
}

// NewReader returns a reader positioned at offset within buf.
func NewReader(buf []byte, offset int) *Reader {
	if offset < 0 {
		offset = 0
	}
	return &Reader{buf: buf, pos: offset}
}

// Offset is the cursor position after the last consumed byte.
func (r *Reader) Offset() int { return r.pos }

// Record returns the record produced by the last successful Next.
func (r *Reader) Record() Record { return r.rec }

// Err returns ErrTruncatedRecord if the walk stopped inside a DIFE/VIFE
// chain. Running out of payload bytes is treated as the end of the telegram.
func (r *Reader) Err() error { return r.err }

// Next advances to the next record carrying data.
func (r *Reader) Next() bool {
	for !r.done {
		rec, ok := r.read()
		if ok {
			r.rec = rec
			return true
		}
	}
	return false
}

// read consumes one record. It returns false for skipped records and sets
// done once the sequence has ended.
func (r *Reader) read() (Record, bool) {
	for r.pos < len(r.buf) && r.buf[r.pos] == Padding {
		r.pos++
	}
	if r.pos >= len(r.buf) {
		r.done = true
		return Record{}, false
	}
	rec := Record{Offset: r.pos, DIF: r.buf[r.pos]}
	r.pos++

	if rec.DIF&extensionBit != 0 {
		difes, ok := r.chain()
		if !ok {
			return r.truncated("DIFE")
		}
		rec.DIFE = difes
	}
	if r.pos >= len(r.buf) {
		return r.truncated("VIF")
	}
	rec.VIF = r.buf[r.pos]
	r.pos++
	if rec.VIF&extensionBit != 0 {
		vifes, ok := r.chain()
		if !ok {
			return r.truncated("VIFE")
		}
		rec.VIFE = vifes
	}

	rec.Storage = StorageNumber(rec.DIF, rec.DIFE)
	for i, dife := range rec.DIFE {
		rec.Tariff |= int((dife>>4)&0x03) << (i * 2)
		rec.Subunit |= int((dife>>6)&0x01) << i
	}

	length, ok := DataLength(rec.DIF)
	if !ok {
		return rec, false
	}
	if rec.DIF&0x0F == codeVariable {
		if r.pos >= len(r.buf) {
			r.done = true
			return Record{}, false
		}
		length = int(r.buf[r.pos])
		r.pos++
	} else if length == 0 {
		return rec, false
	}
	if r.pos+length > len(r.buf) {
		r.done = true
		return Record{}, false
	}
	rec.Data = r.buf[r.pos : r.pos+length]
	r.pos += length
	return rec, true
}

// chain reads extension bytes until one lacks the continuation bit.
func (r *Reader) chain() ([]byte, bool) {
	var out []byte
	for r.pos < len(r.buf) {
		b := r.buf[r.pos]
		r.pos++
		out = append(out, b)
		if b&extensionBit == 0 {
			return out, true
		}
	}
	return out, false
}

func (r *Reader) truncated(what string) (Record, bool) {
	r.done = true
	r.err = &TruncatedError{Field: what, Offset: r.pos}
	return Record{}, false
}

// TruncatedError carries the location of a truncated record and matches
// ErrTruncatedRecord with errors.Is.
type TruncatedError struct {
	Field  string
	Offset int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%v: buffer ended while reading %s at offset %d", ErrTruncatedRecord, e.Field, e.Offset)
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncatedRecord }
