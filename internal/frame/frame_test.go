package frame

import (
	"encoding/hex"
	"errors"
	"testing"
)

const evoTelegram = "644424347856341250077A2A000000041339300000046D1E092E3A0C7867452321"

func TestParse(t *testing.T) {
	raw := decodeHex(t, evoTelegram)
	tg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tg.Prefixed {
		t.Fatalf("unexpected prefix")
	}
	if tg.Manufacturer != 0x3424 {
		t.Fatalf("manufacturer mismatch: %04X", tg.Manufacturer)
	}
	if got := tg.ManufacturerCode(); got != "MAD" {
		t.Fatalf("manufacturer code mismatch: %s", got)
	}
	if got := tg.MeterIDString(); got != "12345678" {
		t.Fatalf("meter id mismatch: %s", got)
	}
	if tg.CI != 0x7A || tg.AccessNumber != 0x2A || tg.DeviceType != 0x07 {
		t.Fatalf("unexpected header fields %+v", tg)
	}
	if tg.PayloadOffset != HeaderLength {
		t.Fatalf("payload offset %d", tg.PayloadOffset)
	}
	if tg.SecurityMode() != 0 {
		t.Fatalf("unexpected security mode %d", tg.SecurityMode())
	}
}

func TestParsePrefixed(t *testing.T) {
	for _, prefix := range []string{"543D", "54CD"} {
		raw := decodeHex(t, prefix+evoTelegram)
		tg, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%s): %v", prefix, err)
		}
		if !tg.Prefixed || tg.Offset != 2 || tg.PayloadOffset != 17 {
			t.Fatalf("prefix %s not stripped: %+v", prefix, tg)
		}
		if got := tg.MeterIDString(); got != "12345678" {
			t.Fatalf("meter id mismatch: %s", got)
		}
	}
}

func TestParseHeaderIncomplete(t *testing.T) {
	raw := decodeHex(t, "543D4424347856341250077A2A00")
	if _, err := Parse(raw); !errors.Is(err, ErrHeaderIncomplete) {
		t.Fatalf("expected ErrHeaderIncomplete, got %v", err)
	}
}

func TestMeterIDReversesBytes(t *testing.T) {
	raw := []byte{0x0A, 0x44, 0x24, 0x34, 0x11, 0x22, 0x33, 0x44, 0x50, 0x07}
	id, err := MeterID(raw)
	if err != nil {
		t.Fatalf("MeterID: %v", err)
	}
	if id != "44332211" {
		t.Fatalf("meter id mismatch: %s", id)
	}

	prefixed := append([]byte{0x54, 0xCD}, raw...)
	id, err = MeterID(prefixed)
	if err != nil {
		t.Fatalf("MeterID prefixed: %v", err)
	}
	if id != "44332211" {
		t.Fatalf("prefixed meter id mismatch: %s", id)
	}
}

func TestMeterIDTooShort(t *testing.T) {
	if _, err := MeterID(make([]byte, 9)); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex decode: %v", err)
	}
	return b
}
