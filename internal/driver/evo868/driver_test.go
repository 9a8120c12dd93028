package evo868

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/rkotulan/wmbus-parser/internal/driver"
	"github.com/rkotulan/wmbus-parser/internal/frame"
	"github.com/rkotulan/wmbus-parser/internal/records"
	"github.com/rkotulan/wmbus-parser/internal/testutil"
)

const header = "4424347856341250077A2A000000"

var fixedClock = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

// telegram builds a header followed by the given hex records and fills in
// the L-field.
func telegram(t *testing.T, recs ...string) []byte {
	t.Helper()
	body, err := hex.DecodeString(header + strings.Join(recs, ""))
	require.NoError(t, err)
	return append([]byte{byte(len(body))}, body...)
}

func decode(t *testing.T, raw []byte) map[string]string {
	t.Helper()
	res, err := Driver{Now: fixedClock}.Decode(raw)
	require.NoError(t, err)
	return res.Attributes.Map()
}

func TestDecodeGolden(t *testing.T) {
	for _, name := range []string{"evo868_full", "evo868_prefixed_minimal"} {
		name := name
		t.Run(name, func(t *testing.T) {
			raw := testutil.LoadTelegram(t, "evo868/"+name+".hex")
			res, err := Driver{Now: fixedClock}.Decode(raw)
			require.NoError(t, err)
			require.Equal(t, testutil.LoadAttributes(t, "evo868/"+name+".json"), res.Attributes.Map())
			require.InDelta(t, 12.345, res.Value, 1e-9)
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	res, err := Driver{}.Decode(telegram(t, "2F2F", "0413"+"39300000", "2F2F2F"))
	require.NoError(t, err)
	total, ok := res.Attributes.Get("total_m3")
	require.True(t, ok)
	require.Equal(t, "12.345", total)
	require.Equal(t, 12.345, res.Value)
	_, ok = res.Attributes.Get("timestamp")
	require.True(t, ok)
	require.Equal(t, 2, res.Attributes.Len())
}

func TestDecodeTooShort(t *testing.T) {
	for n := 0; n < minTelegramLength; n++ {
		_, err := Driver{}.Decode(make([]byte, n))
		require.True(t, errors.Is(err, frame.ErrTooShort), "length %d: %v", n, err)
	}
}

func TestDecodeMissingTotal(t *testing.T) {
	cases := map[string][]byte{
		"padding only":   telegram(t, "2F2F2F2F2F2F"),
		"storage 1 only": telegram(t, "4413E8030000", "2F2F"),
		"other VIFs":     telegram(t, "046D1E092E3A", "0C7867452321", "02FD170000", "025A1001", "2F2F2F"),
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			require.GreaterOrEqual(t, len(raw), 20)
			require.LessOrEqual(t, len(raw), 44)
			_, err := Driver{}.Decode(raw)
			require.ErrorIs(t, err, driver.ErrMissingTotal)
		})
	}
}

func TestDecodeTruncatedWithoutTotal(t *testing.T) {
	_, err := Driver{}.Decode(telegram(t, "046D1E092E3A", "84818181"))
	require.ErrorIs(t, err, driver.ErrMissingTotal)
	require.ErrorIs(t, err, records.ErrTruncatedRecord)
}

func TestDecodeTruncatedAfterTotal(t *testing.T) {
	attrs := decode(t, telegram(t, "041339300000", "046D1E092E3A", "02FD97"))
	require.Equal(t, "12.345", attrs["total_m3"])
	require.Equal(t, "2025-10-14 09:30", attrs["device_date_time"])
}

func TestDecodeLogsThroughInjectedLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := Driver{Log: logger}.Decode(telegram(t, "041339300000", "02FD97"))
	require.NoError(t, err)
	e := hook.LastEntry()
	require.NotNil(t, e)
	require.Equal(t, logrus.DebugLevel, e.Level)
	require.Equal(t, "12345678", e.Data["meter_id"])
	require.ErrorIs(t, e.Data[logrus.ErrorKey].(error), records.ErrTruncatedRecord)
}

func TestDecodeIdempotent(t *testing.T) {
	raw := testutil.LoadTelegram(t, "evo868/evo868_full.hex")
	first, err := Driver{}.Decode(raw)
	require.NoError(t, err)
	second, err := Driver{}.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, testutil.DropKeys(first.Attributes.Map(), "timestamp"), testutil.DropKeys(second.Attributes.Map(), "timestamp"))
	require.Equal(t, first.Value, second.Value)
}

func TestDecodeFirstTotalWins(t *testing.T) {
	attrs := decode(t, telegram(t, "041339300000", "0413E8030000"))
	require.Equal(t, "12.345", attrs["total_m3"])
}

func TestDecodeOmitsAbsentFields(t *testing.T) {
	attrs := decode(t, telegram(t, "041339300000", "426C0000", "046D00000000"))
	require.Equal(t, map[string]string{
		"total_m3":  "12.345",
		"timestamp": "2026-01-02T03:04:05Z",
	}, attrs)
}

func TestDecodeStatusFlags(t *testing.T) {
	attrs := decode(t, telegram(t, "041339300000", "04FD1710000100"))
	require.Equal(t, "ERROR_FLAGS_0010", attrs["current_status"])
}

func TestDecodeHistoryInterval(t *testing.T) {
	t.Run("zero becomes one", func(t *testing.T) {
		attrs := decode(t, telegram(t, "041339300000", "01FD2800", "840413DC050000"))
		require.Equal(t, "1", attrs["history_interval_months"])
		require.Equal(t, "1.5", attrs["consumption_at_history_1_m3"])
	})
	t.Run("explicit interval", func(t *testing.T) {
		attrs := decode(t, telegram(t, "041339300000", "01FD2803", "C40413B0040000", "840413DC050000"))
		require.Equal(t, "3", attrs["history_interval_months"])
		require.Equal(t, "1.5", attrs["consumption_at_history_1_m3"])
		require.Equal(t, "1.2", attrs["consumption_at_history_2_m3"])
	})
	t.Run("no history no interval", func(t *testing.T) {
		attrs := decode(t, telegram(t, "041339300000", "01FD2803"))
		_, ok := attrs["history_interval_months"]
		require.False(t, ok)
	})
}

func TestDecodeLenientFabricationNumber(t *testing.T) {
	attrs := decode(t, telegram(t, "041339300000", "0C786745230A"))
	require.Equal(t, "0A234567", attrs["fabrication_no"])
}

func TestDecodeIgnoresUnknownRecords(t *testing.T) {
	attrs := decode(t, telegram(t, "025A1001", "0F7F", "07FB030401020304", "041339300000", "02FD3A0000"))
	require.Equal(t, "12.345", attrs["total_m3"])
	require.Len(t, attrs, 2)
}

func TestRegister(t *testing.T) {
	reg := driver.NewRegistry()
	require.NoError(t, Register(reg))
	dec, err := reg.Lookup(Name)
	require.NoError(t, err)
	res, err := dec.Decode(telegram(t, "041339300000"))
	require.NoError(t, err)
	require.Equal(t, 12.345, res.Value)
}
