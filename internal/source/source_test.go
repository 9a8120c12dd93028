package source

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestDecodeHex(t *testing.T) {
	raw := " |4E44_B409 86868686| "
	data, err := DecodeHex(raw)
	require.NoError(t, err)
	require.Len(t, data, 8)

	data, err = DecodeHex("0x543d")
	require.NoError(t, err)
	require.Equal(t, []byte{0x54, 0x3D}, data)
}

func TestDecodeHexErrors(t *testing.T) {
	for _, in := range []string{"ABC", "", "   ", "ZZ"} {
		_, err := DecodeHex(in)
		require.Error(t, err, in)
	}
}

func TestRun(t *testing.T) {
	input := "# capture\n\n543D0102\nnot hex\n  0A0B  \n"
	logger, hook := test.NewNullLogger()

	var got [][]byte
	err := Run(context.Background(), strings.NewReader(input), func(raw []byte) {
		got = append(got, raw)
	}, logger)
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0x54, 0x3D, 0x01, 0x02}, {0x0A, 0x0B}}, got)
	require.Len(t, hook.AllEntries(), 1)
}

func TestRunCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	logger, _ := test.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, pr, func([]byte) {}, logger)
	}()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOpenSerialEmptyPath(t *testing.T) {
	_, err := OpenSerial("", 9600)
	require.Error(t, err)
}
