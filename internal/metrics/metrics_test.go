package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rkotulan/wmbus-parser/internal/router"
)

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	meter := router.Meter{Name: "kitchen", ID: "12345678", Driver: "evo868"}
	m.PacketReceived()
	m.PacketReceived()
	m.PacketDropped(router.ReasonUnknownMeter)
	m.PacketDecoded(meter, 12.345)

	require.Equal(t, 2.0, testutil.ToFloat64(m.received))
	require.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues(router.ReasonUnknownMeter)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.decoded.WithLabelValues("kitchen", "12345678", "evo868")))
	require.Equal(t, 12.345, testutil.ToFloat64(m.reading.WithLabelValues("kitchen", "12345678")))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
