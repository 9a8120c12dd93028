// Package metrics exports router outcomes as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rkotulan/wmbus-parser/internal/router"
)

const namespace = "wmbus"

// Metrics implements router.Observer.
type Metrics struct {
	received prometheus.Counter
	dropped  *prometheus.CounterVec
	decoded  *prometheus.CounterVec
	reading  *prometheus.GaugeVec
}

var _ router.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Telegrams handed to the router.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Telegrams dropped, by reason.",
		}, []string{"reason"}),
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_decoded_total",
			Help:      "Telegrams decoded and published, by meter.",
		}, []string{"meter", "meter_id", "driver"}),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meter_total_m3",
			Help:      "Last decoded main value per meter.",
		}, []string{"meter", "meter_id"}),
	}
	for _, c := range []prometheus.Collector{m.received, m.dropped, m.decoded, m.reading} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) PacketReceived() { m.received.Inc() }

func (m *Metrics) PacketDropped(reason string) { m.dropped.WithLabelValues(reason).Inc() }

func (m *Metrics) PacketDecoded(meter router.Meter, value float64) {
	m.decoded.WithLabelValues(meter.Name, meter.ID, meter.Driver).Inc()
	m.reading.WithLabelValues(meter.Name, meter.ID).Set(value)
}
