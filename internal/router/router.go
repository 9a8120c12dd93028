package router

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rkotulan/wmbus-parser/internal/driver"
	"github.com/rkotulan/wmbus-parser/internal/frame"
)

var (
	ErrUnknownMeter   = errors.New("no registered meter for id")
	ErrDuplicateMeter = errors.New("meter id already registered")
	ErrInvalidMeterID = errors.New("meter id must be 8 hex digits")
)

// Drop reasons reported to the Observer.
const (
	ReasonTooShort      = "too_short"
	ReasonHeader        = "header"
	ReasonUnknownMeter  = "unknown_meter"
	ReasonUnknownDriver = "unknown_driver"
	ReasonDecode        = "decode"
)

// Publisher receives the main value and attributes of a decoded telegram.
type Publisher interface {
	Publish(value float64, attrs driver.Attributes)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(value float64, attrs driver.Attributes)

func (f PublisherFunc) Publish(value float64, attrs driver.Attributes) { f(value, attrs) }

// Trigger is notified after publishing, with attributes as sorted
// "key=value" pairs.
type Trigger func(meterID string, value float64, attrs []string)

// Observer is told about every packet outcome.
type Observer interface {
	PacketReceived()
	PacketDropped(reason string)
	PacketDecoded(meter Meter, value float64)
}

// Meter binds a meter identifier to a driver and a publisher.
type Meter struct {
	Name      string
	ID        string
	Driver    string
	Publisher Publisher
}

// Router dispatches telegrams to the meter whose identifier they carry.
type Router struct {
	registry *driver.Registry
	log      logrus.FieldLogger
	rawLog   RawLogLevel
	observer Observer

	// dispatch serialises ReceivePacket. mu guards meters and triggers and
	// is never held while publishers or triggers run.
	dispatch sync.Mutex
	mu       sync.RWMutex
	meters   []Meter
	triggers []Trigger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger replaces the default logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Router) { r.log = log }
}

// WithRawLog enables hex dumps of received telegrams.
func WithRawLog(level RawLogLevel) Option {
	return func(r *Router) { r.rawLog = level }
}

// WithObserver installs an Observer such as the metrics collector.
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observer = o }
}

// New returns a router resolving driver names through reg.
func New(reg *driver.Registry, opts ...Option) *Router {
	r := &Router{
		registry: reg,
		log:      logrus.StandardLogger(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddMeter registers a meter binding. The identifier is matched
// case-insensitively; Name defaults to the identifier.
func (r *Router) AddMeter(m Meter) error {
	id, err := NormalizeID(m.ID)
	if err != nil {
		return err
	}
	m.ID = id
	if m.Name == "" {
		m.Name = id
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.meters {
		if existing.ID == id {
			return fmt.Errorf("%w: %s", ErrDuplicateMeter, id)
		}
	}
	r.meters = append(r.meters, m)
	r.log.WithFields(logrus.Fields{"meter": m.Name, "meter_id": id, "driver": m.Driver}).Info("added meter")
	return nil
}

// Meters returns a copy of the registered bindings in registration order.
func (r *Router) Meters() []Meter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Meter(nil), r.meters...)
}

// OnDecode registers a trigger fired after every successful decode.
func (r *Router) OnDecode(t Trigger) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, t)
}

// ReceivePacket identifies, decodes and publishes one telegram. Failures are
// logged, counted and returned; the packet is dropped and no state changes.
func (r *Router) ReceivePacket(raw []byte) error {
	r.dispatch.Lock()
	defer r.dispatch.Unlock()
	r.observer.PacketReceived()

	if r.rawLog == RawLogAll {
		r.dumpRaw(raw)
	}
	id, err := frame.MeterID(raw)
	if err != nil {
		return r.drop(raw, reasonFor(err), err)
	}
	if r.rawLog == RawLogValidHeader {
		if _, err := frame.Parse(raw); err == nil {
			r.dumpRaw(raw)
		}
	}

	m, ok := r.match(id)
	if !ok {
		return r.drop(raw, ReasonUnknownMeter, fmt.Errorf("%w %s", ErrUnknownMeter, id))
	}
	if r.rawLog == RawLogMatchingMeter {
		r.dumpRaw(raw)
	}
	log := r.log.WithFields(logrus.Fields{"meter": m.Name, "meter_id": id, "driver": m.Driver})

	dec, err := r.registry.Lookup(m.Driver)
	if err != nil {
		return r.drop(raw, ReasonUnknownDriver, err)
	}
	res, err := dec.Decode(raw)
	if err != nil {
		if t, perr := frame.Parse(raw); perr == nil && t.SecurityMode() != 0 {
			log.WithField("security_mode", t.SecurityMode()).Warn("telegram looks encrypted, which is not supported")
		}
		return r.drop(raw, ReasonDecode, fmt.Errorf("meter %s: %w", id, err))
	}

	if m.Publisher != nil {
		m.Publisher.Publish(res.Value, res.Attributes)
	} else {
		log.WithField("total_m3", res.Value).Info("meter decoded (no publisher)")
	}
	r.mu.RLock()
	triggers := append([]Trigger(nil), r.triggers...)
	r.mu.RUnlock()
	pairs := res.Attributes.Pairs()
	for _, t := range triggers {
		t(id, res.Value, pairs)
	}
	r.observer.PacketDecoded(m, res.Value)
	log.WithField("value", res.Value).Debug("packet decoded")
	return nil
}

// match returns the first meter registered under id.
func (r *Router) match(id string) (Meter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.meters {
		if m.ID == id {
			return m, true
		}
	}
	return Meter{}, false
}

func (r *Router) drop(raw []byte, reason string, err error) error {
	r.observer.PacketDropped(reason)
	r.log.WithError(err).WithFields(logrus.Fields{"reason": reason, "bytes": len(raw)}).Warn("dropping packet")
	return err
}

func (r *Router) dumpRaw(raw []byte) {
	r.log.WithFields(logrus.Fields{
		"bytes": len(raw),
		"raw":   strings.ToUpper(hex.EncodeToString(raw)),
	}).Info("raw telegram")
}

func reasonFor(err error) string {
	if errors.Is(err, frame.ErrTooShort) {
		return ReasonTooShort
	}
	return ReasonHeader
}

// NormalizeID validates an 8-hex-digit meter identifier and upper-cases it.
func NormalizeID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if len(id) != 8 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMeterID, id)
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMeterID, id)
	}
	return id, nil
}

type nopObserver struct{}

func (nopObserver) PacketReceived()              {}
func (nopObserver) PacketDropped(string)         {}
func (nopObserver) PacketDecoded(Meter, float64) {}
