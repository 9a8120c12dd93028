// Package publish holds the publishing collaborators handed to meter
// bindings.
package publish

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rkotulan/wmbus-parser/internal/driver"
	"github.com/rkotulan/wmbus-parser/internal/router"
)

// Log publishes readings as structured log entries.
type Log struct {
	Logger logrus.FieldLogger
	Meter  string
}

// NewLog returns a Log publisher for the named meter.
func NewLog(logger logrus.FieldLogger, meter string) *Log {
	return &Log{Logger: logger, Meter: meter}
}

func (l *Log) Publish(value float64, attrs driver.Attributes) {
	fields := logrus.Fields{"meter": l.Meter, "value": value}
	for _, k := range attrs.Keys() {
		v, _ := attrs.Get(k)
		fields[k] = v
	}
	l.Logger.WithFields(fields).Info("meter reading")
}

// Reading is the JSON document written by the JSON publisher.
type Reading struct {
	Meter      string            `json:"meter"`
	Value      float64           `json:"value"`
	Attributes driver.Attributes `json:"attributes"`
	Received   time.Time         `json:"received"`
}

// JSON writes one JSON document per reading. Writers shared between meters
// are serialised through the SharedWriter.
type JSON struct {
	w     *SharedWriter
	meter string
	now   func() time.Time
}

// SharedWriter serialises JSON lines written by several publishers.
type SharedWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewSharedWriter wraps w.
func NewSharedWriter(w io.Writer) *SharedWriter {
	return &SharedWriter{enc: json.NewEncoder(w)}
}

func (s *SharedWriter) write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(v)
}

// NewJSON returns a JSON publisher for the named meter.
func NewJSON(w *SharedWriter, meter string) *JSON {
	return &JSON{w: w, meter: meter, now: time.Now}
}

func (j *JSON) Publish(value float64, attrs driver.Attributes) {
	r := Reading{Meter: j.meter, Value: value, Attributes: attrs, Received: j.now().UTC()}
	if err := j.w.write(r); err != nil {
		logrus.WithError(err).WithField("meter", j.meter).Error("write reading")
	}
}

// New builds the publisher selected by kind ("log" or "json").
func New(kind, meter string, logger logrus.FieldLogger, w *SharedWriter) (router.Publisher, error) {
	switch kind {
	case "", "log":
		return NewLog(logger, meter), nil
	case "json":
		if w == nil {
			return nil, fmt.Errorf("json publisher for %s: no writer", meter)
		}
		return NewJSON(w, meter), nil
	default:
		return nil, fmt.Errorf("unknown publisher %q", kind)
	}
}
