// Package wmbusparser decodes wireless M-Bus water meter telegrams with the
// built-in drivers.
package wmbusparser

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rkotulan/wmbus-parser/internal/driver"
	"github.com/rkotulan/wmbus-parser/internal/driver/drivers"
	"github.com/rkotulan/wmbus-parser/internal/frame"
	"github.com/rkotulan/wmbus-parser/internal/records"
	"github.com/rkotulan/wmbus-parser/internal/router"
	"github.com/rkotulan/wmbus-parser/internal/source"
)

// Errors returned by AnalyzeHex and the router. Match with errors.Is.
var (
	ErrTooShort         = frame.ErrTooShort
	ErrHeaderIncomplete = frame.ErrHeaderIncomplete
	ErrTruncatedRecord  = records.ErrTruncatedRecord
	ErrMissingTotal     = driver.ErrMissingTotal
	ErrUnknownMeter     = router.ErrUnknownMeter
	ErrUnknownDriver    = driver.ErrUnknownDriver
)

var (
	registryOnce sync.Once
	registry     *driver.Registry
	registryErr  error
)

// Registry returns the process-wide registry of built-in drivers, filled on
// first use.
func Registry() (*driver.Registry, error) {
	registryOnce.Do(func() {
		registry, registryErr = drivers.NewRegistry()
	})
	return registry, registryErr
}

// Result captures the outcome of AnalyzeHex.
type Result struct {
	Driver       string
	RawHex       string
	ByteCount    int
	MeterID      string
	Manufacturer string
	Value        float64
	Attributes   map[string]string
}

// String renders a human-readable representation of the result.
func (r Result) String() string {
	summary := map[string]any{
		"driver":     r.Driver,
		"byte_count": r.ByteCount,
		"raw_hex":    r.RawHex,
	}
	if r.MeterID != "" {
		summary["meter_id"] = r.MeterID
	}
	if r.Manufacturer != "" {
		summary["manufacturer"] = r.Manufacturer
	}
	if len(r.Attributes) > 0 {
		summary["value"] = r.Value
		summary["attributes"] = r.Attributes
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Sprintf("driver: %s bytes:%d raw:%s (marshal error: %v)", r.Driver, r.ByteCount, r.RawHex, err)
	}
	return string(data)
}

// AnalyzeHex decodes a hex telegram with the driver named in opts.
func AnalyzeHex(raw string, opts AnalyzeOptions) (Result, error) {
	data, err := source.DecodeHex(raw)
	if err != nil {
		return Result{}, err
	}
	return Analyze(data, opts)
}

// Analyze decodes raw telegram bytes with the driver named in opts.
func Analyze(data []byte, opts AnalyzeOptions) (Result, error) {
	name := opts.driverName()
	reg, err := Registry()
	if err != nil {
		return Result{}, err
	}
	dec, err := reg.Lookup(name)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Driver:    name,
		RawHex:    fmt.Sprintf("%X", data),
		ByteCount: len(data),
	}
	if id, err := frame.MeterID(data); err == nil {
		result.MeterID = id
	}
	if t, err := frame.Parse(data); err == nil {
		result.Manufacturer = t.ManufacturerCode()
	}

	res, err := dec.Decode(data)
	if err != nil {
		return result, err
	}
	result.Value = res.Value
	result.Attributes = res.Attributes.Map()
	return result, nil
}
