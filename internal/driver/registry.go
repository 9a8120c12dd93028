package driver

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrMissingTotal  = errors.New("total volume record missing")
	ErrUnknownDriver = errors.New("driver not registered")
	ErrNilDecoder    = errors.New("nil decoder")
)

// Result is the outcome of a successful decode.
type Result struct {
	Attributes Attributes
	Value      float64
}

// Decoder turns one raw telegram into named attributes and a main value.
// Implementations keep no state between calls.
type Decoder interface {
	Decode(raw []byte) (Result, error)
}

// DecodeFunc adapts a plain function to the Decoder interface.
type DecodeFunc func(raw []byte) (Result, error)

// Decode calls f(raw).
func (f DecodeFunc) Decode(raw []byte) (Result, error) { return f(raw) }

// Registry maps driver names to decoders. It is filled during startup and
// read concurrently afterwards.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register stores dec under name. A later registration for the same name
// replaces the earlier one; a nil decoder is rejected.
func (r *Registry) Register(name string, dec Decoder) error {
	if dec == nil {
		return fmt.Errorf("register %q: %w", name, ErrNilDecoder)
	}
	if f, ok := dec.(DecodeFunc); ok && f == nil {
		return fmt.Errorf("register %q: %w", name, ErrNilDecoder)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[name] = dec
	return nil
}

// Find returns the decoder registered under name.
func (r *Registry) Find(name string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dec, ok := r.decoders[name]
	return dec, ok
}

// Lookup is Find with an ErrUnknownDriver error for missing names.
func (r *Registry) Lookup(name string) (Decoder, error) {
	dec, ok := r.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	return dec, nil
}

// Names lists the registered driver names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
