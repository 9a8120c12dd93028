// Package drivers registers every built-in meter driver. Call RegisterAll
// once during startup before any telegram is decoded.
package drivers

import (
	"github.com/rkotulan/wmbus-parser/internal/driver"
	"github.com/rkotulan/wmbus-parser/internal/driver/evo868"
)

var builtin = []func(*driver.Registry) error{
	evo868.Register,
}

// RegisterAll adds the built-in drivers to reg.
func RegisterAll(reg *driver.Registry) error {
	for _, register := range builtin {
		if err := register(reg); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in drivers.
func NewRegistry() (*driver.Registry, error) {
	reg := driver.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
