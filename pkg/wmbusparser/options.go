package wmbusparser

import "github.com/rkotulan/wmbus-parser/internal/driver/evo868"

// DefaultDriver is used when AnalyzeOptions.Driver is empty.
const DefaultDriver = evo868.Name

// AnalyzeOptions configures decoding.
type AnalyzeOptions struct {
	Driver string
}

func (opts AnalyzeOptions) driverName() string {
	if opts.Driver == "" {
		return DefaultDriver
	}
	return opts.Driver
}
