package router

import (
	"fmt"
	"strings"
)

// RawLogLevel selects which received telegrams are dumped as hex.
type RawLogLevel int

const (
	RawLogNone RawLogLevel = iota
	RawLogAll
	RawLogValidHeader
	RawLogMatchingMeter
)

var rawLogNames = map[RawLogLevel]string{
	RawLogNone:          "none",
	RawLogAll:           "all",
	RawLogValidHeader:   "valid_header",
	RawLogMatchingMeter: "matching_meter",
}

func (l RawLogLevel) String() string {
	if name, ok := rawLogNames[l]; ok {
		return name
	}
	return fmt.Sprintf("RawLogLevel(%d)", int(l))
}

// ParseRawLogLevel accepts the level names, case-insensitively, with either
// '_' or '-' as separator. An empty string selects RawLogNone.
func ParseRawLogLevel(s string) (RawLogLevel, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if name == "" {
		return RawLogNone, nil
	}
	for level, n := range rawLogNames {
		if n == name {
			return level, nil
		}
	}
	return RawLogNone, fmt.Errorf("unknown raw log level %q", s)
}

// Set implements pflag.Value.
func (l *RawLogLevel) Set(s string) error {
	level, err := ParseRawLogLevel(s)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// Type implements pflag.Value.
func (l *RawLogLevel) Type() string { return "rawlog" }
