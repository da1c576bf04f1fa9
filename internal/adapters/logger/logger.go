package logger

import (
	"fmt"

	"propDesk/internal/ports"
)

// New returns the ports.Logger for the configured format.
func New(format Format, level LogLevel) (ports.Logger, error) {
	switch format {
	case FormatJSON:
		z, err := NewZapLogger(level)
		if err != nil {
			return nil, err
		}
		return z, nil
	case FormatText, "":
		return NewStdLogger(level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
