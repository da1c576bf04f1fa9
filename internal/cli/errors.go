package cli

import (
	"errors"

	"propDesk/internal/ports"
)

// Exit codes by error kind.
const (
	exitGeneric          = 1
	exitValidation       = 2
	exitNotFound         = 3
	exitInvalidState     = 4
	exitPriceUnavailable = 5
	exitConflict         = 6
	exitConfiguration    = 7
)

var errorKinds = []struct {
	err   error
	label string
	code  int
}{
	{ports.ErrValidation, "invalid input", exitValidation},
	{ports.ErrNotFound, "not found", exitNotFound},
	{ports.ErrInvalidState, "not allowed in the current state", exitInvalidState},
	{ports.ErrPriceUnavailable, "market price unavailable, try again", exitPriceUnavailable},
	{ports.ErrConflict, "concurrent update, try again", exitConflict},
	{ports.ErrConfigurationError, "configuration error", exitConfiguration},
}

// describeError prefixes err with a human-readable kind.
func describeError(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.label + ": " + err.Error()
		}
	}
	return err.Error()
}

func exitCode(err error) int {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return exitGeneric
}
