package ecs

import "github.com/rotisserie/eris"

var (
	// ErrInvalidConfig is returned by New when a capacity or a listed component or system cannot be used.
	ErrInvalidConfig = eris.New("invalid engine config")
	// ErrCapacityOverflow is returned when sizing a table overflows the address space.
	ErrCapacityOverflow = eris.New("capacity arithmetic overflow")
	// ErrInvalidComponentType is returned when a component size or Go type cannot be stored.
	ErrInvalidComponentType = eris.New("invalid component type")

	// The errors below are raised as panics: they signal a broken caller contract.

	ErrCapacityExceeded   = eris.New("capacity exceeded")
	ErrDuplicateComponent = eris.New("component type already registered")
	ErrUnknownComponent   = eris.New("component type not registered")
	ErrOutOfRange         = eris.New("id out of range")
	ErrEngineFreed        = eris.New("engine has been freed")
)

// fatalf panics with err wrapped in a formatted message.
func fatalf(err error, format string, args ...any) {
	panic(eris.Wrapf(err, format, args...))
}
