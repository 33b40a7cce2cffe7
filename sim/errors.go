package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies the errors that can stop or end a simulation.
type ErrorKind int

// The error kinds.
const (
	// ConfigError is an invalid layout or setting, found before the run.
	ConfigError ErrorKind = iota
	// InputError is a malformed event input.
	InputError
	// RuntimeModelError is a component driven outside its contract.
	RuntimeModelError
	// ProtocolObservation is an anomaly seen on a data link. It is counted,
	// never fatal.
	ProtocolObservation
	// SimulationLimitReached ends the run normally.
	SimulationLimitReached
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case InputError:
		return "InputError"
	case RuntimeModelError:
		return "RuntimeModelError"
	case ProtocolObservation:
		return "ProtocolObservation"
	case SimulationLimitReached:
		return "SimulationLimitReached"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// SimError is the single error type that components report to the driver.
type SimError struct {
	Kind    ErrorKind
	Where   string
	Time    VTimeInNs
	Message string
	Err     error
}

// Error formats the error as a single line.
func (e *SimError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}

	return fmt.Sprintf("%s at %s (t=%d ns): %s", e.Kind, e.Where, e.Time, msg)
}

// Unwrap returns the cause of the error.
func (e *SimError) Unwrap() error {
	return e.Err
}

// NewSimError creates a SimError with a formatted message.
func NewSimError(
	kind ErrorKind,
	where string,
	t VTimeInNs,
	format string,
	args ...interface{},
) *SimError {
	return &SimError{
		Kind:    kind,
		Where:   where,
		Time:    t,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewConfigError creates a ConfigError. Config errors are found before the
// simulation starts, so they have no time.
func NewConfigError(where string, format string, args ...interface{}) *SimError {
	return NewSimError(ConfigError, where, 0, format, args...)
}

// NewInputError creates an InputError wrapping a lower level error.
func NewInputError(where string, err error) *SimError {
	return &SimError{Kind: InputError, Where: where, Err: err}
}

// NewRuntimeModelError creates a RuntimeModelError.
func NewRuntimeModelError(
	where string,
	t VTimeInNs,
	format string,
	args ...interface{},
) *SimError {
	return NewSimError(RuntimeModelError, where, t, format, args...)
}

// KindOf returns the kind of a SimError anywhere in the error chain.
func KindOf(err error) (ErrorKind, bool) {
	var simErr *SimError
	if errors.As(err, &simErr) {
		return simErr.Kind, true
	}

	return 0, false
}

// WrapHandlerError makes sure that an error returned by a handler carries
// the time and the component where it happened.
func WrapHandlerError(err error, handler Handler, t VTimeInNs) error {
	var simErr *SimError
	if errors.As(err, &simErr) {
		if simErr.Where == "" {
			simErr.Where = handlerName(handler)
		}

		if simErr.Time == 0 {
			simErr.Time = t
		}

		return err
	}

	return &SimError{
		Kind:  RuntimeModelError,
		Where: handlerName(handler),
		Time:  t,
		Err:   err,
	}
}

func handlerName(h Handler) string {
	if named, ok := h.(Named); ok {
		return named.Name()
	}

	return fmt.Sprintf("%T", h)
}
