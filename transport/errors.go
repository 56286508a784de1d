package transport

import (
	"errors"
	"fmt"
)

// ErrTransport is the root of this package's error taxonomy. Every error
// returned by a Connection matches it with errors.Is.
var ErrTransport = errors.New("transport error")

// ErrClosed reports use of a connection whose handle has been closed.
var ErrClosed = fmt.Errorf("%w: connection/handle has been closed", ErrTransport)

// OptionError reports a failure to apply an option to the engine handle.
// It carries the option identifier and the string form of the value that
// was being set.
type OptionError struct {
	Option Option
	Value  string
	Reason error
}

func (e *OptionError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("error setting option (%s) with value (%s): %v", e.Option.Name(), e.Value, e.Reason)
	}
	return fmt.Sprintf("error setting option (%s) with value (%s)", e.Option.Name(), e.Value)
}

func (e *OptionError) Unwrap() []error {
	if e.Reason != nil {
		return []error{ErrTransport, e.Reason}
	}
	return []error{ErrTransport}
}

// PerformError reports a failure of the blocking network call itself. A
// non-2xx HTTP status is not a PerformError; statuses are ordinary data
// at this layer.
type PerformError struct {
	Code EngineCode
	Err  error
}

func (e *PerformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection error (%d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("connection error (%d)", e.Code)
}

func (e *PerformError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTransport, e.Err}
	}
	return []error{ErrTransport}
}
