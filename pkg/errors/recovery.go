package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError represents an error that was created from a recovered panic
// inside a Fit or Predict call.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s", e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. It must be
// deferred directly:
//
//	func (f *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "RandomForestRegressor.Fit")
//	    ...
//	}
//
// If the function already returned an error, it is kept as the cause.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = Wrapf(*err, "panic in %s: %v", operation, r)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute runs fn and converts any panic into a PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
