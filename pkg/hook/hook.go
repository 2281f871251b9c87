// Package hook notifies lifecycle of tasks to outside.
package hook

import (
	"context"
	"errors"
)

// Hook is called before and after a value T is processed.
type Hook[T any] interface {
	// Before is called before the value T is processed.
	//
	// When it returns error, the value should not be processed.
	Before(context.Context, T) error

	// After is called after the value T is processed, whether or not the processing succeeded.
	After(context.Context, T) error
}

var ErrHookFailed = errors.New("hook failed")
