package domain

import (
	"errors"
	"fmt"
)

var (
	// configuration is not acceptable. Errors of this family abort whole batch.
	ErrInvalidConfig = errors.New("invalid configuration")

	// kernel, solver, selector, mode, loss function or variant name is not in the supported set
	ErrUnsupportedValue = fmt.Errorf("%w: unsupported value", ErrInvalidConfig)

	// numeric parameter is out of its range (or NaN/Inf)
	ErrOutOfRange = fmt.Errorf("%w: out of range", ErrInvalidConfig)

	// sequences which should be aligned have different length
	ErrLengthMismatch = fmt.Errorf("%w: length mismatch", ErrInvalidConfig)

	// feature flags are combined in a way the engine does not accept
	ErrIncompatibleFlags = fmt.Errorf("%w: incompatible flags", ErrInvalidConfig)

	// non-factorized active learner is combined with a metric on factorized learner
	ErrFactorizationMismatch = fmt.Errorf("%w: factorization mismatch", ErrInvalidConfig)

	// a task of the batch failed. The batch goes on.
	ErrTaskFailed = errors.New("task failed")
)

// ConfigError reports which field violates which constraint.
//
// It matches its Reason with errors.Is, so
//
//	errors.Is(err, ErrOutOfRange)
//
// holds for out-of-range field, and also errors.Is(err, ErrInvalidConfig) does.
type ConfigError struct {
	// Field is dot separated path to the field, like "versionSpace.kernel.gamma".
	Field string

	// Value is the rejected value, if any.
	Value any

	// Reason is one of ErrInvalidConfig family.
	Reason error

	// Detail is human readable explanation
	Detail string
}

func (e *ConfigError) Error() string {
	msg := e.Reason.Error()
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s", e.Field)
		if e.Value != nil {
			msg += fmt.Sprintf(" = %v", e.Value)
		}
		msg += ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Reason
}

// NewConfigError builds ConfigError.
//
// reason should be one of ErrInvalidConfig family.
func NewConfigError(reason error, field string, value any, detail string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason, Detail: detail}
}

// Within prefixes the field path of ConfigError in err with parent.
//
// Other errors are returned as is.
func Within(parent string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		return err
	}
	field := parent
	if ce.Field != "" {
		field = parent + "." + ce.Field
	}
	return &ConfigError{Field: field, Value: ce.Value, Reason: ce.Reason, Detail: ce.Detail}
}

// TaskError is an error occurred while a task of batch is processed.
//
// It matches ErrTaskFailed and its cause with errors.Is.
type TaskError struct {
	Task string

	// Phase is where the task is failed. (ex. "persist", "hook", "engine")
	Phase string

	Err error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf(`task "%s" failed in %s: %s`, e.Task, e.Phase, e.Err)
}

func (e *TaskError) Unwrap() []error {
	return []error{ErrTaskFailed, e.Err}
}

func NewTaskError(task string, phase string, err error) error {
	return &TaskError{Task: task, Phase: phase, Err: err}
}

// IsBatchFatal tells the error should abort whole batch.
func IsBatchFatal(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
