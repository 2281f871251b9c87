package hook

import (
	"context"
	"errors"
)

// Func is a hook that calls functions before and after processing the value T.
type Func[T any] struct {
	// BeforeFn is called before processing the value T. nil is skipped.
	BeforeFn func(context.Context, T) error

	// AfterFn is called after processing the value T. nil is skipped.
	AfterFn func(context.Context, T) error
}

var _ Hook[struct{}] = Func[struct{}]{}

func (f Func[T]) Before(ctx context.Context, value T) error {
	if f.BeforeFn == nil {
		return nil
	}
	if err := f.BeforeFn(ctx, value); err != nil {
		return errors.Join(err, ErrHookFailed)
	}
	return nil
}

func (f Func[T]) After(ctx context.Context, value T) error {
	if f.AfterFn == nil {
		return nil
	}
	if err := f.AfterFn(ctx, value); err != nil {
		return errors.Join(err, ErrHookFailed)
	}
	return nil
}
