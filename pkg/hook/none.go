package hook

import "context"

// None is a hook that does nothing.
type None[T any] struct{}

var _ Hook[struct{}] = None[struct{}]{}

func (None[T]) Before(context.Context, T) error {
	return nil
}

func (None[T]) After(context.Context, T) error {
	return nil
}
