// Package loop runs a step function repeatedly, carrying a state between steps.
package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after a step.
//
// Zero value is Continue(0).
type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue after interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}
	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// Continue the loop after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break the loop. err is returned from Start as is (can be nil).
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Step receives the state returned by the last step, and returns the next state.
type Step[T any] func(context.Context, T) (T, Next)

// Start runs step repeatedly, beginning with init.
//
// For example, counting 1 to 10:
//
//	Start(ctx, 1, func(_ context.Context, value int) (int, Next) {
//		if 10 <= value {
//			return value, Break(nil)
//		}
//		return value + 1, Continue(0)
//	})
//
// The loop ends when step returns Break, or ctx is done.
//
// Returns the state step returned at last, and the error passed to Break.
// When ctx gets done, ctx.Err() is returned with the last state.
// The state is returned even if error is not nil.
//
// A step in progress is not interrupted by ctx. ctx is checked between steps.
func Start[T any](ctx context.Context, init T, step Step[T]) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		v, n := step(ctx, value)

		if n.err != nil {
			return v, n.err
		} else if n.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}
