// Package race settles several asynchronous attempts by taking whichever
// completes first and abandoning the rest.
package race

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by the attempt built with After.
var ErrTimeout = errors.New("race: timed out")

// Func is one contender.
type Func[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	idx int
	val T
	err error
}

// First starts every contender and returns the result of the first one
// to settle, success or error, together with its index. The context
// handed to contenders is cancelled once a winner is known. Losers write
// into a buffered channel nobody reads, so their late completion never
// blocks and has no effect.
//
// If ctx ends before any contender settles, First returns ctx.Err() and
// index -1.
func First[T any](ctx context.Context, fns ...Func[T]) (T, int, error) {
	var zero T
	if len(fns) == 0 {
		return zero, -1, errors.New("race: no contenders")
	}

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome[T], len(fns))
	for i, fn := range fns {
		go func(i int, fn Func[T]) {
			v, err := fn(rctx)
			results <- outcome[T]{idx: i, val: v, err: err}
		}(i, fn)
	}

	select {
	case r := <-results:
		return r.val, r.idx, r.err
	case <-ctx.Done():
		return zero, -1, ctx.Err()
	}
}

// After is a contender that fails with err (ErrTimeout when nil) once d
// elapses, or returns early if the race is already decided.
func After[T any](d time.Duration, err error) Func[T] {
	if err == nil {
		err = ErrTimeout
	}
	return func(ctx context.Context) (T, error) {
		var zero T
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return zero, err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// WithTimeout races fn against a d timer.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn Func[T]) (T, error) {
	v, _, err := First(ctx, fn, After[T](d, nil))
	return v, err
}
