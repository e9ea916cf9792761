package poller

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pair holds the results of two fetches gated by one execution.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Join returns a [FetchFunc] that runs fa and fb concurrently and succeeds
// only if both succeed. On failure the first error is returned and neither
// result is used, so a poller built on it retains both prior values.
//
// A failure in one fetch does not cancel the other.
func Join[A, B any](fa FetchFunc[A], fb FetchFunc[B]) FetchFunc[Pair[A, B]] {
	return func(ctx context.Context) (Pair[A, B], error) {
		var (
			g errgroup.Group
			a A
			b B
		)
		g.Go(func() error {
			v, err := fa(ctx)
			if err != nil {
				return err
			}
			a = v
			return nil
		})
		g.Go(func() error {
			v, err := fb(ctx)
			if err != nil {
				return err
			}
			b = v
			return nil
		})
		if err := g.Wait(); err != nil {
			return Pair[A, B]{}, err
		}
		return Pair[A, B]{First: a, Second: b}, nil
	}
}

// Map returns a [FetchFunc] that transforms the result of f on success.
func Map[A, B any](f FetchFunc[A], fn func(A) B) FetchFunc[B] {
	return func(ctx context.Context) (B, error) {
		v, err := f(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return fn(v), nil
	}
}
