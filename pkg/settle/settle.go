// Package settle runs a batch of fallible operations concurrently and keeps
// only the ones that succeed.
//
// One failing item never aborts the batch. Failures are reported next to the
// successes so callers can decide whether a partial batch is worth surfacing.
package settle

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Failure records an input whose operation returned an error.
type Failure struct {
	// Index is the position of the input in the original slice.
	Index int
	Err   error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("item %d: %v", f.Index, f.Err)
}

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error {
	return f.Err
}

// Result holds the outcome of a settled batch.
type Result[T any] struct {
	// Values are the successful results in original input order.
	Values []T

	// Indices maps Values[i] back to its input position.
	Indices []int

	// Failures are the inputs that failed, ordered by Index.
	Failures []Failure
}

// Failed returns the number of inputs that did not succeed.
func (r Result[T]) Failed() int {
	return len(r.Failures)
}

type slot[T any] struct {
	value T
	err   error
}

// All applies fn to every input concurrently and waits for all of them.
// At most limit operations run at once; limit <= 0 means no bound.
//
// All never returns an error. A panicking fn is recorded as a failure for
// that input only.
func All[In, Out any](ctx context.Context, inputs []In, limit int, fn func(ctx context.Context, in In) (Out, error)) Result[Out] {
	slots := make([]slot[Out], len(inputs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, in := range inputs {
		g.Go(func() error {
			slots[i].value, slots[i].err = call(ctx, in, fn)
			return nil
		})
	}
	_ = g.Wait()

	result := Result[Out]{
		Values:  make([]Out, 0, len(inputs)),
		Indices: make([]int, 0, len(inputs)),
	}
	for i, s := range slots {
		if s.err != nil {
			result.Failures = append(result.Failures, Failure{Index: i, Err: s.err})
			continue
		}
		result.Values = append(result.Values, s.value)
		result.Indices = append(result.Indices, i)
	}

	return result
}

func call[In, Out any](ctx context.Context, in In, fn func(ctx context.Context, in In) (Out, error)) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return fn(ctx, in)
}
