// Package retry implements the fixed-cap retry policy shared by the
// summarization and embedding steps of the pipeline.
package retry

import "context"

// Do runs op up to attempts times until it returns a nil error and a value
// accepted by ok. Failed attempts are not backed off; the cap alone bounds
// the cost. It reports false when every attempt fails softly or the context
// is done, leaving the skip decision to the caller.
func Do[T any](ctx context.Context, attempts int, op func(context.Context) (T, error), ok func(T) bool) (T, bool) {
	var zero T
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return zero, false
		}
		v, err := op(ctx)
		if err == nil && ok(v) {
			return v, true
		}
	}
	return zero, false
}
