// Package groutine starts goroutines that carry a name, both as a pprof
// label and as a context value, so stack dumps and logs can tell the
// connection monitors, dialers and sequencers apart.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey struct{}

const labelKey = "goroutine_name"

// Go runs fn on a new goroutine labeled name. A nil parent is treated as
// context.Background().
func Go(parent context.Context, name string, fn func(ctx context.Context)) {
	if parent == nil {
		parent = context.Background()
	}

	go pprof.Do(parent, pprof.Labels(labelKey, name), func(ctx context.Context) {
		fn(context.WithValue(ctx, ctxKey{}, name))
	})
}

// Name returns the name given to Go for the goroutine owning ctx, or ""
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(ctxKey{}).(string)
	return name
}
