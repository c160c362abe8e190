// Package enrich runs bounded, failure-isolated fan-out over a list of items.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrSkip marks an expected absence. Fetches returning an error that wraps it
// are recorded as failed but only logged at debug level.
var ErrSkip = errors.New("skipped")

// Options configures RunBounded.
type Options struct {
	// Limit is the maximum number of fetches in flight. Values below 1 mean 1.
	Limit int
	// Timeout bounds each fetch individually. Zero means no extra deadline.
	Timeout time.Duration
	// Name labels log lines.
	Name   string
	Logger *slog.Logger
	// Classify names the kind of a failure for the warn log line. Nil logs
	// no kind.
	Classify func(error) string
}

// Result is the outcome of one fetch.
type Result[V any] struct {
	Value V
	OK    bool
	Err   error
}

// PanicError wraps a value recovered from a panicking fetch.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// RunBounded calls fetch once per item with at most opts.Limit calls running
// at a time and waits for every call to finish. Results are keyed by key(item);
// every key is present in the returned map. A failing, timed out or panicking
// fetch only affects its own entry and never cancels its siblings. If two
// items share a key the later one to finish wins.
func RunBounded[T any, K comparable, V any](
	ctx context.Context,
	items []T,
	key func(T) K,
	opts Options,
	fetch func(context.Context, T) (V, error),
) map[K]Result[V] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}

	results := make(map[K]Result[V], len(items))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(limit)

	start := time.Now()
	for _, item := range items {
		k := key(item)
		g.Go(func() error {
			value, err := call(ctx, item, opts.Timeout, fetch)

			mu.Lock()
			if err != nil {
				results[k] = Result[V]{Err: err}
			} else {
				results[k] = Result[V]{Value: value, OK: true}
			}
			mu.Unlock()

			switch {
			case err == nil:
			case errors.Is(err, ErrSkip):
				logger.Debug("enrichment skipped", "stage", opts.Name, "key", k, "reason", err)
			default:
				attrs := []any{"stage", opts.Name, "key", k, "error", err}
				if opts.Classify != nil {
					attrs = append(attrs, "kind", opts.Classify(err))
				}
				logger.Warn("enrichment failed", attrs...)
			}
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
		}
	}
	logger.Debug("enrichment finished",
		"stage", opts.Name,
		"items", len(items),
		"succeeded", ok,
		"duration", time.Since(start),
	)

	return results
}

type outcome[V any] struct {
	value V
	err   error
}

// call runs a single fetch under its own deadline and converts a panic into
// an error. The deadline is enforced here as well: a fetch that ignores ctx
// is abandoned once ctx is done and its late value is discarded.
func call[T any, V any](ctx context.Context, item T, timeout time.Duration, fetch func(context.Context, T) (V, error)) (V, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan outcome[V], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero V
				done <- outcome[V]{value: zero, err: &PanicError{Value: r}}
			}
		}()
		value, err := fetch(ctx, item)
		done <- outcome[V]{value: value, err: err}
	}()

	var zero V
	select {
	case out := <-done:
		if out.err != nil {
			return zero, out.err
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return out.value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
