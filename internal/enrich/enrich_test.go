package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func identity(s string) string { return s }

func TestRunBounded_AllSucceed(t *testing.T) {
	items := []string{"a", "b", "c"}

	results := RunBounded(context.Background(), items, identity, Options{Limit: 2, Logger: quietLogger()},
		func(_ context.Context, s string) (string, error) {
			return strings.ToUpper(s), nil
		})

	require.Len(t, results, 3)
	for _, item := range items {
		assert.True(t, results[item].OK)
		assert.Equal(t, strings.ToUpper(item), results[item].Value)
		assert.NoError(t, results[item].Err)
	}
}

func TestRunBounded_RespectsLimit(t *testing.T) {
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	var inFlight, peak int32
	results := RunBounded(context.Background(), items, func(i int) int { return i }, Options{Limit: 3, Logger: quietLogger()},
		func(_ context.Context, i int) (int, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return i * i, nil
		})

	assert.Len(t, results, 20)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, int32(0), atomic.LoadInt32(&inFlight), "every call should have settled")
	assert.Equal(t, 49, results[7].Value)
}

func TestRunBounded_NonPositiveLimitRunsSerially(t *testing.T) {
	var inFlight, peak int32
	items := []int{1, 2, 3, 4}

	RunBounded(context.Background(), items, func(i int) int { return i }, Options{Limit: 0, Logger: quietLogger()},
		func(_ context.Context, i int) (int, error) {
			n := atomic.AddInt32(&inFlight, 1)
			if n > atomic.LoadInt32(&peak) {
				atomic.StoreInt32(&peak, n)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return i, nil
		})

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestRunBounded_FailureIsIsolated(t *testing.T) {
	items := []string{"ok-1", "bad", "ok-2"}
	boom := errors.New("connection reset")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	results := RunBounded(context.Background(), items, identity, Options{Limit: 5, Name: "titles", Logger: logger},
		func(ctx context.Context, s string) (string, error) {
			if s == "bad" {
				return "", boom
			}
			// siblings must not see a cancelled context
			time.Sleep(10 * time.Millisecond)
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return s + "!", nil
		})

	require.Len(t, results, 3)
	assert.False(t, results["bad"].OK)
	assert.ErrorIs(t, results["bad"].Err, boom)
	assert.True(t, results["ok-1"].OK)
	assert.True(t, results["ok-2"].OK)
	assert.Equal(t, "ok-2!", results["ok-2"].Value)
	assert.Contains(t, logs.String(), "enrichment failed")
	assert.Contains(t, logs.String(), "stage=titles")
}

func TestRunBounded_Panic(t *testing.T) {
	items := []string{"fine", "panics"}

	results := RunBounded(context.Background(), items, identity, Options{Limit: 2, Logger: quietLogger()},
		func(_ context.Context, s string) (string, error) {
			if s == "panics" {
				panic("unexpected markup")
			}
			return s, nil
		})

	require.Len(t, results, 2)
	assert.True(t, results["fine"].OK)
	assert.False(t, results["panics"].OK)

	var panicErr *PanicError
	require.ErrorAs(t, results["panics"].Err, &panicErr)
	assert.Equal(t, "unexpected markup", panicErr.Value)
}

func TestRunBounded_Timeout(t *testing.T) {
	items := []string{"slow", "fast"}

	start := time.Now()
	results := RunBounded(context.Background(), items, identity, Options{Limit: 2, Timeout: 20 * time.Millisecond, Logger: quietLogger()},
		func(ctx context.Context, s string) (string, error) {
			if s == "fast" {
				return s, nil
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return s, nil
			}
		})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, results["fast"].OK)
	assert.False(t, results["slow"].OK)
	assert.ErrorIs(t, results["slow"].Err, context.DeadlineExceeded)
}

func TestRunBounded_TimeoutEnforcedWhenFetchIgnoresContext(t *testing.T) {
	items := []string{"first", "second"}

	start := time.Now()
	results := RunBounded(context.Background(), items, identity, Options{Limit: 1, Timeout: 50 * time.Millisecond, Logger: quietLogger()},
		func(context.Context, string) (string, error) {
			time.Sleep(300 * time.Millisecond)
			return "late", nil
		})
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	for _, item := range items {
		assert.False(t, results[item].OK, item)
		assert.Empty(t, results[item].Value, item)
		assert.ErrorIs(t, results[item].Err, context.DeadlineExceeded, item)
	}
	// Each abandoned call frees its slot at the deadline, not when the
	// sleep ends.
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestRunBounded_LateValueAfterDeadlineIsDropped(t *testing.T) {
	results := RunBounded(context.Background(), []string{"a"}, identity, Options{Limit: 1, Timeout: 20 * time.Millisecond, Logger: quietLogger()},
		func(ctx context.Context, s string) (string, error) {
			<-ctx.Done()
			return s, nil
		})

	assert.False(t, results["a"].OK)
	assert.Empty(t, results["a"].Value)
	assert.ErrorIs(t, results["a"].Err, context.DeadlineExceeded)
}

func TestRunBounded_ClassifyAddsKind(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	RunBounded(context.Background(), []string{"broken"}, identity,
		Options{Limit: 1, Name: "fetching_artwork", Logger: logger, Classify: func(error) string { return "network" }},
		func(context.Context, string) (string, error) {
			return "", errors.New("connection refused")
		})

	assert.Contains(t, logs.String(), "enrichment failed")
	assert.Contains(t, logs.String(), "kind=network")
}

func TestRunBounded_SkipLoggedAtDebug(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))

	results := RunBounded(context.Background(), []string{"no-poster"}, identity, Options{Limit: 1, Logger: logger},
		func(context.Context, string) (string, error) {
			return "", fmt.Errorf("no artwork: %w", ErrSkip)
		})

	assert.False(t, results["no-poster"].OK)
	assert.ErrorIs(t, results["no-poster"].Err, ErrSkip)
	assert.NotContains(t, logs.String(), "enrichment failed")
}

func TestRunBounded_Empty(t *testing.T) {
	results := RunBounded(context.Background(), nil, identity, Options{Limit: 3},
		func(context.Context, string) (string, error) {
			t.Fatal("fetch should not be called")
			return "", nil
		})
	assert.Empty(t, results)
}

func TestRunBounded_ConcurrentWritesAreSafe(t *testing.T) {
	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}

	var calls sync.Map
	results := RunBounded(context.Background(), items, func(i int) int { return i }, Options{Limit: 16, Logger: quietLogger()},
		func(_ context.Context, i int) (int, error) {
			calls.Store(i, true)
			if i%7 == 0 {
				return 0, errors.New("flaky")
			}
			return i, nil
		})

	require.Len(t, results, 200)
	for i := range items {
		_, called := calls.Load(i)
		assert.True(t, called)
		assert.Equal(t, i%7 != 0, results[i].OK)
	}
}
