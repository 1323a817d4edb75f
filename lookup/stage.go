package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giygas/medlookup-api/metrics"
	"github.com/giygas/medlookup-api/upstream"
)

// Stage names, used as metric labels and in logs
const (
	stageIdentity     = "identity"
	stageProperties   = "properties"
	stageSynonyms     = "synonyms"
	stageUsage        = "usage"
	stageInteractions = "interactions"
)

// stagePolicy bounds one stage run. timeout covers every attempt.
type stagePolicy struct {
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// runStage calls fn under the policy's deadline, retrying failures with a
// linear backoff. fn runs in its own goroutine so a call that ignores its
// context still cannot hold the stage past the deadline.
func runStage[T any](ctx context.Context, p stagePolicy, stage string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("%s stage: %w (last error: %v)", stage, ctx.Err(), lastErr)
			case <-time.After(time.Duration(attempt) * p.backoff):
			}
		}

		value, err := callWithContext(ctx, fn)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return zero, fmt.Errorf("%s stage: %w", stage, lastErr)
}

type attemptResult[T any] struct {
	value T
	err   error
}

func callWithContext[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	done := make(chan attemptResult[T], 1)
	go func() {
		value, err := fn(ctx)
		done <- attemptResult[T]{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// retryable is false once the stage context is done or the breaker is open
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, upstream.ErrCircuitOpen)
}

func recordStage(stage, outcome string) {
	metrics.StageOutcomes.WithLabelValues(stage, outcome).Inc()
}
