package ingestion_engine

import (
	"context"
	"fmt"
	"time"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
)

// PollPolicy bounds how long an external job is waited on.
// Backoff multiplies the interval after each attempt; values <= 1 keep it fixed.
type PollPolicy struct {
	Kind        string
	Interval    time.Duration
	MaxAttempts int
	Backoff     float64
}

// PollFunc fetches the current state of an external job.
type PollFunc[T any] func(ctx context.Context) (T, core.JobStatus, error)

// AwaitJob sleeps, polls, and repeats until the job reaches a terminal status.
// COMPLETED and SUCCEEDED return the payload, FAILED yields core.ErrJobFailed and
// running out of attempts yields core.ErrJobTimeout. The wait honours ctx.
func AwaitJob[T any](ctx context.Context, policy PollPolicy, poll PollFunc[T]) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := policy.Interval

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
		}

		result, status, err := poll(ctx)
		if err != nil {
			pollAttempts.WithLabelValues(policy.Kind, "error").Inc()
			return zero, fmt.Errorf("poll %s job: %w", policy.Kind, err)
		}
		pollAttempts.WithLabelValues(policy.Kind, string(status)).Inc()

		switch {
		case status.Done():
			return result, nil
		case status == core.JobStatusFailed:
			return zero, fmt.Errorf("%s job: %w", policy.Kind, core.ErrJobFailed)
		}

		if policy.Backoff > 1 {
			interval = time.Duration(float64(interval) * policy.Backoff)
		}
		timer.Reset(interval)
	}
	return zero, fmt.Errorf("%s job after %d attempts: %w", policy.Kind, attempts, core.ErrJobTimeout)
}
