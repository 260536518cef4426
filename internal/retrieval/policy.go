package retrieval

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PollPolicy bounds how long a reader waits for writes to become visible.
type PollPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPollPolicy polls stats three times, two seconds apart.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Attempts: 3, Delay: 2 * time.Second}
}

func (p PollPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := max(p.Attempts, 1)
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}
