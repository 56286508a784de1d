package transport

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Executor is anything that can perform one blocking request. Both
// *Connection and *Throttled satisfy it.
type Executor interface {
	Execute() (int, []byte, time.Time, error)
}

// Throttled gates an executor behind a token-bucket limiter. Brokerage
// APIs meter calls per second; wrapping the connection keeps the pacing
// policy out of the transport itself.
type Throttled struct {
	inner   Executor
	limiter *rate.Limiter
}

// NewThrottled wraps exec so Execute runs at most perSecond times per
// second. perSecond <= 0 means unlimited.
func NewThrottled(exec Executor, perSecond int) *Throttled {
	if perSecond <= 0 {
		return &Throttled{inner: exec, limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Throttled{inner: exec, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (t *Throttled) Execute() (int, []byte, time.Time, error) {
	if err := t.limiter.Wait(context.Background()); err != nil {
		return 0, nil, time.Time{}, err
	}
	return t.inner.Execute()
}
