package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
)

// permanentError stops the retry loop.
type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

func permanent(err error) error { return permanentError{err: err} }

// statusError is a non-2xx reply.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API hatası: %d - %s", e.Code, e.Body)
}

// retrier runs a call up to attempts times with a fixed delay between tries.
type retrier struct {
	attempts int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      *logrus.Entry
}

func newRetrier(attempts int, delay time.Duration, log *logrus.Entry) retrier {
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	if delay < 0 {
		delay = 0
	}
	return retrier{attempts: attempts, delay: delay, sleep: sleepContext, log: log}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r retrier) run(ctx context.Context, call func(context.Context) (string, error)) Result {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		content, err := call(ctx)
		if err == nil {
			return Result{Success: true, Content: content, Attempts: attempt}
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return failed(perm.Error(), attempt)
		}
		if r.log != nil {
			r.log.WithError(err).WithField("attempt", attempt).Warn("model call failed")
		}
		if attempt == r.attempts {
			return failed(err.Error(), attempt)
		}
		if err := r.sleep(ctx, r.delay); err != nil {
			return failed(fmt.Sprintf("API çağrısı iptal edildi: %v", err), attempt)
		}
	}
	return failed(fmt.Sprintf("%d deneme sonrası API yanıtı alınamadı", r.attempts), r.attempts)
}
