package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Config holds the backoff parameters.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// Logger receives one line per retried attempt.
type Logger func(message string, args ...interface{})

// Permanent wraps an error that must not be retried.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

func (c Config) delay(attempt int) time.Duration {
	d := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, returns a *Permanent error, the retries run
// out or ctx is cancelled.
func Do[T any](ctx context.Context, cfg Config, name string, log Logger, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			d := cfg.delay(attempt - 1)
			if log != nil {
				log("%s: retry attempt %d/%d after %v: %v", name, attempt+1, cfg.MaxRetries+1, d, lastErr)
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(d):
			}
		}

		v, err := fn(attempt)
		if err == nil {
			return v, nil
		}

		var p *Permanent
		if errors.As(err, &p) {
			return zero, p.Err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%s: %d attempts exhausted: %w", name, cfg.MaxRetries+1, lastErr)
}
