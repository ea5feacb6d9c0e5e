// Package retrier holds the bounded retry policy shared by the opportunity
// paginator and the sync orchestrator.
package retrier

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/straye-as/opportunity-sync/internal/config"
	"go.uber.org/zap"
)

// minDelay keeps go-retry from panicking on a zero base delay
const minDelay = time.Nanosecond

// Classifier reports whether an error is worth another attempt
type Classifier func(err error) bool

// Policy is a bounded exponential backoff: MaxRetries extra attempts after the
// first, starting at BaseDelay and doubling up to MaxDelay.
type Policy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	logger *zap.Logger
}

// New builds a policy from configuration
func New(cfg *config.RetryConfig, logger *zap.Logger) *Policy {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Policy{
		MaxRetries: uint64(maxRetries),
		BaseDelay:  cfg.BaseDelayDuration(),
		MaxDelay:   cfg.MaxDelayDuration(),
		logger:     logger,
	}
}

// NoDelay returns a policy that retries immediately; used by tests.
func NoDelay(maxRetries uint64) *Policy {
	return &Policy{MaxRetries: maxRetries, logger: zap.NewNop()}
}

func (p *Policy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base < minDelay {
		base = minDelay
	}
	b := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// Do runs fn until it succeeds, returns an error the classifier rejects, the
// retry budget is spent, or ctx is done. The last error is returned unwrapped.
func (p *Policy) Do(ctx context.Context, retryable Classifier, fn func(ctx context.Context) error) error {
	logger := p.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	attempt := 0
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && retryable(err) {
			logger.Debug("Retryable failure",
				zap.Int("attempt", attempt),
				zap.Uint64("max_retries", p.MaxRetries),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return err
	})
}
