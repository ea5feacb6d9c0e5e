package retrier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/retrier"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var errFlaky = errors.New("flaky")

func always(error) bool { return true }

func TestPolicy_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := retrier.NoDelay(3).Do(ctx, always, func(context.Context) error {
			calls++
			if calls < 3 {
				return errFlaky
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("bounded attempts", func(t *testing.T) {
		calls := 0
		err := retrier.NoDelay(2).Do(ctx, always, func(context.Context) error {
			calls++
			return errFlaky
		})
		assert.ErrorIs(t, err, errFlaky)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		calls := 0
		err := retrier.NoDelay(5).Do(ctx, func(error) bool { return false }, func(context.Context) error {
			calls++
			return errFlaky
		})
		assert.ErrorIs(t, err, errFlaky)
		assert.Equal(t, 1, calls)
	})
}

func TestNew(t *testing.T) {
	p := retrier.New(&config.RetryConfig{MaxRetries: 3, BaseDelayMs: 1000, MaxDelayMs: 10000}, zap.NewNop())
	assert.Equal(t, uint64(3), p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 10*time.Second, p.MaxDelay)

	p = retrier.New(&config.RetryConfig{MaxRetries: -1}, zap.NewNop())
	assert.Equal(t, uint64(0), p.MaxRetries)
}
