package chainclient

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satsengine/lnengine/pkg/logger"
)

// maxRetries bounds the exponential backoff before a transient failure is
// given up on for one poll cycle (spec §4.4: "transient network failures
// cause retry with exponential backoff").
const maxRetries = 5

const initialBackoff = 250 * time.Millisecond
const maxBackoff = 8 * time.Second

// withRetry runs op with exponential backoff on error, grounded on
// DanielDucuara2018-btc-giftcard's internal/exchange/provider.go fetchJSON
// pattern (log-and-wrap on failure), extended here with retries.
func withRetry[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if attempt >= maxRetries {
			logger.Error("chainclient: retries exhausted", zap.String("op", op), zap.Int("attempts", attempt), zap.Error(err))
			return zero, err
		}

		logger.Warn("chainclient: transient failure, retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
