package processor

import (
	"context"
	"errors"
	"time"

	"github.com/helprs/fieldpay/internal/observability/metrics"
	"go.uber.org/zap"
)

// Retrying wraps a Processor with a per-attempt timeout and bounded
// retries. The caller's idempotency key is passed through unchanged on
// every attempt.
type Retrying struct {
	inner       Processor
	log         *zap.Logger
	metrics     *metrics.Metrics
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

func NewRetrying(inner Processor, log *zap.Logger, m *metrics.Metrics, timeout time.Duration, maxAttempts int) *Retrying {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Retrying{
		inner:       inner,
		log:         log.Named("processor.retry"),
		metrics:     m,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		backoff:     200 * time.Millisecond,
	}
}

func (r *Retrying) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	return r.do(ctx, "charge", func(attemptCtx context.Context) (Result, error) {
		return r.inner.Charge(attemptCtx, req)
	})
}

func (r *Retrying) Transfer(ctx context.Context, req TransferRequest) (Result, error) {
	return r.do(ctx, "transfer", func(attemptCtx context.Context) (Result, error) {
		return r.inner.Transfer(attemptCtx, req)
	})
}

func (r *Retrying) do(ctx context.Context, operation string, call func(context.Context) (Result, error)) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		result, err := call(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		r.metrics.RecordProcessorFailure(ctx, operation)
		r.log.Warn("processor call failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
		if attempt < r.maxAttempts {
			select {
			case <-ctx.Done():
				return Result{}, errors.Join(ErrProcessorFailure, ctx.Err())
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}
	}
	return Result{}, errors.Join(ErrProcessorFailure, lastErr)
}
