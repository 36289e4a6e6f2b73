package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type flakyProcessor struct {
	failures int
	charges  int
}

func (p *flakyProcessor) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	p.charges++
	if p.charges <= p.failures {
		return Result{}, errors.New("transient")
	}
	return Result{ExternalID: "ch_ok"}, nil
}

func (p *flakyProcessor) Transfer(ctx context.Context, req TransferRequest) (Result, error) {
	return Result{}, errors.New("transient")
}

func TestRetryingRecoversFromTransientFailure(t *testing.T) {
	inner := &flakyProcessor{failures: 2}
	retrying := NewRetrying(inner, zaptest.NewLogger(t), nil, time.Second, 3)

	result, err := retrying.Charge(context.Background(), ChargeRequest{
		IdempotencyKey:  "key-1",
		PaymentMethodID: "pm_1",
		AmountCents:     1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "ch_ok", result.ExternalID)
	assert.Equal(t, 3, inner.charges)
}

func TestRetryingExhaustsAttempts(t *testing.T) {
	inner := &flakyProcessor{failures: 10}
	retrying := NewRetrying(inner, zaptest.NewLogger(t), nil, time.Second, 2)

	_, err := retrying.Charge(context.Background(), ChargeRequest{
		IdempotencyKey:  "key-1",
		PaymentMethodID: "pm_1",
		AmountCents:     1000,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProcessorFailure)
	assert.Equal(t, 2, inner.charges)
}

func TestRetryingStopsOnCancelledContext(t *testing.T) {
	inner := &flakyProcessor{failures: 10}
	retrying := NewRetrying(inner, zaptest.NewLogger(t), nil, time.Second, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retrying.Charge(ctx, ChargeRequest{
		IdempotencyKey:  "key-1",
		PaymentMethodID: "pm_1",
		AmountCents:     1000,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProcessorFailure)
	assert.Equal(t, 1, inner.charges)
}

func TestStubDeterministicExternalIDs(t *testing.T) {
	stub := NewStub(zaptest.NewLogger(t))

	first, err := stub.Charge(context.Background(), ChargeRequest{
		IdempotencyKey:  "key-1",
		PaymentMethodID: "pm_1",
		AmountCents:     1000,
	})
	require.NoError(t, err)
	second, err := stub.Charge(context.Background(), ChargeRequest{
		IdempotencyKey:  "key-1",
		PaymentMethodID: "pm_1",
		AmountCents:     1000,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ExternalID, second.ExternalID)

	_, err = stub.Charge(context.Background(), ChargeRequest{IdempotencyKey: "key-2"})
	assert.ErrorIs(t, err, ErrProcessorFailure)
}
