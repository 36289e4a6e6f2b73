package processor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Stub stands in for the real card processor in development and tests.
// It derives a deterministic external ID from the idempotency key so
// retries observe the same outcome.
type Stub struct {
	log *zap.Logger
}

func NewStub(log *zap.Logger) *Stub {
	return &Stub{log: log.Named("processor.stub")}
}

func (s *Stub) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	if req.PaymentMethodID == "" || req.AmountCents <= 0 {
		return Result{}, ErrProcessorFailure
	}
	s.log.Debug("stub charge",
		zap.String("payment_method_id", req.PaymentMethodID),
		zap.Int64("amount_cents", req.AmountCents),
	)
	return Result{ExternalID: fmt.Sprintf("ch_%s", req.IdempotencyKey)}, nil
}

func (s *Stub) Transfer(ctx context.Context, req TransferRequest) (Result, error) {
	if req.PayoutAccountID == "" || req.AmountCents <= 0 {
		return Result{}, ErrProcessorFailure
	}
	s.log.Debug("stub transfer",
		zap.String("payout_account_id", req.PayoutAccountID),
		zap.Int64("amount_cents", req.AmountCents),
	)
	return Result{ExternalID: fmt.Sprintf("tr_%s", req.IdempotencyKey)}, nil
}
