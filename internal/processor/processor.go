// Package processor abstracts the external card-processing collaborator.
// Calls are fallible network operations; the retrying decorator wraps the
// stub with a timeout and bounded retries reusing the same idempotency
// key, so a retried charge can never double-bill.
package processor

import (
	"context"
	"errors"
)

var ErrProcessorFailure = errors.New("processor_failure")

type ChargeRequest struct {
	IdempotencyKey  string
	PaymentMethodID string
	AmountCents     int64
}

type TransferRequest struct {
	IdempotencyKey  string
	PayoutAccountID string
	AmountCents     int64
}

type Result struct {
	ExternalID string
}

type Processor interface {
	// Charge bills a customer payment method.
	Charge(ctx context.Context, req ChargeRequest) (Result, error)
	// Transfer moves a payout to a worker's account.
	Transfer(ctx context.Context, req TransferRequest) (Result, error)
}
