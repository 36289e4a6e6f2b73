package domain

import (
	"context"
	"errors"

	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
)

type ProcessDepositRequest struct {
	AppointmentID   string
	CustomerID      string
	AmountCents     int64
	PaymentMethodID string
}

type RequestApprovalRequest struct {
	AppointmentID string
}

type ApproveRequest struct {
	AppointmentID string
}

type ProcessFinalPaymentRequest struct {
	AppointmentID   string
	PaymentMethodID string
}

// PaymentOutcome couples the appointment after a workflow transition with
// the ledger row that gated it.
type PaymentOutcome struct {
	Appointment appointmentdomain.Appointment   `json:"appointment"`
	Transaction ledgerdomain.PaymentTransaction `json:"transaction"`
	// Payouts holds any per-job worker payouts triggered by a final
	// payment.
	Payouts []ledgerdomain.PaymentTransaction `json:"payouts,omitempty"`
}

// Service drives the appointment payment state machine:
// Completed -> AwaitingApproval -> Approved -> Paid, with the deposit
// handled independently at booking time.
type Service interface {
	ProcessDeposit(ctx context.Context, req ProcessDepositRequest) (PaymentOutcome, error)
	// RequestApproval resolves the actual cost from pending time entries,
	// persists it and notifies the customer. Re-invocable until the final
	// payment lands; each call recomputes the cost and supersedes any
	// earlier sign-off.
	RequestApproval(ctx context.Context, req RequestApprovalRequest) (appointmentdomain.Appointment, error)
	Approve(ctx context.Context, req ApproveRequest) (appointmentdomain.Appointment, error)
	// ProcessFinalPayment charges the approved amount. When the pending
	// entries no longer sum to the approved cost it fails with
	// ErrCostChanged and a fresh RequestApproval is required.
	ProcessFinalPayment(ctx context.Context, req ProcessFinalPaymentRequest) (PaymentOutcome, error)
}

var (
	ErrInvalidCompany       = errors.New("invalid_company")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrNotFound             = errors.New("not_found")
	ErrDepositAlreadyPaid   = errors.New("deposit_already_paid")
	ErrAppointmentCancelled = errors.New("appointment_cancelled")
	ErrNotCompleted         = errors.New("not_completed")
	ErrNotAwaitingApproval  = errors.New("not_awaiting_approval")
	ErrNotApproved          = errors.New("not_approved")
	ErrAlreadySettled       = errors.New("already_settled")
	ErrNothingToBill        = errors.New("nothing_to_bill")
	ErrCostChanged          = errors.New("approved_cost_changed")
)
