package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"gorm.io/gorm"
)

// RecordRequest carries the fields to append a new ledger row. Required
// references depend on the transaction type: customer payments need a
// customer and an appointment, worker payouts need a worker, refunds and
// chargebacks need the original transaction.
type RecordRequest struct {
	TransactionType   TransactionType
	GrossAmountCents  int64
	PlatformFeeBPS    int64
	IsDeposit         bool
	IsFinalPayment    bool
	CustomerID        snowflake.ID
	WorkerID          snowflake.ID
	AppointmentID     snowflake.ID
	TimeEntryID       snowflake.ID
	OriginalID        snowflake.ID
	PaymentMethodID   string
	PayoutAccountID   string
}

type SettleOutcome string

const (
	OutcomeSucceeded SettleOutcome = "succeeded"
	OutcomeFailed    SettleOutcome = "failed"
)

type SettleRequest struct {
	TransactionID snowflake.ID
	Outcome       SettleOutcome
	ExternalID    string
	FailureReason string
}

type RefundRequest struct {
	TransactionID    snowflake.ID
	GrossAmountCents int64
	Reason           string
}

type ListTransactionsRequest struct {
	TransactionType string
	Status          string
	CustomerID      string
	WorkerID        string
	AppointmentID   string
	From            time.Time
	To              time.Time
	PageToken       string
	PageSize        int32
}

type ListTransactionsResponse struct {
	Transactions []PaymentTransaction `json:"transactions"`
	PageInfo     pagination.PageInfo  `json:"page_info"`
}

// Service is the payment transaction ledger. Record appends a pending
// row; Settle is the only permitted post-creation mutation. The Tx
// variants run against a caller-held transaction so the ledger write and
// the business state it gates commit together.
type Service interface {
	Record(ctx context.Context, req RecordRequest) (PaymentTransaction, error)
	RecordTx(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, req RecordRequest) (PaymentTransaction, error)
	Settle(ctx context.Context, req SettleRequest) (PaymentTransaction, error)
	SettleTx(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, req SettleRequest) (PaymentTransaction, error)
	// Refund appends a refund row against a succeeded transaction and
	// projects the original's status to refunded.
	Refund(ctx context.Context, req RefundRequest) (PaymentTransaction, error)
	// Dispute appends a chargeback row and projects disputed onto the
	// original. Resolution is out of band.
	Dispute(ctx context.Context, req RefundRequest) (PaymentTransaction, error)
	GetByID(ctx context.Context, id string) (PaymentTransaction, error)
	List(ctx context.Context, req ListTransactionsRequest) (ListTransactionsResponse, error)
	ListEvents(ctx context.Context, transactionID string) ([]PaymentTransactionEvent, error)
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidType       = errors.New("invalid_transaction_type")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidFlags      = errors.New("invalid_payment_flags")
	ErrMissingReference  = errors.New("missing_reference")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrNotRefundable     = errors.New("not_refundable")
	ErrNegativeNet       = errors.New("negative_net_amount")
)
