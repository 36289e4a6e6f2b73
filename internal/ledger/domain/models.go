package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type TransactionType string

const (
	TypeCustomerPayment TransactionType = "customer_payment"
	TypeWorkerPayout    TransactionType = "worker_payout"
	TypeRefund          TransactionType = "refund"
	TypeChargeback      TransactionType = "chargeback"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeCustomerPayment, TypeWorkerPayout, TypeRefund, TypeChargeback:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
	StatusDisputed  Status = "disputed"
)

// CanTransition encodes the status machine. Monotonic except
// disputed -> refunded.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusSucceeded || to == StatusFailed
	case StatusSucceeded:
		return to == StatusRefunded || to == StatusDisputed
	case StatusDisputed:
		return to == StatusRefunded
	}
	return false
}

// PaymentTransaction is one ledger row. Rows are append-mostly: after a
// terminal status the only permitted change arrives as a NEW refund or
// chargeback row, with the original's status updated as a projection of
// its event stream.
type PaymentTransaction struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID         snowflake.ID      `gorm:"not null;index" json:"company_id"`
	TransactionType   TransactionType   `gorm:"type:text;not null;index" json:"transaction_type"`
	Status            Status            `gorm:"type:text;not null;default:'pending';index" json:"status"`
	GrossAmountCents  int64             `gorm:"not null" json:"gross_amount_cents"`
	PlatformFeeCents  int64             `gorm:"not null;default:0" json:"platform_fee_cents"`
	ProcessorFeeCents int64             `gorm:"not null;default:0" json:"processor_fee_cents"`
	NetAmountCents    int64             `gorm:"not null" json:"net_amount_cents"`
	IsDeposit         bool              `gorm:"not null;default:false" json:"is_deposit"`
	IsFinalPayment    bool              `gorm:"not null;default:false" json:"is_final_payment"`
	CustomerID        *snowflake.ID     `gorm:"index" json:"customer_id,omitempty"`
	WorkerID          *snowflake.ID     `gorm:"index" json:"worker_id,omitempty"`
	AppointmentID     *snowflake.ID     `gorm:"index" json:"appointment_id,omitempty"`
	TimeEntryID       *snowflake.ID     `json:"time_entry_id,omitempty"`
	// OriginalTransactionID links a refund or chargeback back to the row
	// it reverses.
	OriginalTransactionID *snowflake.ID     `gorm:"index" json:"original_transaction_id,omitempty"`
	PaymentMethodID       string            `json:"payment_method_id,omitempty"`
	PayoutAccountID       string            `json:"payout_account_id,omitempty"`
	IdempotencyKey        string            `gorm:"uniqueIndex" json:"idempotency_key"`
	ExternalID            string            `json:"external_id,omitempty"`
	FailureReason         string            `json:"failure_reason,omitempty"`
	Metadata              datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }

func (t PaymentTransaction) Terminal() bool {
	switch t.Status {
	case StatusSucceeded, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// EventType labels entries in the append-only transaction event stream.
type EventType string

const (
	EventCreated  EventType = "created"
	EventSettled  EventType = "settled"
	EventRefunded EventType = "refunded"
	EventDisputed EventType = "disputed"
)

// PaymentTransactionEvent is the append-only audit stream behind each
// transaction. The transaction's Status column is a projection of the
// latest event, kept for query convenience.
type PaymentTransactionEvent struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"not null;index" json:"company_id"`
	TransactionID snowflake.ID `gorm:"not null;index" json:"transaction_id"`
	EventType     EventType    `gorm:"type:text;not null" json:"event_type"`
	FromStatus    Status       `gorm:"type:text" json:"from_status"`
	ToStatus      Status       `gorm:"type:text;not null" json:"to_status"`
	Reason        string       `json:"reason,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PaymentTransactionEvent) TableName() string { return "payment_transaction_events" }
