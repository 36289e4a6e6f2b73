package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Clockable reports whether workers may log time against the appointment.
func (s Status) Clockable() bool {
	switch s {
	case StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// FinalPaymentStatus tracks settlement of the post-completion balance.
// Forward-only: pending -> approved -> paid, with pending/approved -> disputed
// as the side branch.
type FinalPaymentStatus string

const (
	FinalPaymentPending  FinalPaymentStatus = "pending"
	FinalPaymentApproved FinalPaymentStatus = "approved"
	FinalPaymentPaid     FinalPaymentStatus = "paid"
	FinalPaymentDisputed FinalPaymentStatus = "disputed"
)

type Appointment struct {
	ID                        snowflake.ID       `gorm:"primaryKey" json:"id"`
	CompanyID                 snowflake.ID       `gorm:"not null;index" json:"company_id"`
	CustomerID                snowflake.ID       `gorm:"not null;index" json:"customer_id"`
	ScheduledDate             time.Time          `gorm:"not null" json:"scheduled_date"`
	StartTime                 time.Time          `gorm:"not null" json:"start_time"`
	EndTime                   time.Time          `gorm:"not null" json:"end_time"`
	DurationMinutes           int64              `gorm:"not null" json:"duration_minutes"`
	Status                    Status             `gorm:"type:text;not null;default:'scheduled';index" json:"status"`
	EstimatedCostCents        int64              `gorm:"not null" json:"estimated_cost_cents"`
	ActualCostCents           *int64             `json:"actual_cost_cents,omitempty"`
	DepositPaid               bool               `gorm:"not null;default:false" json:"deposit_paid"`
	DepositTransactionID      *snowflake.ID      `json:"deposit_transaction_id,omitempty"`
	FinalPaymentStatus        FinalPaymentStatus `gorm:"type:text;not null;default:'pending'" json:"final_payment_status"`
	FinalPaymentTransactionID *snowflake.ID      `json:"final_payment_transaction_id,omitempty"`
	CustomerApprovedHours     bool               `gorm:"not null;default:false" json:"customer_approved_hours"`
	CustomerApprovedAt        *time.Time         `json:"customer_approved_at,omitempty"`
	Metadata                  datatypes.JSONMap  `gorm:"type:jsonb" json:"metadata"`
	CreatedAt                 time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                 time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Appointment) TableName() string { return "scheduled_appointments" }

// Settled reports whether the final balance has been collected. Cost
// resolution must refuse to run past this point.
func (a Appointment) Settled() bool { return a.FinalPaymentStatus == FinalPaymentPaid }
