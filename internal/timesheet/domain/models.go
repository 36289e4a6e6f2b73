package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentStatus tracks a time entry through the payout pipeline.
// pending: earned, not yet settled with the customer.
// scheduled: customer paid, queued for the worker's next payout.
// paid: payout transaction succeeded.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusScheduled PaymentStatus = "scheduled"
	PaymentStatusPaid      PaymentStatus = "paid"
)

// TimeEntry is one worker's logged labor on one appointment. The hourly
// rate is snapshotted at clock-in so later rate changes never reprice
// historical work, and TotalAmountCents is immutable once the entry
// leaves pending.
type TimeEntry struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID           snowflake.ID  `gorm:"not null;index" json:"company_id"`
	AppointmentID       snowflake.ID  `gorm:"column:scheduled_appointment_id;not null;index" json:"scheduled_appointment_id"`
	WorkerID            snowflake.ID  `gorm:"not null;index" json:"worker_id"`
	ClockInTime         time.Time     `gorm:"not null" json:"clock_in_time"`
	ClockOutTime        *time.Time    `json:"clock_out_time,omitempty"`
	HoursWorked         *float64      `json:"hours_worked,omitempty"`
	HourlyRateCents     int64         `gorm:"not null" json:"hourly_rate_cents"`
	TotalAmountCents    int64         `gorm:"not null;default:0" json:"total_amount_cents"`
	PaymentStatus       PaymentStatus `gorm:"type:text;not null;default:'pending';index" json:"payment_status"`
	PayoutTransactionID *snowflake.ID `gorm:"index" json:"payout_transaction_id,omitempty"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TimeEntry) TableName() string { return "time_entries" }

// Active reports whether the worker is still clocked in.
func (e TimeEntry) Active() bool { return e.ClockOutTime == nil }
