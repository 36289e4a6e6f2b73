package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PayoutSchedule is the company-wide default cadence for batch worker payouts.
type PayoutSchedule string

const (
	PayoutScheduleWeekly   PayoutSchedule = "weekly"
	PayoutScheduleBiWeekly PayoutSchedule = "bi_weekly"
)

func (s PayoutSchedule) Valid() bool {
	switch s {
	case PayoutScheduleWeekly, PayoutScheduleBiWeekly:
		return true
	default:
		return false
	}
}

// PaymentSettings is the per-tenant payment configuration.
type PaymentSettings struct {
	CompanyID      snowflake.ID   `gorm:"primaryKey" json:"company_id"`
	PlatformFeeBPS int64          `gorm:"not null" json:"platform_fee_bps"`
	PayoutSchedule PayoutSchedule `gorm:"type:text;not null;default:'weekly'" json:"payout_schedule"`
	AutoPayWorkers bool           `gorm:"not null;default:true" json:"auto_pay_workers"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PaymentSettings) TableName() string { return "company_payment_settings" }
