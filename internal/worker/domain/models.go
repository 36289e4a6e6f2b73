package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentPreference controls when a worker's pending earnings are paid out.
type PaymentPreference string

const (
	PaymentPreferencePerJob   PaymentPreference = "per_job"
	PaymentPreferenceWeekly   PaymentPreference = "weekly"
	PaymentPreferenceBiWeekly PaymentPreference = "bi_weekly"
)

func (p PaymentPreference) Valid() bool {
	switch p {
	case PaymentPreferencePerJob, PaymentPreferenceWeekly, PaymentPreferenceBiWeekly:
		return true
	default:
		return false
	}
}

type Worker struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID         snowflake.ID      `gorm:"not null;index" json:"company_id"`
	Name              string            `gorm:"not null" json:"name"`
	Email             string            `gorm:"not null" json:"email"`
	HourlyRateCents   int64             `gorm:"not null" json:"hourly_rate_cents"`
	PaymentPreference PaymentPreference `gorm:"type:text;not null;default:'weekly'" json:"payment_preference"`
	PayoutAccountID   string            `gorm:"column:payout_account_id" json:"payout_account_id,omitempty"`
	Active            bool              `gorm:"not null;default:true" json:"active"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Worker) TableName() string { return "workers" }
