package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type UpdateSettingsRequest struct {
	PlatformFeeBPS *int64
	PayoutSchedule *string
	AutoPayWorkers *bool
}

type Service interface {
	// Get returns the active company's settings, falling back to defaults
	// when no row exists yet.
	Get(ctx context.Context) (PaymentSettings, error)
	// GetForCompany is the tenant-free variant used by batch jobs.
	GetForCompany(ctx context.Context, companyID snowflake.ID) (PaymentSettings, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (PaymentSettings, error)
}

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*PaymentSettings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *PaymentSettings) error
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidFeeBPS   = errors.New("invalid_platform_fee")
	ErrInvalidSchedule = errors.New("invalid_payout_schedule")
)
