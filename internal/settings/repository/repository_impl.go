package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*domain.PaymentSettings, error) {
	var settings domain.PaymentSettings
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, settings *domain.PaymentSettings) error {
	// The column defaults make gorm drop zero-value fields from the
	// insert; the explicit Select keeps auto_pay_workers=false intact on
	// a company's first write.
	return db.WithContext(ctx).
		Select("company_id", "platform_fee_bps", "payout_schedule", "auto_pay_workers", "created_at", "updated_at").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"platform_fee_bps",
				"payout_schedule",
				"auto_pay_workers",
				"updated_at",
			}),
		}).
		Create(settings).Error
}
