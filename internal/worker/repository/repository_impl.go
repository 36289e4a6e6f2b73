package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/worker/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, worker *domain.Worker) error {
	return db.WithContext(ctx).Create(worker).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.Worker, error) {
	var worker domain.Worker
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&worker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &worker, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, page pagination.Pagination) ([]*domain.Worker, error) {
	var workers []*domain.Worker
	stmt := db.WithContext(ctx).
		Model(&domain.Worker{}).
		Where("company_id = ?", companyID)
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err == nil && cursor.CreatedAt != "" {
			stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&workers).Error
	if err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *repo) UpdatePreference(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, preference domain.PaymentPreference, updatedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Worker{}).
		Where("company_id = ? AND id = ?", companyID, id).
		Updates(map[string]any{
			"payment_preference": string(preference),
			"updated_at":         updatedAt,
		}).Error
}
