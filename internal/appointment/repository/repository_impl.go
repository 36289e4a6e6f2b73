package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/appointment/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, appointment *domain.Appointment) error {
	return db.WithContext(ctx).Create(appointment).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, appointment *domain.Appointment) error {
	return db.WithContext(ctx).Save(appointment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.Appointment, error) {
	return r.find(ctx, db, companyID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.Appointment, error) {
	return r.find(ctx, db, companyID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, lock bool) (*domain.Appointment, error) {
	stmt := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id)
	if lock {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var appointment domain.Appointment
	if err := stmt.First(&appointment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter domain.ListFilter, p pagination.Pagination) ([]*domain.Appointment, error) {
	limit := p.PageSize
	if limit <= 0 {
		limit = 50
	}

	stmt := db.WithContext(ctx).
		Where("company_id = ?", companyID)
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	if p.PageToken != "" {
		cursor, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var appointments []*domain.Appointment
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}
