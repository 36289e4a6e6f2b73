package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/ledger/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, transaction *domain.PaymentTransaction) error {
	return db.WithContext(ctx).Create(transaction).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.PaymentTransaction, error) {
	return r.find(ctx, db, companyID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.PaymentTransaction, error) {
	return r.find(ctx, db, companyID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, lock bool) (*domain.PaymentTransaction, error) {
	stmt := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id)
	if lock {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var transaction domain.PaymentTransaction
	if err := stmt.First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, status domain.Status, externalID, failureReason string, updatedAt time.Time) error {
	updates := map[string]any{
		"status":     string(status),
		"updated_at": updatedAt,
	}
	if externalID != "" {
		updates["external_id"] = externalID
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}
	return db.WithContext(ctx).
		Model(&domain.PaymentTransaction{}).
		Where("company_id = ? AND id = ?", companyID, id).
		Updates(updates).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter domain.ListFilter, p pagination.Pagination) ([]*domain.PaymentTransaction, error) {
	limit := p.PageSize
	if limit <= 0 {
		limit = 50
	}

	stmt := db.WithContext(ctx).
		Where("company_id = ?", companyID)
	if filter.TransactionType != "" {
		stmt = stmt.Where("transaction_type = ?", filter.TransactionType)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.WorkerID != 0 {
		stmt = stmt.Where("worker_id = ?", filter.WorkerID)
	}
	if filter.AppointmentID != 0 {
		stmt = stmt.Where("appointment_id = ?", filter.AppointmentID)
	}
	if !filter.From.IsZero() {
		stmt = stmt.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("created_at <= ?", filter.To)
	}

	if p.PageToken != "" {
		cursor, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var transactions []*domain.PaymentTransaction
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.PaymentTransactionEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, companyID, transactionID snowflake.ID) ([]domain.PaymentTransactionEvent, error) {
	var events []domain.PaymentTransactionEvent
	err := db.WithContext(ctx).
		Where("company_id = ? AND transaction_id = ?", companyID, transactionID).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
