package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/timesheet/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.TimeEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, entry *domain.TimeEntry) error {
	return db.WithContext(ctx).Save(entry).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.TimeEntry, error) {
	var entry domain.TimeEntry
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) FindActiveForWorker(ctx context.Context, db *gorm.DB, companyID, appointmentID, workerID snowflake.ID) (*domain.TimeEntry, error) {
	var entry domain.TimeEntry
	err := db.WithContext(ctx).
		Where("company_id = ? AND scheduled_appointment_id = ? AND worker_id = ? AND clock_out_time IS NULL",
			companyID, appointmentID, workerID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) ListForAppointment(ctx context.Context, db *gorm.DB, companyID, appointmentID snowflake.ID, status domain.PaymentStatus) ([]domain.TimeEntry, error) {
	var entries []domain.TimeEntry
	stmt := db.WithContext(ctx).
		Where("company_id = ? AND scheduled_appointment_id = ?", companyID, appointmentID)
	if status != "" {
		stmt = stmt.Where("payment_status = ?", status)
	}
	err := stmt.Order("clock_in_time asc, id asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListForWorkerInRange(ctx context.Context, db *gorm.DB, companyID, workerID snowflake.ID, status domain.PaymentStatus, start, end time.Time) ([]domain.TimeEntry, error) {
	var entries []domain.TimeEntry
	stmt := db.WithContext(ctx).
		Where("company_id = ? AND worker_id = ?", companyID, workerID).
		Where("clock_in_time >= ? AND clock_in_time <= ?", start, end)
	if status != "" {
		stmt = stmt.Where("payment_status = ?", status)
	}
	err := stmt.Order("clock_in_time asc, id asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListScheduledWorkers(ctx context.Context, db *gorm.DB, companyID snowflake.ID, end time.Time) ([]snowflake.ID, error) {
	var workerIDs []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.TimeEntry{}).
		Distinct("worker_id").
		Where("company_id = ? AND payment_status = ? AND clock_in_time <= ?",
			companyID, domain.PaymentStatusScheduled, end).
		Pluck("worker_id", &workerIDs).Error
	if err != nil {
		return nil, err
	}
	return workerIDs, nil
}

func (r *repo) MarkStatus(ctx context.Context, db *gorm.DB, companyID snowflake.ID, ids []snowflake.ID, status domain.PaymentStatus, payoutTransactionID *snowflake.ID, updatedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	updates := map[string]any{
		"payment_status": string(status),
		"updated_at":     updatedAt,
	}
	if payoutTransactionID != nil {
		updates["payout_transaction_id"] = *payoutTransactionID
	}
	return db.WithContext(ctx).
		Model(&domain.TimeEntry{}).
		Where("company_id = ? AND id IN ?", companyID, ids).
		Updates(updates).Error
}

func (r *repo) MarkPaidByPayout(ctx context.Context, db *gorm.DB, companyID, payoutTransactionID snowflake.ID, updatedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.TimeEntry{}).
		Where("company_id = ? AND payout_transaction_id = ?", companyID, payoutTransactionID).
		Updates(map[string]any{
			"payment_status": string(domain.PaymentStatusPaid),
			"updated_at":     updatedAt,
		}).Error
}

func (r *repo) ListCompaniesWithScheduled(ctx context.Context, db *gorm.DB, end time.Time) ([]snowflake.ID, error) {
	var companyIDs []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.TimeEntry{}).
		Distinct("company_id").
		Where("payment_status = ? AND clock_in_time <= ?", domain.PaymentStatusScheduled, end).
		Pluck("company_id", &companyIDs).Error
	if err != nil {
		return nil, err
	}
	return companyIDs, nil
}
