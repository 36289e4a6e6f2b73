package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *TimeEntry) error
	Update(ctx context.Context, db *gorm.DB, entry *TimeEntry) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*TimeEntry, error)
	FindActiveForWorker(ctx context.Context, db *gorm.DB, companyID, appointmentID, workerID snowflake.ID) (*TimeEntry, error)
	ListForAppointment(ctx context.Context, db *gorm.DB, companyID, appointmentID snowflake.ID, status PaymentStatus) ([]TimeEntry, error)
	ListForWorkerInRange(ctx context.Context, db *gorm.DB, companyID, workerID snowflake.ID, status PaymentStatus, start, end time.Time) ([]TimeEntry, error)
	// ListScheduledWorkers returns the distinct worker IDs holding entries
	// in the given status for a company, for batch payout fan-out.
	ListScheduledWorkers(ctx context.Context, db *gorm.DB, companyID snowflake.ID, end time.Time) ([]snowflake.ID, error)
	// MarkStatus flips payment_status for the given entries and optionally
	// links the payout transaction.
	MarkStatus(ctx context.Context, db *gorm.DB, companyID snowflake.ID, ids []snowflake.ID, status PaymentStatus, payoutTransactionID *snowflake.ID, updatedAt time.Time) error
	// MarkPaidByPayout flips every entry linked to the payout transaction
	// to paid, used when the payout settles.
	MarkPaidByPayout(ctx context.Context, db *gorm.DB, companyID, payoutTransactionID snowflake.ID, updatedAt time.Time) error
	// ListCompaniesWithScheduled returns the companies holding entries
	// awaiting a batch payout.
	ListCompaniesWithScheduled(ctx context.Context, db *gorm.DB, end time.Time) ([]snowflake.ID, error)
}
