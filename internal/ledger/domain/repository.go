package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	TransactionType TransactionType
	Status          Status
	CustomerID      snowflake.ID
	WorkerID        snowflake.ID
	AppointmentID   snowflake.ID
	From            time.Time
	To              time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, transaction *PaymentTransaction) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*PaymentTransaction, error)
	// FindByIDForUpdate locks the row for a settle or refund sequence.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*PaymentTransaction, error)
	// UpdateStatus projects the latest event onto the transaction row.
	UpdateStatus(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, status Status, externalID, failureReason string, updatedAt time.Time) error
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter ListFilter, p pagination.Pagination) ([]*PaymentTransaction, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *PaymentTransactionEvent) error
	ListEvents(ctx context.Context, db *gorm.DB, companyID, transactionID snowflake.ID) ([]PaymentTransactionEvent, error)
}
