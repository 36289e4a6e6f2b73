package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, appointment *Appointment) error
	// Update persists every column of the appointment. Callers mutating
	// payment state should hold the row lock taken by FindByIDForUpdate.
	Update(ctx context.Context, db *gorm.DB, appointment *Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Appointment, error)
	// FindByIDForUpdate takes a row lock so multi-step payment sequences
	// are serialized per appointment. Only meaningful inside a transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Appointment, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter ListFilter, p pagination.Pagination) ([]*Appointment, error)
}

type ListFilter struct {
	CustomerID snowflake.ID
	Status     Status
}
