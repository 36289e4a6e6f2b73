package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, worker *Worker) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Worker, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, page pagination.Pagination) ([]*Worker, error)
	UpdatePreference(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, preference PaymentPreference, updatedAt time.Time) error
}
