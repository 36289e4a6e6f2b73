package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
}
