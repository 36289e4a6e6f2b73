package domain

import (
	"context"
	"errors"

	"github.com/helprs/fieldpay/pkg/db/pagination"
)

type CreateWorkerRequest struct {
	Name              string
	Email             string
	HourlyRateCents   int64
	PaymentPreference string
	PayoutAccountID   string
}

type GetWorkerRequest struct {
	ID string
}

type ListWorkerRequest struct {
	PageToken string
	PageSize  int32
}

type ListWorkerResponse struct {
	pagination.PageInfo
	Workers []Worker `json:"workers"`
}

type UpdatePreferenceRequest struct {
	ID         string
	Preference string
}

type Service interface {
	Create(context.Context, CreateWorkerRequest) (Worker, error)
	GetByID(context.Context, GetWorkerRequest) (Worker, error)
	List(context.Context, ListWorkerRequest) (ListWorkerResponse, error)
	UpdatePreference(context.Context, UpdatePreferenceRequest) (Worker, error)
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidRate       = errors.New("invalid_hourly_rate")
	ErrInvalidPreference = errors.New("invalid_payment_preference")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)
