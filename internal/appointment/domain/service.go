package domain

import (
	"context"
	"errors"
	"time"

	"github.com/helprs/fieldpay/pkg/db/pagination"
)

type CreateAppointmentRequest struct {
	CustomerID         string
	ScheduledDate      time.Time
	StartTime          time.Time
	EndTime            time.Time
	EstimatedCostCents int64
}

type GetAppointmentRequest struct {
	ID string
}

type ListAppointmentRequest struct {
	CustomerID string
	Status     string
	PageToken  string
	PageSize   int32
}

type ListAppointmentResponse struct {
	Appointments []Appointment       `json:"appointments"`
	PageInfo     pagination.PageInfo `json:"page_info"`
}

type UpdateStatusRequest struct {
	ID     string
	Status string
}

// CostResolution is the aggregate of an appointment's pending labor.
type CostResolution struct {
	AppointmentID    string  `json:"appointment_id"`
	TotalHours       float64 `json:"total_hours"`
	TotalAmountCents int64   `json:"total_amount_cents"`
}

type Service interface {
	Create(context.Context, CreateAppointmentRequest) (Appointment, error)
	GetByID(context.Context, GetAppointmentRequest) (Appointment, error)
	List(context.Context, ListAppointmentRequest) (ListAppointmentResponse, error)
	UpdateStatus(context.Context, UpdateStatusRequest) (Appointment, error)
	// ResolveActualCost aggregates the appointment's pending time entries.
	// It does not persist; the approval workflow owns the write.
	ResolveActualCost(ctx context.Context, appointmentID string) (CostResolution, error)
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidSchedule   = errors.New("invalid_schedule")
	ErrInvalidEstimate   = errors.New("invalid_estimate")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrNotFound          = errors.New("not_found")
	ErrAlreadySettled    = errors.New("already_settled")
)
