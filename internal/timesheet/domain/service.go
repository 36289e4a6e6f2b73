package domain

import (
	"context"
	"errors"
	"time"
)

type ClockInRequest struct {
	AppointmentID string
	WorkerID      string
}

type ClockOutRequest struct {
	AppointmentID string
	WorkerID      string
}

type ListEntriesRequest struct {
	AppointmentID string
	Status        string
}

type Service interface {
	ClockIn(context.Context, ClockInRequest) (TimeEntry, error)
	ClockOut(context.Context, ClockOutRequest) (TimeEntry, error)
	ListForAppointment(context.Context, ListEntriesRequest) ([]TimeEntry, error)
	// PendingForWorker returns pending entries for a worker within
	// [start, end], used by payout aggregation.
	PendingForWorker(ctx context.Context, workerID string, start, end time.Time) ([]TimeEntry, error)
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrAlreadyClockedIn  = errors.New("already_clocked_in")
	ErrNotClockedIn      = errors.New("not_clocked_in")
	ErrEntryNotEditable  = errors.New("entry_not_editable")
	ErrInvalidTimeRange  = errors.New("invalid_time_range")
	ErrWorkerNotAssigned = errors.New("worker_not_assigned")
)
