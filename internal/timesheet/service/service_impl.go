package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/tenantctx"
	"github.com/helprs/fieldpay/internal/timesheet/domain"
	workerdomain "github.com/helprs/fieldpay/internal/worker/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	Appointments appointmentdomain.Repository
	Workers      workerdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	appointments appointmentdomain.Repository
	workers      workerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("timesheet.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		appointments: p.Appointments,
		workers:      p.Workers,
	}
}

func (s *Service) ClockIn(ctx context.Context, req domain.ClockInRequest) (domain.TimeEntry, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.TimeEntry{}, domain.ErrInvalidCompany
	}

	appointmentID, err := parseID(req.AppointmentID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	workerID, err := parseID(req.WorkerID)
	if err != nil {
		return domain.TimeEntry{}, err
	}

	appointment, err := s.appointments.FindByID(ctx, s.db, companyID, appointmentID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if appointment == nil {
		return domain.TimeEntry{}, domain.ErrNotFound
	}
	if !appointment.Status.Clockable() {
		return domain.TimeEntry{}, domain.ErrEntryNotEditable
	}

	worker, err := s.workers.FindByID(ctx, s.db, companyID, workerID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if worker == nil || !worker.Active {
		return domain.TimeEntry{}, domain.ErrWorkerNotAssigned
	}

	active, err := s.repo.FindActiveForWorker(ctx, s.db, companyID, appointmentID, workerID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if active != nil {
		return domain.TimeEntry{}, domain.ErrAlreadyClockedIn
	}

	now := s.clock.Now()
	entry := domain.TimeEntry{
		ID:              s.genID.Generate(),
		CompanyID:       companyID,
		AppointmentID:   appointmentID,
		WorkerID:        workerID,
		ClockInTime:     now,
		HourlyRateCents: worker.HourlyRateCents,
		PaymentStatus:   domain.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		return domain.TimeEntry{}, err
	}

	s.log.Info("worker clocked in",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("worker_id", workerID.String()),
	)
	return entry, nil
}

func (s *Service) ClockOut(ctx context.Context, req domain.ClockOutRequest) (domain.TimeEntry, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.TimeEntry{}, domain.ErrInvalidCompany
	}

	appointmentID, err := parseID(req.AppointmentID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	workerID, err := parseID(req.WorkerID)
	if err != nil {
		return domain.TimeEntry{}, err
	}

	entry, err := s.repo.FindActiveForWorker(ctx, s.db, companyID, appointmentID, workerID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if entry == nil {
		return domain.TimeEntry{}, domain.ErrNotClockedIn
	}

	now := s.clock.Now()
	if !now.After(entry.ClockInTime) {
		return domain.TimeEntry{}, domain.ErrInvalidTimeRange
	}

	hours := roundHours(now.Sub(entry.ClockInTime))
	entry.ClockOutTime = &now
	entry.HoursWorked = &hours
	entry.TotalAmountCents = int64(math.Round(hours * float64(entry.HourlyRateCents)))
	entry.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, entry); err != nil {
		return domain.TimeEntry{}, err
	}

	s.log.Info("worker clocked out",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("worker_id", workerID.String()),
		zap.Float64("hours_worked", hours),
		zap.Int64("total_amount_cents", entry.TotalAmountCents),
	)
	return *entry, nil
}

func (s *Service) ListForAppointment(ctx context.Context, req domain.ListEntriesRequest) ([]domain.TimeEntry, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	appointmentID, err := parseID(req.AppointmentID)
	if err != nil {
		return nil, err
	}

	status := domain.PaymentStatus(strings.TrimSpace(req.Status))
	return s.repo.ListForAppointment(ctx, s.db, companyID, appointmentID, status)
}

func (s *Service) PendingForWorker(ctx context.Context, workerID string, start, end time.Time) ([]domain.TimeEntry, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	id, err := parseID(workerID)
	if err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, domain.ErrInvalidTimeRange
	}

	return s.repo.ListForWorkerInRange(ctx, s.db, companyID, id, domain.PaymentStatusPending, start, end)
}

// roundHours keeps worked time at two decimal places so displayed hours
// and the billed amount derive from the same figure.
func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
