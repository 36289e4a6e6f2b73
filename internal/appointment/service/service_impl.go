package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/appointment/domain"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/tenantctx"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// transitions is the forward-only appointment status machine.
var transitions = map[domain.Status][]domain.Status{
	domain.StatusScheduled:  {domain.StatusConfirmed, domain.StatusCancelled},
	domain.StatusConfirmed:  {domain.StatusInProgress, domain.StatusCancelled},
	domain.StatusInProgress: {domain.StatusCompleted},
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Timesheet timesheetdomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	timesheet timesheetdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("appointment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		timesheet: p.Timesheet,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAppointmentRequest) (domain.Appointment, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.Appointment{}, domain.ErrInvalidCompany
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.Appointment{}, domain.ErrInvalidCustomer
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() || !req.EndTime.After(req.StartTime) {
		return domain.Appointment{}, domain.ErrInvalidSchedule
	}
	if req.EstimatedCostCents <= 0 {
		return domain.Appointment{}, domain.ErrInvalidEstimate
	}

	scheduledDate := req.ScheduledDate
	if scheduledDate.IsZero() {
		scheduledDate = req.StartTime.Truncate(24 * time.Hour)
	}

	now := s.clock.Now()
	appointment := domain.Appointment{
		ID:                 s.genID.Generate(),
		CompanyID:          companyID,
		CustomerID:         customerID,
		ScheduledDate:      scheduledDate,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		DurationMinutes:    int64(req.EndTime.Sub(req.StartTime) / time.Minute),
		Status:             domain.StatusScheduled,
		EstimatedCostCents: req.EstimatedCostCents,
		FinalPaymentStatus: domain.FinalPaymentPending,
		Metadata:           datatypes.JSONMap{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, &appointment); err != nil {
		return domain.Appointment{}, err
	}

	return appointment, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetAppointmentRequest) (domain.Appointment, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.Appointment{}, domain.ErrInvalidCompany
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.Appointment{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, companyID, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if item == nil {
		return domain.Appointment{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAppointmentRequest) (domain.ListAppointmentResponse, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.ListAppointmentResponse{}, domain.ErrInvalidCompany
	}

	filter := domain.ListFilter{}
	if customerID := strings.TrimSpace(req.CustomerID); customerID != "" {
		id, err := snowflake.ParseString(customerID)
		if err != nil || id == 0 {
			return domain.ListAppointmentResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = id
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = domain.Status(status)
		if !filter.Status.Valid() {
			return domain.ListAppointmentResponse{}, domain.ErrInvalidStatus
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, companyID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListAppointmentResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(appointment *domain.Appointment) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        appointment.ID.String(),
			CreatedAt: appointment.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	appointments := make([]domain.Appointment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		appointments = append(appointments, *item)
	}

	resp := domain.ListAppointmentResponse{Appointments: appointments}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Appointment, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.Appointment{}, domain.ErrInvalidCompany
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.Appointment{}, err
	}

	next := domain.Status(strings.TrimSpace(req.Status))
	if !next.Valid() {
		return domain.Appointment{}, domain.ErrInvalidStatus
	}

	var updated domain.Appointment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByIDForUpdate(ctx, tx, companyID, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		if !allowed(item.Status, next) {
			return domain.ErrInvalidTransition
		}

		item.Status = next
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}

		updated = *item
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.log.Info("appointment status updated",
		zap.String("appointment_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

func (s *Service) ResolveActualCost(ctx context.Context, appointmentID string) (domain.CostResolution, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.CostResolution{}, domain.ErrInvalidCompany
	}

	id, err := parseID(appointmentID)
	if err != nil {
		return domain.CostResolution{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, companyID, id)
	if err != nil {
		return domain.CostResolution{}, err
	}
	if item == nil {
		return domain.CostResolution{}, domain.ErrNotFound
	}
	if item.Settled() {
		return domain.CostResolution{}, domain.ErrAlreadySettled
	}

	entries, err := s.timesheet.ListForAppointment(ctx, s.db, companyID, id, timesheetdomain.PaymentStatusPending)
	if err != nil {
		return domain.CostResolution{}, err
	}

	totals := timesheetdomain.Aggregate(entries)
	return domain.CostResolution{
		AppointmentID:    id.String(),
		TotalHours:       totals.TotalHours,
		TotalAmountCents: totals.TotalAmountCents,
	}, nil
}

func allowed(from, to domain.Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
