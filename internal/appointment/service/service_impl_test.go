package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/helprs/fieldpay/internal/appointment/domain"
	"github.com/helprs/fieldpay/internal/appointment/repository"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/tenantctx"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	timesheetrepo "github.com/helprs/fieldpay/internal/timesheet/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:appointment_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Appointment{}, &timesheetdomain.TimeEntry{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	svc := &Service{
		db:        db,
		log:       zaptest.NewLogger(t),
		genID:     node,
		clock:     clock.NewFakeClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)),
		repo:      repository.Provide(),
		timesheet: timesheetrepo.Provide(),
	}
	return svc, node
}

func TestCreateAppointment(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	customerID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	appointment, err := svc.Create(ctx, domain.CreateAppointmentRequest{
		CustomerID:         customerID.String(),
		StartTime:          start,
		EndTime:            start.Add(3 * time.Hour),
		EstimatedCostCents: 45000,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusScheduled, appointment.Status)
	assert.Equal(t, domain.FinalPaymentPending, appointment.FinalPaymentStatus)
	assert.Equal(t, int64(180), appointment.DurationMinutes)
	assert.False(t, appointment.DepositPaid)
	assert.Nil(t, appointment.ActualCostCents)

	t.Run("schedule validation", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateAppointmentRequest{
			CustomerID:         customerID.String(),
			StartTime:          start,
			EndTime:            start.Add(-time.Hour),
			EstimatedCostCents: 100,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
	})

	t.Run("estimate validation", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateAppointmentRequest{
			CustomerID: customerID.String(),
			StartTime:  start,
			EndTime:    start.Add(time.Hour),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidEstimate)
	})
}

func TestUpdateStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appointment, err := svc.Create(ctx, domain.CreateAppointmentRequest{
		CustomerID:         node.Generate().String(),
		StartTime:          start,
		EndTime:            start.Add(time.Hour),
		EstimatedCostCents: 10000,
	})
	require.NoError(t, err)

	t.Run("scheduled cannot jump to completed", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
			ID:     appointment.ID.String(),
			Status: string(domain.StatusCompleted),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	for _, next := range []domain.Status{
		domain.StatusConfirmed,
		domain.StatusInProgress,
		domain.StatusCompleted,
	} {
		updated, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
			ID:     appointment.ID.String(),
			Status: string(next),
		})
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	t.Run("completed is terminal", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
			ID:     appointment.ID.String(),
			Status: string(domain.StatusCancelled),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
			ID:     appointment.ID.String(),
			Status: "archived",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})
}

func TestCancellation(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appointment, err := svc.Create(ctx, domain.CreateAppointmentRequest{
		CustomerID:         node.Generate().String(),
		StartTime:          start,
		EndTime:            start.Add(time.Hour),
		EstimatedCostCents: 10000,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		ID:     appointment.ID.String(),
		Status: string(domain.StatusCancelled),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)

	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		ID:     appointment.ID.String(),
		Status: string(domain.StatusConfirmed),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestResolveActualCost(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appointment, err := svc.Create(ctx, domain.CreateAppointmentRequest{
		CustomerID:         node.Generate().String(),
		StartTime:          start,
		EndTime:            start.Add(8 * time.Hour),
		EstimatedCostCents: 100000,
	})
	require.NoError(t, err)

	seed := func(hours float64, rateCents int64, status timesheetdomain.PaymentStatus) {
		clockOut := start.Add(time.Duration(hours * float64(time.Hour)))
		entry := timesheetdomain.TimeEntry{
			ID:               node.Generate(),
			CompanyID:        companyID,
			AppointmentID:    appointment.ID,
			WorkerID:         node.Generate(),
			ClockInTime:      start,
			ClockOutTime:     &clockOut,
			HoursWorked:      &hours,
			HourlyRateCents:  rateCents,
			TotalAmountCents: int64(hours * float64(rateCents)),
			PaymentStatus:    status,
			CreatedAt:        start,
			UpdatedAt:        start,
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	seed(5, 2000, timesheetdomain.PaymentStatusPending)
	seed(3, 2500, timesheetdomain.PaymentStatusPending)
	// Already-paid labor never re-enters the bill.
	seed(4, 2000, timesheetdomain.PaymentStatusPaid)

	resolution, err := svc.ResolveActualCost(ctx, appointment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 8.0, resolution.TotalHours)
	assert.Equal(t, int64(17500), resolution.TotalAmountCents)

	t.Run("settled appointment refuses resolution", func(t *testing.T) {
		require.NoError(t, db.Model(&domain.Appointment{ID: appointment.ID}).
			Update("final_payment_status", domain.FinalPaymentPaid).Error)
		_, err := svc.ResolveActualCost(ctx, appointment.ID.String())
		assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	})
}
