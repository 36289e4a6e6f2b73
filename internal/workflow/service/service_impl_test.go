package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	appointmentrepo "github.com/helprs/fieldpay/internal/appointment/repository"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/config"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
	ledgerrepo "github.com/helprs/fieldpay/internal/ledger/repository"
	ledgerservice "github.com/helprs/fieldpay/internal/ledger/service"
	payoutservice "github.com/helprs/fieldpay/internal/payout/service"
	"github.com/helprs/fieldpay/internal/processor"
	settingsdomain "github.com/helprs/fieldpay/internal/settings/domain"
	settingsrepo "github.com/helprs/fieldpay/internal/settings/repository"
	settingsservice "github.com/helprs/fieldpay/internal/settings/service"
	"github.com/helprs/fieldpay/internal/tenantctx"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	timesheetrepo "github.com/helprs/fieldpay/internal/timesheet/repository"
	"github.com/helprs/fieldpay/internal/workflow/domain"
	workerdomain "github.com/helprs/fieldpay/internal/worker/domain"
	workerrepo "github.com/helprs/fieldpay/internal/worker/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type failingProcessor struct{}

func (failingProcessor) Charge(ctx context.Context, req processor.ChargeRequest) (processor.Result, error) {
	return processor.Result{}, processor.ErrProcessorFailure
}

func (failingProcessor) Transfer(ctx context.Context, req processor.TransferRequest) (processor.Result, error) {
	return processor.Result{}, processor.ErrProcessorFailure
}

type recordingNotifier struct {
	calls       int
	amountCents int64
}

func (n *recordingNotifier) ApprovalRequested(ctx context.Context, customerID, appointmentID snowflake.ID, amountCents int64) error {
	n.calls++
	n.amountCents = amountCents
	return nil
}

type fixture struct {
	db        *gorm.DB
	svc       *Service
	node      *snowflake.Node
	clock     *clock.FakeClock
	notifier  *recordingNotifier
	companyID snowflake.ID
	ctx       context.Context
}

func newFixture(t *testing.T, proc processor.Processor) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:workflow_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&appointmentdomain.Appointment{},
		&timesheetdomain.TimeEntry{},
		&workerdomain.Worker{},
		&settingsdomain.PaymentSettings{},
		&ledgerdomain.PaymentTransaction{},
		&ledgerdomain.PaymentTransactionEvent{},
	))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if proc == nil {
		proc = processor.NewStub(log)
	}

	ledgerSvc := ledgerservice.New(ledgerservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        fake,
		Repo:         ledgerrepo.Provide(),
		Appointments: appointmentrepo.Provide(),
		Timesheet:    timesheetrepo.Provide(),
	})
	settingsSvc := settingsservice.New(settingsservice.Params{
		DB:    db,
		Log:   log,
		Cfg:   config.Config{DefaultPlatformFeeBPS: 1000},
		Clock: fake,
		Repo:  settingsrepo.Provide(),
	})
	payoutSvc := payoutservice.New(payoutservice.Params{
		DB:        db,
		Log:       log,
		Clock:     fake,
		RunConfig: &config.PayoutRunConfigHolder{},
		Timesheet: timesheetrepo.Provide(),
		Workers:   workerrepo.Provide(),
		Settings:  settingsSvc,
		Ledger:    ledgerSvc,
		Processor: proc,
	})

	notifier := &recordingNotifier{}
	svc := &Service{
		db:           db,
		log:          log,
		clock:        fake,
		appointments: appointmentrepo.Provide(),
		timesheet:    timesheetrepo.Provide(),
		settings:     settingsSvc,
		ledger:       ledgerSvc,
		processor:    proc,
		notifier:     notifier,
		payout:       payoutSvc,
	}

	companyID := node.Generate()
	return &fixture{
		db:        db,
		svc:       svc,
		node:      node,
		clock:     fake,
		notifier:  notifier,
		companyID: companyID,
		ctx:       tenantctx.WithCompanyID(context.Background(), companyID),
	}
}

func (f *fixture) seedAppointment(t *testing.T, status appointmentdomain.Status) *appointmentdomain.Appointment {
	t.Helper()

	now := f.clock.Now()
	appointment := &appointmentdomain.Appointment{
		ID:                 f.node.Generate(),
		CompanyID:          f.companyID,
		CustomerID:         f.node.Generate(),
		ScheduledDate:      now,
		StartTime:          now,
		EndTime:            now.Add(4 * time.Hour),
		DurationMinutes:    240,
		Status:             status,
		EstimatedCostCents: 50000,
		FinalPaymentStatus: appointmentdomain.FinalPaymentPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, f.db.Create(appointment).Error)
	return appointment
}

func (f *fixture) seedWorker(t *testing.T, preference workerdomain.PaymentPreference) *workerdomain.Worker {
	t.Helper()

	now := f.clock.Now()
	worker := &workerdomain.Worker{
		ID:                f.node.Generate(),
		CompanyID:         f.companyID,
		Name:              "Sam",
		Email:             "sam@example.com",
		HourlyRateCents:   2000,
		PaymentPreference: preference,
		PayoutAccountID:   "acct_" + string(preference),
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, f.db.Create(worker).Error)
	return worker
}

func (f *fixture) seedEntry(t *testing.T, appointmentID, workerID snowflake.ID, hours float64, rateCents int64) *timesheetdomain.TimeEntry {
	t.Helper()

	clockIn := f.clock.Now().Add(-time.Duration(hours * float64(time.Hour)))
	clockOut := f.clock.Now()
	entry := &timesheetdomain.TimeEntry{
		ID:               f.node.Generate(),
		CompanyID:        f.companyID,
		AppointmentID:    appointmentID,
		WorkerID:         workerID,
		ClockInTime:      clockIn,
		ClockOutTime:     &clockOut,
		HoursWorked:      &hours,
		HourlyRateCents:  rateCents,
		TotalAmountCents: int64(hours * float64(rateCents)),
		PaymentStatus:    timesheetdomain.PaymentStatusPending,
		CreatedAt:        clockIn,
		UpdatedAt:        clockOut,
	}
	require.NoError(t, f.db.Create(entry).Error)
	return entry
}

func TestProcessDeposit(t *testing.T) {
	f := newFixture(t, nil)
	appointment := f.seedAppointment(t, appointmentdomain.StatusScheduled)

	outcome, err := f.svc.ProcessDeposit(f.ctx, domain.ProcessDepositRequest{
		AppointmentID:   appointment.ID.String(),
		CustomerID:      appointment.CustomerID.String(),
		AmountCents:     5000,
		PaymentMethodID: "pm_1",
	})
	require.NoError(t, err)

	transaction := outcome.Transaction
	assert.Equal(t, ledgerdomain.StatusSucceeded, transaction.Status)
	assert.True(t, transaction.IsDeposit)
	assert.Equal(t, int64(5000), transaction.GrossAmountCents)
	assert.Equal(t, int64(500), transaction.PlatformFeeCents)
	assert.Equal(t, int64(175), transaction.ProcessorFeeCents)
	assert.Equal(t, int64(4325), transaction.NetAmountCents)

	assert.True(t, outcome.Appointment.DepositPaid)
	require.NotNil(t, outcome.Appointment.DepositTransactionID)
	assert.Equal(t, transaction.ID, *outcome.Appointment.DepositTransactionID)

	t.Run("second deposit is rejected", func(t *testing.T) {
		_, err := f.svc.ProcessDeposit(f.ctx, domain.ProcessDepositRequest{
			AppointmentID:   appointment.ID.String(),
			CustomerID:      appointment.CustomerID.String(),
			AmountCents:     5000,
			PaymentMethodID: "pm_1",
		})
		assert.ErrorIs(t, err, domain.ErrDepositAlreadyPaid)
	})

	t.Run("wrong customer", func(t *testing.T) {
		other := f.seedAppointment(t, appointmentdomain.StatusScheduled)
		_, err := f.svc.ProcessDeposit(f.ctx, domain.ProcessDepositRequest{
			AppointmentID:   other.ID.String(),
			CustomerID:      f.node.Generate().String(),
			AmountCents:     5000,
			PaymentMethodID: "pm_1",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("cancelled appointment", func(t *testing.T) {
		cancelled := f.seedAppointment(t, appointmentdomain.StatusCancelled)
		_, err := f.svc.ProcessDeposit(f.ctx, domain.ProcessDepositRequest{
			AppointmentID:   cancelled.ID.String(),
			CustomerID:      cancelled.CustomerID.String(),
			AmountCents:     5000,
			PaymentMethodID: "pm_1",
		})
		assert.ErrorIs(t, err, domain.ErrAppointmentCancelled)
	})

	t.Run("missing payment method", func(t *testing.T) {
		_, err := f.svc.ProcessDeposit(f.ctx, domain.ProcessDepositRequest{
			AppointmentID:   appointment.ID.String(),
			CustomerID:      appointment.CustomerID.String(),
			AmountCents:     5000,
			PaymentMethodID: "  ",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
	})
}

func TestProcessDepositChargeFailure(t *testing.T) {
	f := newFixture(t, failingProcessor{})
	appointment := f.seedAppointment(t, appointmentdomain.StatusScheduled)

	_, err := f.svc.ProcessDeposit(f.ctx, domain.ProcessDepositRequest{
		AppointmentID:   appointment.ID.String(),
		CustomerID:      appointment.CustomerID.String(),
		AmountCents:     5000,
		PaymentMethodID: "pm_1",
	})
	require.ErrorIs(t, err, processor.ErrProcessorFailure)

	// The ledger keeps the failed attempt; the appointment is untouched.
	var transaction ledgerdomain.PaymentTransaction
	require.NoError(t, f.db.First(&transaction, "appointment_id = ?", appointment.ID).Error)
	assert.Equal(t, ledgerdomain.StatusFailed, transaction.Status)
	assert.NotEmpty(t, transaction.FailureReason)

	var got appointmentdomain.Appointment
	require.NoError(t, f.db.First(&got, "id = ?", appointment.ID).Error)
	assert.False(t, got.DepositPaid)
}

func TestRequestApprovalRecomputesCost(t *testing.T) {
	f := newFixture(t, nil)
	appointment := f.seedAppointment(t, appointmentdomain.StatusCompleted)
	worker := f.seedWorker(t, workerdomain.PaymentPreferenceWeekly)

	f.seedEntry(t, appointment.ID, worker.ID, 5, 2000)
	f.seedEntry(t, appointment.ID, worker.ID, 3, 2500)

	updated, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
		AppointmentID: appointment.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ActualCostCents)
	assert.Equal(t, int64(17500), *updated.ActualCostCents)
	assert.Equal(t, 1, f.notifier.calls)
	assert.Equal(t, int64(17500), f.notifier.amountCents)

	// A corrected entry changes the amount on the next request.
	f.seedEntry(t, appointment.ID, worker.ID, 1, 2000)
	updated, err = f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
		AppointmentID: appointment.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(19500), *updated.ActualCostCents)
	assert.Equal(t, 2, f.notifier.calls)
}

func TestRequestApprovalGuards(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("not completed", func(t *testing.T) {
		appointment := f.seedAppointment(t, appointmentdomain.StatusInProgress)
		_, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
			AppointmentID: appointment.ID.String(),
		})
		assert.ErrorIs(t, err, domain.ErrNotCompleted)
	})

	t.Run("no billable labor", func(t *testing.T) {
		appointment := f.seedAppointment(t, appointmentdomain.StatusCompleted)
		_, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
			AppointmentID: appointment.ID.String(),
		})
		assert.ErrorIs(t, err, domain.ErrNothingToBill)
	})

	t.Run("already settled", func(t *testing.T) {
		appointment := f.seedAppointment(t, appointmentdomain.StatusCompleted)
		require.NoError(t, f.db.Model(appointment).
			Update("final_payment_status", appointmentdomain.FinalPaymentPaid).Error)
		_, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
			AppointmentID: appointment.ID.String(),
		})
		assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	})
}

func TestApprove(t *testing.T) {
	f := newFixture(t, nil)
	appointment := f.seedAppointment(t, appointmentdomain.StatusCompleted)
	worker := f.seedWorker(t, workerdomain.PaymentPreferenceWeekly)
	f.seedEntry(t, appointment.ID, worker.ID, 4, 2000)

	t.Run("approval requires a resolved cost", func(t *testing.T) {
		_, err := f.svc.Approve(f.ctx, domain.ApproveRequest{AppointmentID: appointment.ID.String()})
		assert.ErrorIs(t, err, domain.ErrNotAwaitingApproval)
	})

	_, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
		AppointmentID: appointment.ID.String(),
	})
	require.NoError(t, err)

	updated, err := f.svc.Approve(f.ctx, domain.ApproveRequest{AppointmentID: appointment.ID.String()})
	require.NoError(t, err)
	assert.True(t, updated.CustomerApprovedHours)
	require.NotNil(t, updated.CustomerApprovedAt)
	assert.Equal(t, appointmentdomain.FinalPaymentApproved, updated.FinalPaymentStatus)

	t.Run("double approval is rejected", func(t *testing.T) {
		_, err := f.svc.Approve(f.ctx, domain.ApproveRequest{AppointmentID: appointment.ID.String()})
		assert.ErrorIs(t, err, domain.ErrNotAwaitingApproval)
	})
}

func TestProcessFinalPaymentRequiresApproval(t *testing.T) {
	f := newFixture(t, nil)
	appointment := f.seedAppointment(t, appointmentdomain.StatusCompleted)
	worker := f.seedWorker(t, workerdomain.PaymentPreferenceWeekly)
	f.seedEntry(t, appointment.ID, worker.ID, 4, 2000)

	_, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
		AppointmentID: appointment.ID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.ProcessFinalPayment(f.ctx, domain.ProcessFinalPaymentRequest{
		AppointmentID:   appointment.ID.String(),
		PaymentMethodID: "pm_1",
	})
	assert.ErrorIs(t, err, domain.ErrNotApproved)
}

func TestProcessFinalPaymentFullFlow(t *testing.T) {
	f := newFixture(t, nil)
	appointment := f.seedAppointment(t, appointmentdomain.StatusCompleted)
	weekly := f.seedWorker(t, workerdomain.PaymentPreferenceWeekly)
	perJob := f.seedWorker(t, workerdomain.PaymentPreferencePerJob)

	weeklyEntry := f.seedEntry(t, appointment.ID, weekly.ID, 5, 2000)
	perJobEntry := f.seedEntry(t, appointment.ID, perJob.ID, 3, 2500)

	_, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
		AppointmentID: appointment.ID.String(),
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, domain.ApproveRequest{AppointmentID: appointment.ID.String()})
	require.NoError(t, err)

	outcome, err := f.svc.ProcessFinalPayment(f.ctx, domain.ProcessFinalPaymentRequest{
		AppointmentID:   appointment.ID.String(),
		PaymentMethodID: "pm_1",
	})
	require.NoError(t, err)

	transaction := outcome.Transaction
	assert.Equal(t, ledgerdomain.StatusSucceeded, transaction.Status)
	assert.True(t, transaction.IsFinalPayment)
	assert.Equal(t, int64(17500), transaction.GrossAmountCents)

	assert.Equal(t, appointmentdomain.FinalPaymentPaid, outcome.Appointment.FinalPaymentStatus)
	require.NotNil(t, outcome.Appointment.FinalPaymentTransactionID)
	assert.Equal(t, transaction.ID, *outcome.Appointment.FinalPaymentTransactionID)

	// The per-job worker is paid immediately; the weekly worker's labor
	// stays queued for the next batch.
	require.Len(t, outcome.Payouts, 1)
	require.NotNil(t, outcome.Payouts[0].WorkerID)
	assert.Equal(t, perJob.ID, *outcome.Payouts[0].WorkerID)
	assert.Equal(t, int64(7500), outcome.Payouts[0].NetAmountCents)

	var got timesheetdomain.TimeEntry
	require.NoError(t, f.db.First(&got, "id = ?", perJobEntry.ID).Error)
	assert.Equal(t, timesheetdomain.PaymentStatusPaid, got.PaymentStatus)

	got = timesheetdomain.TimeEntry{}
	require.NoError(t, f.db.First(&got, "id = ?", weeklyEntry.ID).Error)
	assert.Equal(t, timesheetdomain.PaymentStatusScheduled, got.PaymentStatus)

	t.Run("settled appointment refuses another payment", func(t *testing.T) {
		_, err := f.svc.ProcessFinalPayment(f.ctx, domain.ProcessFinalPaymentRequest{
			AppointmentID:   appointment.ID.String(),
			PaymentMethodID: "pm_1",
		})
		assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	})
}

func TestProcessFinalPaymentRefusesStaleApproval(t *testing.T) {
	f := newFixture(t, nil)
	appointment := f.seedAppointment(t, appointmentdomain.StatusCompleted)
	worker := f.seedWorker(t, workerdomain.PaymentPreferenceWeekly)
	f.seedEntry(t, appointment.ID, worker.ID, 5, 2000)

	_, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
		AppointmentID: appointment.ID.String(),
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, domain.ApproveRequest{AppointmentID: appointment.ID.String()})
	require.NoError(t, err)

	// A second worker's hours land after the customer signed off.
	late := f.seedWorker(t, workerdomain.PaymentPreferencePerJob)
	lateEntry := f.seedEntry(t, appointment.ID, late.ID, 4, 2500)

	_, err = f.svc.ProcessFinalPayment(f.ctx, domain.ProcessFinalPaymentRequest{
		AppointmentID:   appointment.ID.String(),
		PaymentMethodID: "pm_1",
	})
	assert.ErrorIs(t, err, domain.ErrCostChanged)

	// Nothing was charged and no labor was paid out.
	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.PaymentTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
	var got timesheetdomain.TimeEntry
	require.NoError(t, f.db.First(&got, "id = ?", lateEntry.ID).Error)
	assert.Equal(t, timesheetdomain.PaymentStatusPending, got.PaymentStatus)

	// A fresh approval pass picks up the late entry and voids the old
	// sign-off.
	updated, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
		AppointmentID: appointment.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ActualCostCents)
	assert.Equal(t, int64(20000), *updated.ActualCostCents)
	assert.False(t, updated.CustomerApprovedHours)
	assert.Nil(t, updated.CustomerApprovedAt)

	_, err = f.svc.ProcessFinalPayment(f.ctx, domain.ProcessFinalPaymentRequest{
		AppointmentID:   appointment.ID.String(),
		PaymentMethodID: "pm_1",
	})
	assert.ErrorIs(t, err, domain.ErrNotApproved)

	_, err = f.svc.Approve(f.ctx, domain.ApproveRequest{AppointmentID: appointment.ID.String()})
	require.NoError(t, err)

	outcome, err := f.svc.ProcessFinalPayment(f.ctx, domain.ProcessFinalPaymentRequest{
		AppointmentID:   appointment.ID.String(),
		PaymentMethodID: "pm_1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), outcome.Transaction.GrossAmountCents)
	require.Len(t, outcome.Payouts, 1)
	assert.Equal(t, int64(10000), outcome.Payouts[0].NetAmountCents)
}

func TestProcessFinalPaymentChargeFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	appointment := f.seedAppointment(t, appointmentdomain.StatusCompleted)
	worker := f.seedWorker(t, workerdomain.PaymentPreferenceWeekly)
	entry := f.seedEntry(t, appointment.ID, worker.ID, 4, 2000)

	_, err := f.svc.RequestApproval(f.ctx, domain.RequestApprovalRequest{
		AppointmentID: appointment.ID.String(),
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, domain.ApproveRequest{AppointmentID: appointment.ID.String()})
	require.NoError(t, err)

	f.svc.processor = failingProcessor{}
	_, err = f.svc.ProcessFinalPayment(f.ctx, domain.ProcessFinalPaymentRequest{
		AppointmentID:   appointment.ID.String(),
		PaymentMethodID: "pm_1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrProcessorFailure))

	var got appointmentdomain.Appointment
	require.NoError(t, f.db.First(&got, "id = ?", appointment.ID).Error)
	assert.Equal(t, appointmentdomain.FinalPaymentApproved, got.FinalPaymentStatus)
	assert.Nil(t, got.FinalPaymentTransactionID)

	var gotEntry timesheetdomain.TimeEntry
	require.NoError(t, f.db.First(&gotEntry, "id = ?", entry.ID).Error)
	assert.Equal(t, timesheetdomain.PaymentStatusPending, gotEntry.PaymentStatus)

	// Payment can be retried once the processor recovers.
	f.svc.processor = processor.NewStub(zaptest.NewLogger(t))
	outcome, err := f.svc.ProcessFinalPayment(f.ctx, domain.ProcessFinalPaymentRequest{
		AppointmentID:   appointment.ID.String(),
		PaymentMethodID: "pm_1",
	})
	require.NoError(t, err)
	assert.Equal(t, appointmentdomain.FinalPaymentPaid, outcome.Appointment.FinalPaymentStatus)
}
