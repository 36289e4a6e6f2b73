package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	appointmentrepo "github.com/helprs/fieldpay/internal/appointment/repository"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/ledger/domain"
	"github.com/helprs/fieldpay/internal/ledger/repository"
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

	dsn := fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.PaymentTransaction{},
		&domain.PaymentTransactionEvent{},
		&appointmentdomain.Appointment{},
		&timesheetdomain.TimeEntry{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := &Service{
		db:           db,
		log:          zaptest.NewLogger(t),
		genID:        node,
		clock:        clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		repo:         repository.Provide(),
		appointments: appointmentrepo.Provide(),
		timesheet:    timesheetrepo.Provide(),
	}
	return svc, node
}

func seedAppointment(t *testing.T, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID) *appointmentdomain.Appointment {
	t.Helper()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	appointment := &appointmentdomain.Appointment{
		ID:                 node.Generate(),
		CompanyID:          companyID,
		CustomerID:         node.Generate(),
		ScheduledDate:      now,
		StartTime:          now,
		EndTime:            now.Add(2 * time.Hour),
		DurationMinutes:    120,
		Status:             appointmentdomain.StatusScheduled,
		EstimatedCostCents: 20000,
		FinalPaymentStatus: appointmentdomain.FinalPaymentPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, db.Create(appointment).Error)
	return appointment
}

func TestRecordCustomerPaymentFeeSplit(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)
	appointment := seedAppointment(t, db, node, companyID)

	transaction, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeCustomerPayment,
		GrossAmountCents: 10000,
		PlatformFeeBPS:   1000,
		IsDeposit:        true,
		CustomerID:       appointment.CustomerID,
		AppointmentID:    appointment.ID,
		PaymentMethodID:  "pm_123",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, transaction.Status)
	assert.Equal(t, int64(10000), transaction.GrossAmountCents)
	assert.Equal(t, int64(1000), transaction.PlatformFeeCents)
	assert.Equal(t, int64(320), transaction.ProcessorFeeCents)
	assert.Equal(t, int64(8680), transaction.NetAmountCents)
	assert.True(t, transaction.IsDeposit)
	assert.False(t, transaction.IsFinalPayment)
	assert.NotEmpty(t, transaction.IdempotencyKey)

	events, err := svc.ListEvents(ctx, transaction.ID.String())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCreated, events[0].EventType)
	assert.Equal(t, domain.StatusPending, events[0].ToStatus)
}

func TestRecordWorkerPayoutCarriesNoFees(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)

	transaction, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeWorkerPayout,
		GrossAmountCents: 36000,
		WorkerID:         node.Generate(),
		PayoutAccountID:  "acct_9",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(36000), transaction.GrossAmountCents)
	assert.Zero(t, transaction.PlatformFeeCents)
	assert.Zero(t, transaction.ProcessorFeeCents)
	assert.Equal(t, int64(36000), transaction.NetAmountCents)
}

func TestRecordValidation(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)

	t.Run("invalid type", func(t *testing.T) {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType:  "wire_transfer",
			GrossAmountCents: 100,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidType)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType: domain.TypeCustomerPayment,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("customer payment without references", func(t *testing.T) {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType:  domain.TypeCustomerPayment,
			GrossAmountCents: 100,
			IsDeposit:        true,
		})
		assert.ErrorIs(t, err, domain.ErrMissingReference)
	})

	t.Run("deposit and final both set", func(t *testing.T) {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType:  domain.TypeCustomerPayment,
			GrossAmountCents: 100,
			IsDeposit:        true,
			IsFinalPayment:   true,
			CustomerID:       node.Generate(),
			AppointmentID:    node.Generate(),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidFlags)
	})

	t.Run("neither deposit nor final", func(t *testing.T) {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType:  domain.TypeCustomerPayment,
			GrossAmountCents: 100,
			CustomerID:       node.Generate(),
			AppointmentID:    node.Generate(),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidFlags)
	})

	t.Run("payout without worker", func(t *testing.T) {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType:  domain.TypeWorkerPayout,
			GrossAmountCents: 100,
		})
		assert.ErrorIs(t, err, domain.ErrMissingReference)
	})

	t.Run("refund without original", func(t *testing.T) {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType:  domain.TypeRefund,
			GrossAmountCents: 100,
		})
		assert.ErrorIs(t, err, domain.ErrMissingReference)
	})

	t.Run("fees exceeding gross", func(t *testing.T) {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType:  domain.TypeCustomerPayment,
			GrossAmountCents: 10,
			PlatformFeeBPS:   10000,
			IsDeposit:        true,
			CustomerID:       node.Generate(),
			AppointmentID:    node.Generate(),
		})
		assert.ErrorIs(t, err, domain.ErrNegativeNet)
	})
}

func TestSettleDepositCascadesToAppointment(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)
	appointment := seedAppointment(t, db, node, companyID)

	transaction, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeCustomerPayment,
		GrossAmountCents: 5000,
		PlatformFeeBPS:   1000,
		IsDeposit:        true,
		CustomerID:       appointment.CustomerID,
		AppointmentID:    appointment.ID,
		PaymentMethodID:  "pm_123",
	})
	require.NoError(t, err)

	settled, err := svc.Settle(ctx, domain.SettleRequest{
		TransactionID: transaction.ID,
		Outcome:       domain.OutcomeSucceeded,
		ExternalID:    "ch_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, settled.Status)
	assert.Equal(t, "ch_abc", settled.ExternalID)

	var got appointmentdomain.Appointment
	require.NoError(t, db.First(&got, "id = ?", appointment.ID).Error)
	assert.True(t, got.DepositPaid)
	require.NotNil(t, got.DepositTransactionID)
	assert.Equal(t, transaction.ID, *got.DepositTransactionID)

	events, err := svc.ListEvents(ctx, transaction.ID.String())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventSettled, events[1].EventType)
	assert.Equal(t, domain.StatusPending, events[1].FromStatus)
	assert.Equal(t, domain.StatusSucceeded, events[1].ToStatus)
}

func TestSettleFailedLeavesAppointmentUntouched(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)
	appointment := seedAppointment(t, db, node, companyID)

	transaction, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeCustomerPayment,
		GrossAmountCents: 5000,
		IsDeposit:        true,
		CustomerID:       appointment.CustomerID,
		AppointmentID:    appointment.ID,
		PaymentMethodID:  "pm_123",
	})
	require.NoError(t, err)

	settled, err := svc.Settle(ctx, domain.SettleRequest{
		TransactionID: transaction.ID,
		Outcome:       domain.OutcomeFailed,
		FailureReason: "card_declined",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, settled.Status)
	assert.Equal(t, "card_declined", settled.FailureReason)

	var got appointmentdomain.Appointment
	require.NoError(t, db.First(&got, "id = ?", appointment.ID).Error)
	assert.False(t, got.DepositPaid)
	assert.Nil(t, got.DepositTransactionID)

	_, err = svc.Settle(ctx, domain.SettleRequest{
		TransactionID: transaction.ID,
		Outcome:       domain.OutcomeSucceeded,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSettleFinalPaymentMarksAppointmentPaid(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)
	appointment := seedAppointment(t, db, node, companyID)

	transaction, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeCustomerPayment,
		GrossAmountCents: 17500,
		PlatformFeeBPS:   500,
		IsFinalPayment:   true,
		CustomerID:       appointment.CustomerID,
		AppointmentID:    appointment.ID,
		PaymentMethodID:  "pm_123",
	})
	require.NoError(t, err)

	_, err = svc.Settle(ctx, domain.SettleRequest{
		TransactionID: transaction.ID,
		Outcome:       domain.OutcomeSucceeded,
		ExternalID:    "ch_final",
	})
	require.NoError(t, err)

	var got appointmentdomain.Appointment
	require.NoError(t, db.First(&got, "id = ?", appointment.ID).Error)
	assert.Equal(t, appointmentdomain.FinalPaymentPaid, got.FinalPaymentStatus)
	require.NotNil(t, got.FinalPaymentTransactionID)
	assert.Equal(t, transaction.ID, *got.FinalPaymentTransactionID)
}

func TestSettleWorkerPayoutMarksLinkedEntriesPaid(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	workerID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)

	transaction, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeWorkerPayout,
		GrossAmountCents: 36000,
		WorkerID:         workerID,
		PayoutAccountID:  "acct_9",
	})
	require.NoError(t, err)

	base := time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		hours := 6.0
		clockOut := base.Add(6 * time.Hour)
		entry := timesheetdomain.TimeEntry{
			ID:                  node.Generate(),
			CompanyID:           companyID,
			AppointmentID:       node.Generate(),
			WorkerID:            workerID,
			ClockInTime:         base.AddDate(0, 0, i),
			ClockOutTime:        &clockOut,
			HoursWorked:         &hours,
			HourlyRateCents:     3000,
			TotalAmountCents:    18000,
			PaymentStatus:       timesheetdomain.PaymentStatusScheduled,
			PayoutTransactionID: &transaction.ID,
			CreatedAt:           base,
			UpdatedAt:           base,
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	_, err = svc.Settle(ctx, domain.SettleRequest{
		TransactionID: transaction.ID,
		Outcome:       domain.OutcomeSucceeded,
		ExternalID:    "tr_abc",
	})
	require.NoError(t, err)

	var paid int64
	require.NoError(t, db.Model(&timesheetdomain.TimeEntry{}).
		Where("payout_transaction_id = ? AND payment_status = ?", transaction.ID, timesheetdomain.PaymentStatusPaid).
		Count(&paid).Error)
	assert.Equal(t, int64(2), paid)
}

func TestRefundAppendsRowAndProjectsOriginal(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)
	appointment := seedAppointment(t, db, node, companyID)

	transaction, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeCustomerPayment,
		GrossAmountCents: 10000,
		PlatformFeeBPS:   1000,
		IsDeposit:        true,
		CustomerID:       appointment.CustomerID,
		AppointmentID:    appointment.ID,
		PaymentMethodID:  "pm_123",
	})
	require.NoError(t, err)

	t.Run("pending original is not refundable", func(t *testing.T) {
		_, err := svc.Refund(ctx, domain.RefundRequest{TransactionID: transaction.ID})
		assert.ErrorIs(t, err, domain.ErrNotRefundable)
	})

	_, err = svc.Settle(ctx, domain.SettleRequest{
		TransactionID: transaction.ID,
		Outcome:       domain.OutcomeSucceeded,
		ExternalID:    "ch_abc",
	})
	require.NoError(t, err)

	t.Run("over-refund is rejected", func(t *testing.T) {
		_, err := svc.Refund(ctx, domain.RefundRequest{
			TransactionID:    transaction.ID,
			GrossAmountCents: 20000,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	reversal, err := svc.Refund(ctx, domain.RefundRequest{
		TransactionID: transaction.ID,
		Reason:        "customer request",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TypeRefund, reversal.TransactionType)
	assert.Equal(t, int64(10000), reversal.GrossAmountCents)
	require.NotNil(t, reversal.OriginalTransactionID)
	assert.Equal(t, transaction.ID, *reversal.OriginalTransactionID)
	assert.NotEqual(t, transaction.ID, reversal.ID)

	original, err := svc.GetByID(ctx, transaction.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, original.Status)

	events, err := svc.ListEvents(ctx, transaction.ID.String())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventRefunded, events[2].EventType)
	assert.Equal(t, "customer request", events[2].Reason)

	t.Run("refunded original cannot be refunded again", func(t *testing.T) {
		_, err := svc.Refund(ctx, domain.RefundRequest{TransactionID: transaction.ID})
		assert.ErrorIs(t, err, domain.ErrNotRefundable)
	})
}

func TestDisputeThenRefund(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)
	appointment := seedAppointment(t, db, node, companyID)

	transaction, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeCustomerPayment,
		GrossAmountCents: 8000,
		IsFinalPayment:   true,
		CustomerID:       appointment.CustomerID,
		AppointmentID:    appointment.ID,
		PaymentMethodID:  "pm_123",
	})
	require.NoError(t, err)
	_, err = svc.Settle(ctx, domain.SettleRequest{
		TransactionID: transaction.ID,
		Outcome:       domain.OutcomeSucceeded,
	})
	require.NoError(t, err)

	chargeback, err := svc.Dispute(ctx, domain.RefundRequest{
		TransactionID: transaction.ID,
		Reason:        "fraud claim",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeChargeback, chargeback.TransactionType)

	disputed, err := svc.GetByID(ctx, transaction.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisputed, disputed.Status)

	// A disputed transaction can still resolve to refunded.
	_, err = svc.Refund(ctx, domain.RefundRequest{TransactionID: transaction.ID})
	require.NoError(t, err)

	final, err := svc.GetByID(ctx, transaction.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, final.Status)
}

func TestListTransactionsFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t)
	svc, node := newTestService(t, db)

	companyID := node.Generate()
	ctx := tenantctx.WithCompanyID(context.Background(), companyID)
	appointment := seedAppointment(t, db, node, companyID)

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, domain.RecordRequest{
			TransactionType:  domain.TypeCustomerPayment,
			GrossAmountCents: int64(1000 * (i + 1)),
			IsDeposit:        true,
			CustomerID:       appointment.CustomerID,
			AppointmentID:    appointment.ID,
			PaymentMethodID:  "pm_123",
		})
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, domain.RecordRequest{
		TransactionType:  domain.TypeWorkerPayout,
		GrossAmountCents: 500,
		WorkerID:         node.Generate(),
		PayoutAccountID:  "acct_9",
	})
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListTransactionsRequest{
		TransactionType: string(domain.TypeCustomerPayment),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Transactions, 3)

	resp, err = svc.List(ctx, domain.ListTransactionsRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Transactions, 2)
	assert.True(t, resp.PageInfo.HasMore)

	otherCtx := tenantctx.WithCompanyID(context.Background(), node.Generate())
	resp, err = svc.List(otherCtx, domain.ListTransactionsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Transactions)
}
