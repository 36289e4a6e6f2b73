package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	"github.com/helprs/fieldpay/internal/clock"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
	"github.com/helprs/fieldpay/internal/notify"
	"github.com/helprs/fieldpay/internal/observability/metrics"
	payoutdomain "github.com/helprs/fieldpay/internal/payout/domain"
	"github.com/helprs/fieldpay/internal/processor"
	settingsdomain "github.com/helprs/fieldpay/internal/settings/domain"
	"github.com/helprs/fieldpay/internal/tenantctx"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	"github.com/helprs/fieldpay/internal/workflow/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Metrics      *metrics.Metrics
	Appointments appointmentdomain.Repository
	Timesheet    timesheetdomain.Repository
	Settings     settingsdomain.Service
	Ledger       ledgerdomain.Service
	Processor    processor.Processor
	Notifier     notify.Notifier
	Payout       payoutdomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	metrics      *metrics.Metrics
	appointments appointmentdomain.Repository
	timesheet    timesheetdomain.Repository
	settings     settingsdomain.Service
	ledger       ledgerdomain.Service
	processor    processor.Processor
	notifier     notify.Notifier
	payout       payoutdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("workflow.service"),
		clock:        p.Clock,
		metrics:      p.Metrics,
		appointments: p.Appointments,
		timesheet:    p.Timesheet,
		settings:     p.Settings,
		ledger:       p.Ledger,
		processor:    p.Processor,
		notifier:     p.Notifier,
		payout:       p.Payout,
	}
}

func (s *Service) ProcessDeposit(ctx context.Context, req domain.ProcessDepositRequest) (domain.PaymentOutcome, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.PaymentOutcome{}, domain.ErrInvalidCompany
	}

	appointmentID, err := parseID(req.AppointmentID)
	if err != nil {
		return domain.PaymentOutcome{}, err
	}
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.PaymentOutcome{}, err
	}
	if req.AmountCents <= 0 {
		return domain.PaymentOutcome{}, domain.ErrInvalidAmount
	}
	paymentMethodID := strings.TrimSpace(req.PaymentMethodID)
	if paymentMethodID == "" {
		return domain.PaymentOutcome{}, domain.ErrInvalidPaymentMethod
	}

	settings, err := s.settings.GetForCompany(ctx, companyID)
	if err != nil {
		return domain.PaymentOutcome{}, err
	}

	// The ledger row is created pending before any money moves, so a
	// crash between charge and settle leaves an auditable open row
	// instead of an untracked charge.
	var transaction ledgerdomain.PaymentTransaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointment, err := s.appointments.FindByIDForUpdate(ctx, tx, companyID, appointmentID)
		if err != nil {
			return err
		}
		if appointment == nil || appointment.CustomerID != customerID {
			return domain.ErrNotFound
		}
		if appointment.Status == appointmentdomain.StatusCancelled {
			return domain.ErrAppointmentCancelled
		}
		if appointment.DepositPaid {
			return domain.ErrDepositAlreadyPaid
		}

		transaction, err = s.ledger.RecordTx(ctx, tx, companyID, ledgerdomain.RecordRequest{
			TransactionType:  ledgerdomain.TypeCustomerPayment,
			GrossAmountCents: req.AmountCents,
			PlatformFeeBPS:   settings.PlatformFeeBPS,
			IsDeposit:        true,
			CustomerID:       customerID,
			AppointmentID:    appointmentID,
			PaymentMethodID:  paymentMethodID,
		})
		return err
	})
	if err != nil {
		return domain.PaymentOutcome{}, err
	}

	return s.charge(ctx, companyID, appointmentID, transaction, paymentMethodID, nil)
}

func (s *Service) RequestApproval(ctx context.Context, req domain.RequestApprovalRequest) (appointmentdomain.Appointment, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return appointmentdomain.Appointment{}, domain.ErrInvalidCompany
	}

	appointmentID, err := parseID(req.AppointmentID)
	if err != nil {
		return appointmentdomain.Appointment{}, err
	}

	var updated appointmentdomain.Appointment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointment, err := s.appointments.FindByIDForUpdate(ctx, tx, companyID, appointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return domain.ErrNotFound
		}
		if appointment.Settled() {
			return domain.ErrAlreadySettled
		}
		if appointment.Status != appointmentdomain.StatusCompleted {
			return domain.ErrNotCompleted
		}
		// Re-requestable from approved too, so a stale sign-off can be
		// superseded after late clock-outs.
		if appointment.FinalPaymentStatus != appointmentdomain.FinalPaymentPending &&
			appointment.FinalPaymentStatus != appointmentdomain.FinalPaymentApproved {
			return domain.ErrNotAwaitingApproval
		}

		entries, err := s.timesheet.ListForAppointment(ctx, tx, companyID, appointmentID, timesheetdomain.PaymentStatusPending)
		if err != nil {
			return err
		}
		totals := timesheetdomain.Aggregate(entries)
		if totals.TotalAmountCents <= 0 {
			return domain.ErrNothingToBill
		}

		// Recomputed on every call, so correcting an entry before the
		// customer approves updates the amount they sign off on. Any
		// earlier sign-off no longer covers the new total.
		appointment.ActualCostCents = &totals.TotalAmountCents
		appointment.CustomerApprovedHours = false
		appointment.CustomerApprovedAt = nil
		appointment.FinalPaymentStatus = appointmentdomain.FinalPaymentPending
		appointment.UpdatedAt = s.clock.Now()
		if err := s.appointments.Update(ctx, tx, appointment); err != nil {
			return err
		}

		updated = *appointment
		return nil
	})
	if err != nil {
		return appointmentdomain.Appointment{}, err
	}

	if err := s.notifier.ApprovalRequested(ctx, updated.CustomerID, updated.ID, *updated.ActualCostCents); err != nil {
		s.log.Warn("approval notification failed",
			zap.String("appointment_id", updated.ID.String()),
			zap.Error(err),
		)
	}

	s.metrics.RecordApprovalTransition(ctx, "approval_requested")
	return updated, nil
}

func (s *Service) Approve(ctx context.Context, req domain.ApproveRequest) (appointmentdomain.Appointment, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return appointmentdomain.Appointment{}, domain.ErrInvalidCompany
	}

	appointmentID, err := parseID(req.AppointmentID)
	if err != nil {
		return appointmentdomain.Appointment{}, err
	}

	var updated appointmentdomain.Appointment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointment, err := s.appointments.FindByIDForUpdate(ctx, tx, companyID, appointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return domain.ErrNotFound
		}
		if appointment.Settled() {
			return domain.ErrAlreadySettled
		}
		if appointment.Status != appointmentdomain.StatusCompleted ||
			appointment.ActualCostCents == nil ||
			appointment.FinalPaymentStatus != appointmentdomain.FinalPaymentPending {
			return domain.ErrNotAwaitingApproval
		}

		now := s.clock.Now()
		appointment.CustomerApprovedHours = true
		appointment.CustomerApprovedAt = &now
		appointment.FinalPaymentStatus = appointmentdomain.FinalPaymentApproved
		appointment.UpdatedAt = now
		if err := s.appointments.Update(ctx, tx, appointment); err != nil {
			return err
		}

		updated = *appointment
		return nil
	})
	if err != nil {
		return appointmentdomain.Appointment{}, err
	}

	s.metrics.RecordApprovalTransition(ctx, "approved")
	s.log.Info("hours approved",
		zap.String("appointment_id", updated.ID.String()),
		zap.Int64("actual_cost_cents", *updated.ActualCostCents),
	)
	return updated, nil
}

func (s *Service) ProcessFinalPayment(ctx context.Context, req domain.ProcessFinalPaymentRequest) (domain.PaymentOutcome, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.PaymentOutcome{}, domain.ErrInvalidCompany
	}

	appointmentID, err := parseID(req.AppointmentID)
	if err != nil {
		return domain.PaymentOutcome{}, err
	}
	paymentMethodID := strings.TrimSpace(req.PaymentMethodID)
	if paymentMethodID == "" {
		return domain.PaymentOutcome{}, domain.ErrInvalidPaymentMethod
	}

	settings, err := s.settings.GetForCompany(ctx, companyID)
	if err != nil {
		return domain.PaymentOutcome{}, err
	}

	var transaction ledgerdomain.PaymentTransaction
	var entryIDs []snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointment, err := s.appointments.FindByIDForUpdate(ctx, tx, companyID, appointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return domain.ErrNotFound
		}
		// Approval is checked before any other state so an out-of-order
		// call is reported as the approval gap it is.
		if !appointment.CustomerApprovedHours {
			return domain.ErrNotApproved
		}
		if appointment.Settled() {
			return domain.ErrAlreadySettled
		}
		if appointment.FinalPaymentStatus != appointmentdomain.FinalPaymentApproved {
			return domain.ErrNotApproved
		}
		if appointment.ActualCostCents == nil || *appointment.ActualCostCents <= 0 {
			return domain.ErrNothingToBill
		}

		entries, err := s.timesheet.ListForAppointment(ctx, tx, companyID, appointmentID, timesheetdomain.PaymentStatusPending)
		if err != nil {
			return err
		}
		// Entries clocked out after the sign-off change the billable
		// total; the charge only proceeds when the pending entries still
		// sum to the amount the customer approved.
		if totals := timesheetdomain.Aggregate(entries); totals.TotalAmountCents != *appointment.ActualCostCents {
			return domain.ErrCostChanged
		}
		entryIDs = entryIDs[:0]
		for _, entry := range entries {
			entryIDs = append(entryIDs, entry.ID)
		}

		transaction, err = s.ledger.RecordTx(ctx, tx, companyID, ledgerdomain.RecordRequest{
			TransactionType:  ledgerdomain.TypeCustomerPayment,
			GrossAmountCents: *appointment.ActualCostCents,
			PlatformFeeBPS:   settings.PlatformFeeBPS,
			IsFinalPayment:   true,
			CustomerID:       appointment.CustomerID,
			AppointmentID:    appointmentID,
			PaymentMethodID:  paymentMethodID,
		})
		return err
	})
	if err != nil {
		return domain.PaymentOutcome{}, err
	}

	return s.charge(ctx, companyID, appointmentID, transaction, paymentMethodID, entryIDs)
}

// charge runs the processor call for a pending customer payment and
// settles the outcome. A failed charge marks the transaction failed and
// leaves the appointment untouched. On a successful final payment the
// appointment's pending entries flip to scheduled in the same database
// transaction as the settle, and per-job payouts run afterwards.
func (s *Service) charge(ctx context.Context, companyID, appointmentID snowflake.ID, transaction ledgerdomain.PaymentTransaction, paymentMethodID string, entryIDs []snowflake.ID) (domain.PaymentOutcome, error) {
	result, err := s.processor.Charge(ctx, processor.ChargeRequest{
		IdempotencyKey:  transaction.IdempotencyKey,
		PaymentMethodID: paymentMethodID,
		AmountCents:     transaction.GrossAmountCents,
	})
	if err != nil {
		if _, settleErr := s.ledger.Settle(ctx, ledgerdomain.SettleRequest{
			TransactionID: transaction.ID,
			Outcome:       ledgerdomain.OutcomeFailed,
			FailureReason: err.Error(),
		}); settleErr != nil {
			s.log.Error("failed to settle charge transaction",
				zap.String("transaction_id", transaction.ID.String()),
				zap.Error(settleErr),
			)
		}
		return domain.PaymentOutcome{}, err
	}

	var settled ledgerdomain.PaymentTransaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		settled, err = s.ledger.SettleTx(ctx, tx, companyID, ledgerdomain.SettleRequest{
			TransactionID: transaction.ID,
			Outcome:       ledgerdomain.OutcomeSucceeded,
			ExternalID:    result.ExternalID,
		})
		if err != nil {
			return err
		}
		if transaction.IsFinalPayment && len(entryIDs) > 0 {
			return s.timesheet.MarkStatus(ctx, tx, companyID, entryIDs, timesheetdomain.PaymentStatusScheduled, nil, s.clock.Now())
		}
		return nil
	})
	if err != nil {
		return domain.PaymentOutcome{}, err
	}

	outcome := domain.PaymentOutcome{Transaction: settled}

	if transaction.IsFinalPayment {
		payouts, err := s.payout.PayoutForAppointment(ctx, companyID, appointmentID)
		if err != nil {
			s.log.Error("per-job payout run failed",
				zap.String("appointment_id", appointmentID.String()),
				zap.Error(err),
			)
		}
		outcome.Payouts = payouts
		s.metrics.RecordApprovalTransition(ctx, "paid")
	}

	appointment, err := s.appointments.FindByID(ctx, s.db, companyID, appointmentID)
	if err != nil {
		return domain.PaymentOutcome{}, err
	}
	if appointment != nil {
		outcome.Appointment = *appointment
	}
	return outcome, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
