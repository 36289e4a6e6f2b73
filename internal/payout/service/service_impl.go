package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/config"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
	"github.com/helprs/fieldpay/internal/observability/metrics"
	"github.com/helprs/fieldpay/internal/payout/domain"
	"github.com/helprs/fieldpay/internal/processor"
	settingsdomain "github.com/helprs/fieldpay/internal/settings/domain"
	"github.com/helprs/fieldpay/internal/tenantctx"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	workerdomain "github.com/helprs/fieldpay/internal/worker/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	RunConfig *config.PayoutRunConfigHolder
	Timesheet timesheetdomain.Repository
	Workers   workerdomain.Repository
	Settings  settingsdomain.Service
	Ledger    ledgerdomain.Service
	Processor processor.Processor
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	metrics   *metrics.Metrics
	runConfig *config.PayoutRunConfigHolder
	timesheet timesheetdomain.Repository
	workers   workerdomain.Repository
	settings  settingsdomain.Service
	ledger    ledgerdomain.Service
	processor processor.Processor
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payout.service"),
		clock:     p.Clock,
		metrics:   p.Metrics,
		runConfig: p.RunConfig,
		timesheet: p.Timesheet,
		workers:   p.Workers,
		settings:  p.Settings,
		ledger:    p.Ledger,
		processor: p.Processor,
	}
}

func (s *Service) AggregateForPeriod(ctx context.Context, workerID string, start, end time.Time) (domain.Aggregation, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.Aggregation{}, domain.ErrInvalidCompany
	}

	id, err := snowflake.ParseString(workerID)
	if err != nil || id == 0 {
		return domain.Aggregation{}, domain.ErrInvalidID
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return domain.Aggregation{}, domain.ErrInvalidTimeRange
	}

	entries, err := s.timesheet.ListForWorkerInRange(ctx, s.db, companyID, id, timesheetdomain.PaymentStatusPending, start, end)
	if err != nil {
		return domain.Aggregation{}, err
	}

	preference := workerdomain.PaymentPreferenceWeekly
	worker, err := s.workers.FindByID(ctx, s.db, companyID, id)
	if err != nil {
		return domain.Aggregation{}, err
	}
	if worker != nil {
		preference = worker.PaymentPreference
	}

	totals := timesheetdomain.Aggregate(entries)
	return domain.Aggregation{
		WorkerID:          id.String(),
		TotalHours:        totals.TotalHours,
		TotalAmountCents:  totals.TotalAmountCents,
		PaymentPreference: preference,
		Entries:           entries,
	}, nil
}

func (s *Service) PayoutForAppointment(ctx context.Context, companyID, appointmentID snowflake.ID) ([]ledgerdomain.PaymentTransaction, error) {
	if companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	ctx = tenantctx.WithCompanyID(ctx, companyID)

	entries, err := s.timesheet.ListForAppointment(ctx, s.db, companyID, appointmentID, timesheetdomain.PaymentStatusScheduled)
	if err != nil {
		return nil, err
	}

	byWorker := map[snowflake.ID][]timesheetdomain.TimeEntry{}
	for _, entry := range entries {
		byWorker[entry.WorkerID] = append(byWorker[entry.WorkerID], entry)
	}

	var payouts []ledgerdomain.PaymentTransaction
	for workerID, workerEntries := range byWorker {
		worker, err := s.workers.FindByID(ctx, s.db, companyID, workerID)
		if err != nil {
			return payouts, err
		}
		if worker == nil || worker.PaymentPreference != workerdomain.PaymentPreferencePerJob {
			continue
		}

		transaction, err := s.pay(ctx, companyID, worker, workerEntries, appointmentID)
		if err != nil {
			s.log.Error("per-job payout failed",
				zap.String("worker_id", workerID.String()),
				zap.String("appointment_id", appointmentID.String()),
				zap.Error(err),
			)
			continue
		}
		payouts = append(payouts, transaction)
	}

	return payouts, nil
}

func (s *Service) PayoutWorker(ctx context.Context, companyID, workerID snowflake.ID, asOf time.Time) (ledgerdomain.PaymentTransaction, error) {
	if companyID == 0 {
		return ledgerdomain.PaymentTransaction{}, domain.ErrInvalidCompany
	}
	ctx = tenantctx.WithCompanyID(ctx, companyID)

	worker, err := s.workers.FindByID(ctx, s.db, companyID, workerID)
	if err != nil {
		return ledgerdomain.PaymentTransaction{}, err
	}
	if worker == nil {
		return ledgerdomain.PaymentTransaction{}, domain.ErrNotFound
	}

	entries, err := s.timesheet.ListForWorkerInRange(ctx, s.db, companyID, workerID, timesheetdomain.PaymentStatusScheduled, time.Time{}, asOf)
	if err != nil {
		return ledgerdomain.PaymentTransaction{}, err
	}
	if max := s.runConfig.Get().MaxPerWorker; max > 0 && len(entries) > max {
		entries = entries[:max]
	}

	return s.pay(ctx, companyID, worker, entries, 0)
}

// pay records a payout transaction for the entries, runs the transfer and
// settles the outcome. The ledger row exists before any money moves.
func (s *Service) pay(ctx context.Context, companyID snowflake.ID, worker *workerdomain.Worker, entries []timesheetdomain.TimeEntry, appointmentID snowflake.ID) (ledgerdomain.PaymentTransaction, error) {
	totals := timesheetdomain.Aggregate(entries)
	if totals.TotalAmountCents <= 0 || len(entries) == 0 {
		return ledgerdomain.PaymentTransaction{}, domain.ErrNoPayableEntries
	}
	if worker.PayoutAccountID == "" {
		return ledgerdomain.PaymentTransaction{}, domain.ErrMissingPayoutAccount
	}

	req := ledgerdomain.RecordRequest{
		TransactionType:  ledgerdomain.TypeWorkerPayout,
		GrossAmountCents: totals.TotalAmountCents,
		WorkerID:         worker.ID,
		AppointmentID:    appointmentID,
		PayoutAccountID:  worker.PayoutAccountID,
	}
	if len(entries) == 1 {
		req.TimeEntryID = entries[0].ID
	}

	ids := make([]snowflake.ID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}

	var transaction ledgerdomain.PaymentTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		transaction, err = s.ledger.RecordTx(ctx, tx, companyID, req)
		if err != nil {
			return err
		}
		return s.timesheet.MarkStatus(ctx, tx, companyID, ids, timesheetdomain.PaymentStatusScheduled, &transaction.ID, s.clock.Now())
	})
	if err != nil {
		return ledgerdomain.PaymentTransaction{}, err
	}

	result, err := s.processor.Transfer(ctx, processor.TransferRequest{
		IdempotencyKey:  transaction.IdempotencyKey,
		PayoutAccountID: worker.PayoutAccountID,
		AmountCents:     transaction.NetAmountCents,
	})
	if err != nil {
		if _, settleErr := s.ledger.Settle(ctx, ledgerdomain.SettleRequest{
			TransactionID: transaction.ID,
			Outcome:       ledgerdomain.OutcomeFailed,
			FailureReason: err.Error(),
		}); settleErr != nil {
			s.log.Error("failed to settle payout transaction", zap.Error(settleErr))
		}
		return ledgerdomain.PaymentTransaction{}, err
	}

	settled, err := s.ledger.Settle(ctx, ledgerdomain.SettleRequest{
		TransactionID: transaction.ID,
		Outcome:       ledgerdomain.OutcomeSucceeded,
		ExternalID:    result.ExternalID,
	})
	if err != nil {
		return ledgerdomain.PaymentTransaction{}, err
	}

	s.metrics.RecordPayout(ctx, string(worker.PaymentPreference))
	s.log.Info("worker paid",
		zap.String("worker_id", worker.ID.String()),
		zap.String("transaction_id", settled.ID.String()),
		zap.Int64("amount_cents", settled.NetAmountCents),
		zap.Int("entries", len(entries)),
	)
	return settled, nil
}

func (s *Service) RunBatch(ctx context.Context, asOf time.Time) (domain.BatchResult, error) {
	cfg := s.runConfig.Get()
	result := domain.BatchResult{DryRun: cfg.DryRun}

	companies, err := s.timesheet.ListCompaniesWithScheduled(ctx, s.db, asOf)
	if err != nil {
		return result, err
	}
	result.Companies = len(companies)

	for _, companyID := range companies {
		companyCtx := tenantctx.WithCompanyID(ctx, companyID)

		settings, err := s.settings.GetForCompany(companyCtx, companyID)
		if err != nil {
			s.log.Error("failed to load company settings", zap.String("company_id", companyID.String()), zap.Error(err))
			continue
		}
		if !settings.AutoPayWorkers {
			continue
		}

		workerIDs, err := s.timesheet.ListScheduledWorkers(companyCtx, s.db, companyID, asOf)
		if err != nil {
			s.log.Error("failed to list scheduled workers", zap.String("company_id", companyID.String()), zap.Error(err))
			continue
		}

		for _, workerID := range workerIDs {
			if cfg.BatchSize > 0 && result.Workers >= cfg.BatchSize {
				return result, nil
			}
			result.Workers++

			worker, err := s.workers.FindByID(companyCtx, s.db, companyID, workerID)
			if err != nil || worker == nil {
				result.Skipped++
				continue
			}
			if worker.PaymentPreference == workerdomain.PaymentPreferencePerJob {
				result.Skipped++
				continue
			}
			// Bi-weekly workers are paid on even ISO weeks only.
			if worker.PaymentPreference == workerdomain.PaymentPreferenceBiWeekly {
				if _, week := asOf.ISOWeek(); week%2 != 0 {
					result.Skipped++
					continue
				}
			}

			if cfg.DryRun {
				result.Skipped++
				continue
			}

			transaction, err := s.PayoutWorker(companyCtx, companyID, workerID, asOf)
			if err != nil {
				result.Failed++
				continue
			}
			result.Paid++
			result.AmountCents += transaction.NetAmountCents
		}
	}

	s.log.Info("payout batch finished",
		zap.Int("companies", result.Companies),
		zap.Int("workers", result.Workers),
		zap.Int("paid", result.Paid),
		zap.Int("failed", result.Failed),
		zap.Int64("amount_cents", result.AmountCents),
		zap.Bool("dry_run", result.DryRun),
	)
	return result, nil
}
