package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	workerdomain "github.com/helprs/fieldpay/internal/worker/domain"
)

// Aggregation is one worker's payable labor over a period.
type Aggregation struct {
	WorkerID          string                       `json:"worker_id"`
	TotalHours        float64                      `json:"total_hours"`
	TotalAmountCents  int64                        `json:"total_amount_cents"`
	PaymentPreference workerdomain.PaymentPreference `json:"payment_preference"`
	Entries           []timesheetdomain.TimeEntry  `json:"entries"`
}

// BatchResult summarizes one scheduled payout run.
type BatchResult struct {
	Companies   int   `json:"companies"`
	Workers     int   `json:"workers"`
	Paid        int   `json:"paid"`
	Failed      int   `json:"failed"`
	Skipped     int   `json:"skipped"`
	AmountCents int64 `json:"amount_cents"`
	DryRun      bool  `json:"dry_run"`
}

type Service interface {
	// AggregateForPeriod reduces the worker's pending entries within
	// [start, end]. Payment preference comes from the worker profile and
	// defaults to weekly when no profile is found.
	AggregateForPeriod(ctx context.Context, workerID string, start, end time.Time) (Aggregation, error)
	// PayoutForAppointment pays each per_job worker their scheduled
	// entries on the appointment, immediately after final payment.
	PayoutForAppointment(ctx context.Context, companyID, appointmentID snowflake.ID) ([]ledgerdomain.PaymentTransaction, error)
	// PayoutWorker settles every scheduled entry for the worker with
	// clock-in up to asOf in one payout transaction.
	PayoutWorker(ctx context.Context, companyID, workerID snowflake.ID, asOf time.Time) (ledgerdomain.PaymentTransaction, error)
	// RunBatch walks every company with scheduled entries and pays their
	// weekly and bi-weekly workers. Invoked by the payout scheduler.
	RunBatch(ctx context.Context, asOf time.Time) (BatchResult, error)
}

var (
	ErrInvalidCompany       = errors.New("invalid_company")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidTimeRange     = errors.New("invalid_time_range")
	ErrNotFound             = errors.New("not_found")
	ErrNoPayableEntries     = errors.New("no_payable_entries")
	ErrMissingPayoutAccount = errors.New("missing_payout_account")
)
