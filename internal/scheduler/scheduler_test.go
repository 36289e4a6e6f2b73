package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/config"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
	payoutdomain "github.com/helprs/fieldpay/internal/payout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockPayoutSvc struct {
	runs []time.Time
	err  error
}

func (m *mockPayoutSvc) AggregateForPeriod(ctx context.Context, workerID string, start, end time.Time) (payoutdomain.Aggregation, error) {
	return payoutdomain.Aggregation{}, nil
}

func (m *mockPayoutSvc) PayoutForAppointment(ctx context.Context, companyID, appointmentID snowflake.ID) ([]ledgerdomain.PaymentTransaction, error) {
	return nil, nil
}

func (m *mockPayoutSvc) PayoutWorker(ctx context.Context, companyID, workerID snowflake.ID, asOf time.Time) (ledgerdomain.PaymentTransaction, error) {
	return ledgerdomain.PaymentTransaction{}, nil
}

func (m *mockPayoutSvc) RunBatch(ctx context.Context, asOf time.Time) (payoutdomain.BatchResult, error) {
	m.runs = append(m.runs, asOf)
	return payoutdomain.BatchResult{Paid: 1}, m.err
}

func newTestScheduler(t *testing.T, fake *clock.FakeClock, payout payoutdomain.Service) *Scheduler {
	t.Helper()

	runConfig := &config.PayoutRunConfigHolder{}
	cfg := config.DefaultPayoutRunConfig()
	cfg.WeeklyDay = time.Friday
	runConfig.Set(cfg)

	return New(Params{
		Log:       zaptest.NewLogger(t),
		Clock:     fake,
		RunConfig: runConfig,
		Payout:    payout,
	})
}

func TestRunOnceOnlyFiresOnConfiguredDay(t *testing.T) {
	// 2026-03-02 is a Monday.
	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	payout := &mockPayoutSvc{}
	s := newTestScheduler(t, fake, payout)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, payout.runs)

	// Jump to Friday.
	fake.Set(time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.RunOnce(context.Background()))
	require.Len(t, payout.runs, 1)
	assert.Equal(t, fake.Now(), payout.runs[0])
}

func TestRunOncePropagatesBatchError(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC))
	payout := &mockPayoutSvc{err: context.DeadlineExceeded}
	s := newTestScheduler(t, fake, payout)

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, payout.runs, 1)
}
