// Package scheduler drives the recurring payout batch. The core payout
// logic lives in the payout service; this package only decides when a
// run happens and which instance runs it.
package scheduler

import (
	"context"
	"time"

	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/config"
	payoutdomain "github.com/helprs/fieldpay/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const payoutLockKey = "fieldpay:payout_batch"

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	RunConfig *config.PayoutRunConfigHolder
	Payout    payoutdomain.Service
	Locker    *Locker `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	clock     clock.Clock
	runConfig *config.PayoutRunConfigHolder
	payout    payoutdomain.Service
	locker    *Locker
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:       p.Log.Named("scheduler"),
		clock:     p.Clock,
		runConfig: p.RunConfig,
		payout:    p.Payout,
		locker:    p.Locker,
	}
}

// RunOnce runs the payout batch if the tick falls on the configured day.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	cfg := s.runConfig.Get()
	now := s.clock.Now()
	if now.Weekday() != cfg.WeeklyDay {
		return nil
	}

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, payoutLockKey, cfg.LockTTL)
		if err != nil {
			s.log.Warn("payout lock unavailable", zap.Error(err))
			return err
		}
		if !ok {
			s.log.Debug("payout batch already running elsewhere")
			return nil
		}
		defer func() {
			if err := s.locker.Release(ctx, payoutLockKey, token); err != nil {
				s.log.Warn("failed to release payout lock", zap.Error(err))
			}
		}()
	}

	result, err := s.payout.RunBatch(ctx, now)
	if err != nil {
		s.log.Error("payout batch failed", zap.Error(err))
		return err
	}
	s.log.Info("payout batch complete",
		zap.Int("paid", result.Paid),
		zap.Int("failed", result.Failed),
		zap.Int64("amount_cents", result.AmountCents),
	)
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.runConfig.Get().Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
