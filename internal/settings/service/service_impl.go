package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/config"
	"github.com/helprs/fieldpay/internal/settings/domain"
	"github.com/helprs/fieldpay/internal/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   config.Config
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("settings.service"),
		cfg:   p.Cfg,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context) (domain.PaymentSettings, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.PaymentSettings{}, domain.ErrInvalidCompany
	}
	return s.GetForCompany(ctx, companyID)
}

func (s *Service) GetForCompany(ctx context.Context, companyID snowflake.ID) (domain.PaymentSettings, error) {
	if companyID == 0 {
		return domain.PaymentSettings{}, domain.ErrInvalidCompany
	}

	item, err := s.repo.Find(ctx, s.db, companyID)
	if err != nil {
		return domain.PaymentSettings{}, err
	}
	if item == nil {
		return s.defaults(companyID), nil
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.PaymentSettings, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.PaymentSettings{}, domain.ErrInvalidCompany
	}

	current, err := s.GetForCompany(ctx, companyID)
	if err != nil {
		return domain.PaymentSettings{}, err
	}

	if req.PlatformFeeBPS != nil {
		bps := *req.PlatformFeeBPS
		if bps < 0 || bps > 10000 {
			return domain.PaymentSettings{}, domain.ErrInvalidFeeBPS
		}
		current.PlatformFeeBPS = bps
	}
	if req.PayoutSchedule != nil {
		schedule := domain.PayoutSchedule(strings.TrimSpace(*req.PayoutSchedule))
		if !schedule.Valid() {
			return domain.PaymentSettings{}, domain.ErrInvalidSchedule
		}
		current.PayoutSchedule = schedule
	}
	if req.AutoPayWorkers != nil {
		current.AutoPayWorkers = *req.AutoPayWorkers
	}

	now := s.clock.Now()
	if current.CreatedAt.IsZero() {
		current.CreatedAt = now
	}
	current.UpdatedAt = now

	if err := s.repo.Upsert(ctx, s.db, &current); err != nil {
		return domain.PaymentSettings{}, err
	}

	return current, nil
}

func (s *Service) defaults(companyID snowflake.ID) domain.PaymentSettings {
	return domain.PaymentSettings{
		CompanyID:      companyID,
		PlatformFeeBPS: s.cfg.DefaultPlatformFeeBPS,
		PayoutSchedule: domain.PayoutScheduleWeekly,
		AutoPayWorkers: true,
	}
}
