package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/tenantctx"
	"github.com/helprs/fieldpay/internal/worker/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("worker.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateWorkerRequest) (domain.Worker, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.Worker{}, domain.ErrInvalidCompany
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Worker{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Worker{}, domain.ErrInvalidEmail
	}
	if req.HourlyRateCents <= 0 {
		return domain.Worker{}, domain.ErrInvalidRate
	}

	preference := domain.PaymentPreference(strings.TrimSpace(req.PaymentPreference))
	if preference == "" {
		preference = domain.PaymentPreferenceWeekly
	}
	if !preference.Valid() {
		return domain.Worker{}, domain.ErrInvalidPreference
	}

	now := s.clock.Now()
	worker := domain.Worker{
		ID:                s.genID.Generate(),
		CompanyID:         companyID,
		Name:              name,
		Email:             email,
		HourlyRateCents:   req.HourlyRateCents,
		PaymentPreference: preference,
		PayoutAccountID:   strings.TrimSpace(req.PayoutAccountID),
		Active:            true,
		Metadata:          datatypes.JSONMap{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, s.db, &worker); err != nil {
		return domain.Worker{}, err
	}

	return worker, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetWorkerRequest) (domain.Worker, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.Worker{}, domain.ErrInvalidCompany
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.Worker{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, companyID, id)
	if err != nil {
		return domain.Worker{}, err
	}
	if item == nil {
		return domain.Worker{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListWorkerRequest) (domain.ListWorkerResponse, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.ListWorkerResponse{}, domain.ErrInvalidCompany
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, companyID, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListWorkerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(worker *domain.Worker) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        worker.ID.String(),
			CreatedAt: worker.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	workers := make([]domain.Worker, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		workers = append(workers, *item)
	}

	resp := domain.ListWorkerResponse{Workers: workers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) UpdatePreference(ctx context.Context, req domain.UpdatePreferenceRequest) (domain.Worker, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.Worker{}, domain.ErrInvalidCompany
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.Worker{}, err
	}

	preference := domain.PaymentPreference(strings.TrimSpace(req.Preference))
	if !preference.Valid() {
		return domain.Worker{}, domain.ErrInvalidPreference
	}

	item, err := s.repo.FindByID(ctx, s.db, companyID, id)
	if err != nil {
		return domain.Worker{}, err
	}
	if item == nil {
		return domain.Worker{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	if err := s.repo.UpdatePreference(ctx, s.db, companyID, id, preference, now); err != nil {
		return domain.Worker{}, err
	}

	item.PaymentPreference = preference
	item.UpdatedAt = now
	return *item, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
