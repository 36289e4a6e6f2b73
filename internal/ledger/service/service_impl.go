package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	"github.com/helprs/fieldpay/internal/clock"
	"github.com/helprs/fieldpay/internal/fees"
	"github.com/helprs/fieldpay/internal/ledger/domain"
	"github.com/helprs/fieldpay/internal/observability/metrics"
	"github.com/helprs/fieldpay/internal/tenantctx"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	"github.com/helprs/fieldpay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Metrics      *metrics.Metrics
	Repo         domain.Repository
	Appointments appointmentdomain.Repository
	Timesheet    timesheetdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	metrics      *metrics.Metrics
	repo         domain.Repository
	appointments appointmentdomain.Repository
	timesheet    timesheetdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("ledger.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		metrics:      p.Metrics,
		repo:         p.Repo,
		appointments: p.Appointments,
		timesheet:    p.Timesheet,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (domain.PaymentTransaction, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.PaymentTransaction{}, domain.ErrInvalidCompany
	}
	return s.RecordTx(ctx, s.db, companyID, req)
}

func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, req domain.RecordRequest) (domain.PaymentTransaction, error) {
	if companyID == 0 {
		return domain.PaymentTransaction{}, domain.ErrInvalidCompany
	}
	if !req.TransactionType.Valid() {
		return domain.PaymentTransaction{}, domain.ErrInvalidType
	}
	if req.GrossAmountCents <= 0 {
		return domain.PaymentTransaction{}, domain.ErrInvalidAmount
	}

	breakdown, err := s.breakdown(req)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}
	if breakdown.NegativeNet() {
		return domain.PaymentTransaction{}, domain.ErrNegativeNet
	}

	transaction, err := s.build(companyID, req, breakdown)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}

	if err := s.repo.Insert(ctx, tx, &transaction); err != nil {
		return domain.PaymentTransaction{}, err
	}
	event := domain.PaymentTransactionEvent{
		ID:            s.genID.Generate(),
		CompanyID:     companyID,
		TransactionID: transaction.ID,
		EventType:     domain.EventCreated,
		ToStatus:      domain.StatusPending,
		CreatedAt:     transaction.CreatedAt,
	}
	if err := s.repo.InsertEvent(ctx, tx, &event); err != nil {
		return domain.PaymentTransaction{}, err
	}

	s.metrics.RecordTransaction(ctx, string(transaction.TransactionType), string(transaction.Status))
	s.log.Info("transaction recorded",
		zap.String("transaction_id", transaction.ID.String()),
		zap.String("transaction_type", string(transaction.TransactionType)),
		zap.Int64("gross_amount_cents", transaction.GrossAmountCents),
		zap.Int64("net_amount_cents", transaction.NetAmountCents),
	)
	return transaction, nil
}

// breakdown computes fees for customer-facing rows; payouts, refunds and
// chargebacks move the gross amount untouched.
func (s *Service) breakdown(req domain.RecordRequest) (fees.Breakdown, error) {
	switch req.TransactionType {
	case domain.TypeCustomerPayment:
		breakdown, err := fees.Calculate(req.GrossAmountCents, req.PlatformFeeBPS)
		if err != nil {
			return fees.Breakdown{}, domain.ErrInvalidAmount
		}
		return breakdown, nil
	default:
		breakdown, err := fees.Zero(req.GrossAmountCents)
		if err != nil {
			return fees.Breakdown{}, domain.ErrInvalidAmount
		}
		return breakdown, nil
	}
}

func (s *Service) build(companyID snowflake.ID, req domain.RecordRequest, breakdown fees.Breakdown) (domain.PaymentTransaction, error) {
	now := s.clock.Now()
	transaction := domain.PaymentTransaction{
		ID:                s.genID.Generate(),
		CompanyID:         companyID,
		TransactionType:   req.TransactionType,
		Status:            domain.StatusPending,
		GrossAmountCents:  breakdown.GrossCents,
		PlatformFeeCents:  breakdown.PlatformFeeCents,
		ProcessorFeeCents: breakdown.ProcessorFeeCents,
		NetAmountCents:    breakdown.NetCents,
		PaymentMethodID:   strings.TrimSpace(req.PaymentMethodID),
		PayoutAccountID:   strings.TrimSpace(req.PayoutAccountID),
		IdempotencyKey:    uuid.NewString(),
		Metadata:          datatypes.JSONMap{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	switch req.TransactionType {
	case domain.TypeCustomerPayment:
		if req.CustomerID == 0 || req.AppointmentID == 0 {
			return domain.PaymentTransaction{}, domain.ErrMissingReference
		}
		if req.IsDeposit == req.IsFinalPayment {
			return domain.PaymentTransaction{}, domain.ErrInvalidFlags
		}
		transaction.CustomerID = &req.CustomerID
		transaction.AppointmentID = ref(req.AppointmentID)
		transaction.IsDeposit = req.IsDeposit
		transaction.IsFinalPayment = req.IsFinalPayment
	case domain.TypeWorkerPayout:
		if req.WorkerID == 0 {
			return domain.PaymentTransaction{}, domain.ErrMissingReference
		}
		transaction.WorkerID = &req.WorkerID
		transaction.AppointmentID = ref(req.AppointmentID)
		transaction.TimeEntryID = ref(req.TimeEntryID)
	case domain.TypeRefund, domain.TypeChargeback:
		if req.OriginalID == 0 {
			return domain.PaymentTransaction{}, domain.ErrMissingReference
		}
		transaction.OriginalTransactionID = &req.OriginalID
		transaction.CustomerID = ref(req.CustomerID)
		transaction.AppointmentID = ref(req.AppointmentID)
	}

	return transaction, nil
}

func (s *Service) Settle(ctx context.Context, req domain.SettleRequest) (domain.PaymentTransaction, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.PaymentTransaction{}, domain.ErrInvalidCompany
	}

	var settled domain.PaymentTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		settled, err = s.SettleTx(ctx, tx, companyID, req)
		return err
	})
	if err != nil {
		return domain.PaymentTransaction{}, err
	}
	return settled, nil
}

func (s *Service) SettleTx(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, req domain.SettleRequest) (domain.PaymentTransaction, error) {
	if companyID == 0 {
		return domain.PaymentTransaction{}, domain.ErrInvalidCompany
	}
	if req.Outcome != domain.OutcomeSucceeded && req.Outcome != domain.OutcomeFailed {
		return domain.PaymentTransaction{}, domain.ErrInvalidTransition
	}

	transaction, err := s.repo.FindByIDForUpdate(ctx, tx, companyID, req.TransactionID)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}
	if transaction == nil {
		return domain.PaymentTransaction{}, domain.ErrNotFound
	}

	target := domain.StatusSucceeded
	if req.Outcome == domain.OutcomeFailed {
		target = domain.StatusFailed
	}
	if !transaction.Status.CanTransition(target) {
		return domain.PaymentTransaction{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, tx, companyID, transaction.ID, target, req.ExternalID, req.FailureReason, now); err != nil {
		return domain.PaymentTransaction{}, err
	}
	event := domain.PaymentTransactionEvent{
		ID:            s.genID.Generate(),
		CompanyID:     companyID,
		TransactionID: transaction.ID,
		EventType:     domain.EventSettled,
		FromStatus:    transaction.Status,
		ToStatus:      target,
		Reason:        req.FailureReason,
		CreatedAt:     now,
	}
	if err := s.repo.InsertEvent(ctx, tx, &event); err != nil {
		return domain.PaymentTransaction{}, err
	}

	transaction.Status = target
	transaction.UpdatedAt = now
	if req.ExternalID != "" {
		transaction.ExternalID = req.ExternalID
	}
	if req.FailureReason != "" {
		transaction.FailureReason = req.FailureReason
	}

	// A failed settle never advances business state. A successful one
	// cascades to the row the transaction gates.
	if target == domain.StatusSucceeded {
		if err := s.cascade(ctx, tx, companyID, transaction, now); err != nil {
			return domain.PaymentTransaction{}, err
		}
	}

	s.metrics.RecordTransaction(ctx, string(transaction.TransactionType), string(target))
	s.log.Info("transaction settled",
		zap.String("transaction_id", transaction.ID.String()),
		zap.String("status", string(target)),
	)
	return *transaction, nil
}

func (s *Service) cascade(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, transaction *domain.PaymentTransaction, now time.Time) error {
	switch transaction.TransactionType {
	case domain.TypeCustomerPayment:
		if transaction.AppointmentID == nil {
			return nil
		}
		appointment, err := s.appointments.FindByIDForUpdate(ctx, tx, companyID, *transaction.AppointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return domain.ErrNotFound
		}
		if transaction.IsDeposit {
			appointment.DepositPaid = true
			appointment.DepositTransactionID = &transaction.ID
		}
		if transaction.IsFinalPayment {
			appointment.FinalPaymentStatus = appointmentdomain.FinalPaymentPaid
			appointment.FinalPaymentTransactionID = &transaction.ID
		}
		appointment.UpdatedAt = now
		return s.appointments.Update(ctx, tx, appointment)
	case domain.TypeWorkerPayout:
		return s.timesheet.MarkPaidByPayout(ctx, tx, companyID, transaction.ID, now)
	}
	return nil
}

func (s *Service) Refund(ctx context.Context, req domain.RefundRequest) (domain.PaymentTransaction, error) {
	return s.reverse(ctx, req, domain.TypeRefund, domain.StatusRefunded, domain.EventRefunded)
}

func (s *Service) Dispute(ctx context.Context, req domain.RefundRequest) (domain.PaymentTransaction, error) {
	return s.reverse(ctx, req, domain.TypeChargeback, domain.StatusDisputed, domain.EventDisputed)
}

func (s *Service) reverse(ctx context.Context, req domain.RefundRequest, txnType domain.TransactionType, target domain.Status, eventType domain.EventType) (domain.PaymentTransaction, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.PaymentTransaction{}, domain.ErrInvalidCompany
	}

	var reversal domain.PaymentTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.repo.FindByIDForUpdate(ctx, tx, companyID, req.TransactionID)
		if err != nil {
			return err
		}
		if original == nil {
			return domain.ErrNotFound
		}
		if !original.Status.CanTransition(target) {
			return domain.ErrNotRefundable
		}

		amount := req.GrossAmountCents
		if amount <= 0 {
			amount = original.GrossAmountCents
		}
		if amount > original.GrossAmountCents {
			return domain.ErrInvalidAmount
		}

		recordReq := domain.RecordRequest{
			TransactionType:  txnType,
			GrossAmountCents: amount,
			OriginalID:       original.ID,
		}
		if original.CustomerID != nil {
			recordReq.CustomerID = *original.CustomerID
		}
		if original.AppointmentID != nil {
			recordReq.AppointmentID = *original.AppointmentID
		}

		reversal, err = s.RecordTx(ctx, tx, companyID, recordReq)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.repo.UpdateStatus(ctx, tx, companyID, original.ID, target, "", req.Reason, now); err != nil {
			return err
		}
		event := domain.PaymentTransactionEvent{
			ID:            s.genID.Generate(),
			CompanyID:     companyID,
			TransactionID: original.ID,
			EventType:     eventType,
			FromStatus:    original.Status,
			ToStatus:      target,
			Reason:        req.Reason,
			CreatedAt:     now,
		}
		return s.repo.InsertEvent(ctx, tx, &event)
	})
	if err != nil {
		return domain.PaymentTransaction{}, err
	}

	s.log.Info("transaction reversed",
		zap.String("original_id", req.TransactionID.String()),
		zap.String("reversal_id", reversal.ID.String()),
		zap.String("transaction_type", string(txnType)),
	)
	return reversal, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.PaymentTransaction, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.PaymentTransaction{}, domain.ErrInvalidCompany
	}

	transactionID, err := parseID(id)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, companyID, transactionID)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}
	if item == nil {
		return domain.PaymentTransaction{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTransactionsRequest) (domain.ListTransactionsResponse, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidCompany
	}

	filter := domain.ListFilter{From: req.From, To: req.To}
	if value := strings.TrimSpace(req.TransactionType); value != "" {
		filter.TransactionType = domain.TransactionType(value)
		if !filter.TransactionType.Valid() {
			return domain.ListTransactionsResponse{}, domain.ErrInvalidType
		}
	}
	if value := strings.TrimSpace(req.Status); value != "" {
		filter.Status = domain.Status(value)
	}
	var err error
	if filter.CustomerID, err = parseOptionalID(req.CustomerID); err != nil {
		return domain.ListTransactionsResponse{}, err
	}
	if filter.WorkerID, err = parseOptionalID(req.WorkerID); err != nil {
		return domain.ListTransactionsResponse{}, err
	}
	if filter.AppointmentID, err = parseOptionalID(req.AppointmentID); err != nil {
		return domain.ListTransactionsResponse{}, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, companyID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListTransactionsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(transaction *domain.PaymentTransaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        transaction.ID.String(),
			CreatedAt: transaction.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	transactions := make([]domain.PaymentTransaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		transactions = append(transactions, *item)
	}

	resp := domain.ListTransactionsResponse{Transactions: transactions}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) ListEvents(ctx context.Context, transactionID string) ([]domain.PaymentTransactionEvent, error) {
	companyID, ok := tenantctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}

	id, err := parseID(transactionID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, s.db, companyID, id)
}

func ref(id snowflake.ID) *snowflake.ID {
	if id == 0 {
		return nil
	}
	return &id
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseOptionalID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return parseID(value)
}
