package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/helprs/fieldpay/internal/appointment"
	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	"github.com/helprs/fieldpay/internal/audit"
	auditdomain "github.com/helprs/fieldpay/internal/audit/domain"
	"github.com/helprs/fieldpay/internal/config"
	"github.com/helprs/fieldpay/internal/customer"
	customerdomain "github.com/helprs/fieldpay/internal/customer/domain"
	"github.com/helprs/fieldpay/internal/ledger"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
	"github.com/helprs/fieldpay/internal/notify"
	"github.com/helprs/fieldpay/internal/observability"
	obsmiddleware "github.com/helprs/fieldpay/internal/observability/logger"
	obsmetrics "github.com/helprs/fieldpay/internal/observability/metrics"
	obstracing "github.com/helprs/fieldpay/internal/observability/tracing"
	"github.com/helprs/fieldpay/internal/payout"
	payoutdomain "github.com/helprs/fieldpay/internal/payout/domain"
	"github.com/helprs/fieldpay/internal/processor"
	"github.com/helprs/fieldpay/internal/settings"
	settingsdomain "github.com/helprs/fieldpay/internal/settings/domain"
	"github.com/helprs/fieldpay/internal/timesheet"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	"github.com/helprs/fieldpay/internal/worker"
	workerdomain "github.com/helprs/fieldpay/internal/worker/domain"
	"github.com/helprs/fieldpay/internal/workflow"
	workflowdomain "github.com/helprs/fieldpay/internal/workflow/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	customer.Module,
	worker.Module,
	settings.Module,
	appointment.Module,
	timesheet.Module,
	ledger.Module,
	processor.Module,
	notify.Module,
	payout.Module,
	workflow.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	auditSvc       auditdomain.Service
	customerSvc    customerdomain.Service
	workerSvc      workerdomain.Service
	settingsSvc    settingsdomain.Service
	appointmentSvc appointmentdomain.Service
	timesheetSvc   timesheetdomain.Service
	ledgerSvc      ledgerdomain.Service
	workflowSvc    workflowdomain.Service
	payoutSvc      payoutdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	AuditSvc       auditdomain.Service
	CustomerSvc    customerdomain.Service
	WorkerSvc      workerdomain.Service
	SettingsSvc    settingsdomain.Service
	AppointmentSvc appointmentdomain.Service
	TimesheetSvc   timesheetdomain.Service
	LedgerSvc      ledgerdomain.Service
	WorkflowSvc    workflowdomain.Service
	PayoutSvc      payoutdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		auditSvc:       p.AuditSvc,
		customerSvc:    p.CustomerSvc,
		workerSvc:      p.WorkerSvc,
		settingsSvc:    p.SettingsSvc,
		appointmentSvc: p.AppointmentSvc,
		timesheetSvc:   p.TimesheetSvc,
		ledgerSvc:      p.LedgerSvc,
		workflowSvc:    p.WorkflowSvc,
		payoutSvc:      p.PayoutSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(CompanyContext())

	v1.POST("/customers", s.CreateCustomer)
	v1.GET("/customers", s.ListCustomers)
	v1.GET("/customers/:id", s.GetCustomer)

	v1.POST("/workers", s.CreateWorker)
	v1.GET("/workers", s.ListWorkers)
	v1.GET("/workers/:id", s.GetWorker)
	v1.PATCH("/workers/:id/preference", s.UpdateWorkerPreference)

	v1.POST("/appointments", s.CreateAppointment)
	v1.GET("/appointments", s.ListAppointments)
	v1.GET("/appointments/:id", s.GetAppointment)
	v1.PATCH("/appointments/:id/status", s.UpdateAppointmentStatus)
	v1.GET("/appointments/:id/cost", s.ResolveAppointmentCost)

	v1.POST("/appointments/:id/time-entries/clock-in", s.ClockIn)
	v1.POST("/appointments/:id/time-entries/clock-out", s.ClockOut)
	v1.GET("/appointments/:id/time-entries", s.ListTimeEntries)

	v1.POST("/appointments/:id/deposit", s.ProcessDeposit)
	v1.POST("/appointments/:id/request-approval", s.RequestApproval)
	v1.POST("/appointments/:id/approve", s.ApproveHours)
	v1.POST("/appointments/:id/final-payment", s.ProcessFinalPayment)

	v1.GET("/transactions", s.ListTransactions)
	v1.GET("/transactions/:id", s.GetTransaction)
	v1.GET("/transactions/:id/events", s.ListTransactionEvents)
	v1.POST("/transactions/:id/refund", s.RefundTransaction)
	v1.POST("/transactions/:id/dispute", s.DisputeTransaction)

	v1.GET("/settings", s.GetSettings)
	v1.PUT("/settings", s.UpdateSettings)

	v1.GET("/payouts/aggregation", s.AggregatePayout)
	v1.POST("/payouts/run", s.RunPayoutBatch)

	v1.GET("/audit-logs", s.ListAuditLogs)
}
