package processor

import (
	"time"

	"github.com/helprs/fieldpay/internal/config"
	"github.com/helprs/fieldpay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

func Provide(p Params) Processor {
	stub := NewStub(p.Log)
	return NewRetrying(stub, p.Log, p.Metrics,
		time.Duration(p.Config.ProcessorTimeoutSeconds)*time.Second,
		p.Config.ProcessorMaxRetries,
	)
}

var Module = fx.Module("processor",
	fx.Provide(Provide),
)
