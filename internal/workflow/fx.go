package workflow

import (
	"github.com/helprs/fieldpay/internal/workflow/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workflow.service",
	fx.Provide(service.New),
)
