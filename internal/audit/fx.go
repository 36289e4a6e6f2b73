package audit

import (
	"github.com/helprs/fieldpay/internal/audit/repository"
	"github.com/helprs/fieldpay/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
