package settings

import (
	"github.com/helprs/fieldpay/internal/settings/repository"
	"github.com/helprs/fieldpay/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
