package appointment

import (
	"github.com/helprs/fieldpay/internal/appointment/repository"
	"github.com/helprs/fieldpay/internal/appointment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("appointment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
