package timesheet

import (
	"github.com/helprs/fieldpay/internal/timesheet/repository"
	"github.com/helprs/fieldpay/internal/timesheet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timesheet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
