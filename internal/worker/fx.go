package worker

import (
	"github.com/helprs/fieldpay/internal/worker/repository"
	"github.com/helprs/fieldpay/internal/worker/service"
	"go.uber.org/fx"
)

var Module = fx.Module("worker.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
