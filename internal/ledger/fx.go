package ledger

import (
	"github.com/helprs/fieldpay/internal/ledger/repository"
	"github.com/helprs/fieldpay/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
