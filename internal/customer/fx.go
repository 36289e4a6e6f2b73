package customer

import (
	"github.com/helprs/fieldpay/internal/customer/repository"
	"github.com/helprs/fieldpay/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
