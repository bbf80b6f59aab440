package payment

import (
	"github.com/pointagehq/pointage/internal/config"
	"github.com/pointagehq/pointage/internal/payment/adapters/stripe"
	paymentdomain "github.com/pointagehq/pointage/internal/payment/domain"
	"github.com/pointagehq/pointage/internal/payment/repository"
	"github.com/pointagehq/pointage/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) paymentdomain.Provider {
		return stripe.New(cfg)
	}),
	fx.Provide(service.NewService),
)
