package badge

import (
	"github.com/pointagehq/pointage/internal/badge/repository"
	"github.com/pointagehq/pointage/internal/badge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("badge.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideEvents),
	fx.Provide(service.NewService),
)
