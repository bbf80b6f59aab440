package organization

import (
	"github.com/pointagehq/pointage/internal/organization/repository"
	"github.com/pointagehq/pointage/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
