package topology

import (
	"github.com/pointagehq/pointage/internal/topology/repository"
	"github.com/pointagehq/pointage/internal/topology/service"
	"go.uber.org/fx"
)

var Module = fx.Module("topology.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
