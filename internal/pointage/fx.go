package pointage

import (
	"github.com/pointagehq/pointage/internal/pointage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pointage.service",
	fx.Provide(service.NewService),
)
