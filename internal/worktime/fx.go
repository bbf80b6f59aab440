package worktime

import (
	"github.com/pointagehq/pointage/internal/worktime/service"
	"go.uber.org/fx"
)

var Module = fx.Module("worktime.service",
	fx.Provide(service.NewService),
)
