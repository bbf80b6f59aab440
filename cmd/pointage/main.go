package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pointagehq/pointage/internal/account"
	"github.com/pointagehq/pointage/internal/authorization"
	"github.com/pointagehq/pointage/internal/badge"
	"github.com/pointagehq/pointage/internal/cache"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/config"
	"github.com/pointagehq/pointage/internal/events"
	"github.com/pointagehq/pointage/internal/logger"
	"github.com/pointagehq/pointage/internal/migration"
	"github.com/pointagehq/pointage/internal/observability"
	"github.com/pointagehq/pointage/internal/organization"
	"github.com/pointagehq/pointage/internal/payment"
	"github.com/pointagehq/pointage/internal/pointage"
	"github.com/pointagehq/pointage/internal/seed"
	"github.com/pointagehq/pointage/internal/server"
	"github.com/pointagehq/pointage/internal/topology"
	"github.com/pointagehq/pointage/internal/worktime"
	"github.com/pointagehq/pointage/internal/worktime/rollup"
	"github.com/pointagehq/pointage/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Provide(events.NewOutbox),
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			if err := migration.RunMigrations(conn); err != nil {
				return err
			}
			if cfg.Bootstrap.EnsureDefaultOrgAndAdmin {
				if err := seed.EnsureDefaultOrgAndAdmin(conn); err != nil {
					return err
				}
			}
			if cfg.Bootstrap.SeedDemoTopology {
				return seed.EnsureDemoTopology(conn)
			}
			return nil
		}),
		observability.Module,
		cache.Module,
		authorization.Module,
		organization.Module,
		badge.Module,
		topology.Module,
		worktime.Module,
		rollup.Module,
		pointage.Module,
		account.Module,
		payment.Module,
		server.Module,
	)
	app.Run()
}
