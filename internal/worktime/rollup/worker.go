package rollup

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/observability/metrics"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rollup is one precomputed day for one user.
type Rollup struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OrgID        snowflake.ID `gorm:"not null;index"`
	UserID       snowflake.ID `gorm:"not null;uniqueIndex:ux_worktime_rollups_user_date,priority:1"`
	Date         string       `gorm:"type:text;not null;uniqueIndex:ux_worktime_rollups_user_date,priority:2"`
	TotalMinutes int64        `gorm:"not null"`
	AnomalyCount int          `gorm:"not null"`
	ComputedAt   time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Rollup) TableName() string { return "worktime_rollups" }

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	OrgRepo  organizationdomain.Repository
	Worktime worktimedomain.Service
	Config   Config `optional:"true"`
}

type Worker struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	orgRepo  organizationdomain.Repository
	worktime worktimedomain.Service
	cfg      Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:       p.DB,
		log:      p.Log.Named("worktime.rollup"),
		clock:    p.Clock,
		genID:    p.GenID,
		orgRepo:  p.OrgRepo,
		worktime: p.Worktime,
		cfg:      p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("worktime rollup run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	orgs, err := w.orgRepo.ListOrganisations(ctx)
	if err != nil {
		return err
	}

	now := w.clock.Now()
	from := now.AddDate(0, 0, -w.cfg.Lookback)

	for _, org := range orgs {
		users, err := w.orgRepo.ListUsersByOrg(ctx, org.ID)
		if err != nil {
			return err
		}
		for _, user := range users {
			summary, err := w.worktime.RangeSummary(ctx, user.ID, from, now)
			if err != nil {
				return err
			}
			if err := w.upsertDays(ctx, org.ID, user.ID, summary, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Worker) upsertDays(ctx context.Context, orgID, userID snowflake.ID, summary worktimedomain.WorkingTimeSummary, now time.Time) error {
	anomaliesByDate := map[string]int{}
	for _, anomaly := range summary.Anomalies {
		anomaliesByDate[anomaly.Date]++
	}

	for _, day := range summary.Days {
		row := Rollup{
			ID:           w.genID.Generate(),
			OrgID:        orgID,
			UserID:       userID,
			Date:         day.Date,
			TotalMinutes: day.TotalMinutes,
			AnomalyCount: anomaliesByDate[day.Date],
			ComputedAt:   now,
		}
		err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_minutes", "anomaly_count", "computed_at"}),
		}).Create(&row).Error
		if err != nil {
			metrics.Pointage().IncRollup("failed")
			return err
		}
		metrics.Pointage().IncRollup("success")
	}
	return nil
}
