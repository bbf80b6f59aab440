// Package server exposes the HTTP API: device pointage endpoints, employee
// self-service, and the admin surface for badges, topology and reports.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/pointagehq/pointage/internal/account/domain"
	"github.com/pointagehq/pointage/internal/authorization"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	"github.com/pointagehq/pointage/internal/config"
	"github.com/pointagehq/pointage/internal/observability/logger"
	"github.com/pointagehq/pointage/internal/observability/metrics"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	paymentdomain "github.com/pointagehq/pointage/internal/payment/domain"
	pointagedomain "github.com/pointagehq/pointage/internal/pointage/domain"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	contextUserIDKey = "user_id"
	contextOrgKey    = "org_id"
	contextRoleKey   = "user_role"

	pointageRateLimit  = 30
	pointageRateWindow = time.Minute
)

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`

	PointageSvc pointagedomain.Service
	WorktimeSvc worktimedomain.Service
	BadgeSvc    badgedomain.Service
	TopologySvc topodomain.Service
	OrgSvc      organizationdomain.Service
	AccountSvc  accountdomain.Service
	PaymentSvc  paymentdomain.Service
	AuthzSvc    authorization.Service
}

type Server struct {
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	httpMetrics *metrics.HTTPMetrics

	pointageSvc pointagedomain.Service
	worktimeSvc worktimedomain.Service
	badgeSvc    badgedomain.Service
	topologySvc topodomain.Service
	orgSvc      organizationdomain.Service
	accountSvc  accountdomain.Service
	paymentSvc  paymentdomain.Service
	authzSvc    authorization.Service

	scanLimiter *rateLimiter

	locOnce sync.Once
	loc     *time.Location
	locErr  error
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		db:          p.DB,
		httpMetrics: p.HTTPMetrics,
		pointageSvc: p.PointageSvc,
		worktimeSvc: p.WorktimeSvc,
		badgeSvc:    p.BadgeSvc,
		topologySvc: p.TopologySvc,
		orgSvc:      p.OrgSvc,
		accountSvc:  p.AccountSvc,
		paymentSvc:  p.PaymentSvc,
		authzSvc:    p.AuthzSvc,
		scanLimiter: newRateLimiter(pointageRateLimit, pointageRateWindow),
	}
}

// Router wires every route with its middleware chain.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	if s.httpMetrics != nil {
		r.Use(metrics.GinMiddleware(s.httpMetrics))
	}

	r.GET("/healthz", s.Health)
	if s.cfg.PrometheusEnable {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.POST("/webhooks/stripe", s.StripeWebhook)

	v1 := r.Group("/v1")
	v1.POST("/auth/login", s.Login)

	device := v1.Group("/device", s.DeviceKeyRequired(), s.ScanRateLimit())
	device.POST("/pointage", s.RecordPointage)

	me := v1.Group("/me", s.UserTokenRequired())
	me.GET("/status", s.MyStatus)
	me.GET("/summary", s.MySummary)
	me.GET("/summary/weekly", s.MyWeeklySummary)
	me.GET("/summary/monthly", s.MyMonthlySummary)
	me.GET("/export", s.ExportMyData)
	me.PATCH("", s.UpdateMyProfile)
	me.DELETE("", s.DeactivateMyAccount)

	coffee := v1.Group("/coffee", s.UserTokenRequired())
	coffee.POST("/checkout", s.CreateCoffeeCheckout)
	coffee.GET("", s.ListCoffeePayments)

	admin := v1.Group("/admin", s.UserTokenRequired(), s.AdminRequired())
	admin.POST("/pointage", s.RecordManualPointage)
	admin.GET("/users", s.ListUsers)
	admin.POST("/users", s.CreateUser)
	admin.GET("/users/:id/status", s.UserStatus)
	admin.GET("/users/:id/summary", s.UserSummary)
	admin.GET("/users/:id/summary/monthly", s.UserMonthlySummary)
	admin.GET("/users/:id/summary/monthly/export", s.UserMonthlyWorkbook)
	admin.GET("/reports/org", s.OrgReport)
	admin.GET("/badges", s.ListBadges)
	admin.POST("/badges", s.IssueBadge)
	admin.POST("/badges/assign", s.AssignBadge)
	admin.DELETE("/badges/assignments/:id", s.RevokeAssignment)
	admin.GET("/readers", s.ListReaders)
	admin.POST("/readers", s.CreateReader)
	admin.POST("/readers/:id/keys", s.IssueReaderKey)
	admin.POST("/readers/:id/zones/:zoneID", s.LinkReaderZone)
	admin.GET("/zones", s.ListZones)
	admin.POST("/zones", s.CreateZone)
	admin.POST("/grants", s.GrantAccess)
	admin.POST("/organisations", s.CreateOrganisation)

	return r
}

func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(runServer),
)

func runServer(lc fx.Lifecycle, s *Server) {
	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", s.cfg.HTTPAddr))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}
