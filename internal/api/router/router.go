package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stargate/backend/config"
	"stargate/backend/internal/api/handler"
	"stargate/backend/internal/api/middleware"
	"stargate/backend/internal/metrics"
	"stargate/backend/pkg/jwt"
	"stargate/backend/pkg/redis"
)

// Deps 路由所需的外部依赖
type Deps struct {
	JWT      *jwt.Manager
	DB       *gorm.DB
	Redis    *redis.Client // 可为 nil：黑名单与限流降级关闭
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// nil *redis.Client 不能直接赋给接口，否则接口非 nil
	var (
		blacklist middleware.BlacklistChecker
		limiter   middleware.RateLimiter
	)
	if deps.Redis != nil {
		blacklist = deps.Redis
		limiter = deps.Redis
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger, "/health", "/metrics"))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查与指标 ──
	r.GET("/health", health(deps))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter, cfg.Server.RateLimit, cfg.Server.RateWindow))
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login", h.Auth.Login)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.JWT, blacklist, deps.Logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			admin := middleware.RoleAuth("admin")

			// 人员模块
			people := authorized.Group("/people")
			{
				people.GET("", h.Person.List)
				people.POST("", admin, h.Person.Create)
				people.POST("/import", admin, h.Person.Import)
				people.GET("/:name", h.Person.Get)
				people.PUT("/:name", admin, h.Person.Rename)
				people.GET("/:name/duties", h.Duty.ListByPerson)
				people.GET("/:name/calendar.ics", h.Export.PersonCalendar)
			}
			authorized.GET("/astronauts", h.Person.ListAstronauts)

			// 值勤模块
			duties := authorized.Group("/duties")
			{
				duties.GET("", h.Duty.List)
				duties.POST("", admin, h.Duty.Assign)
			}

			// 导出模块
			authorized.GET("/export/duties", admin, h.Export.ExportDuties)
		}
	}

	return r
}
