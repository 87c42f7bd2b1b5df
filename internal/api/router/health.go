package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stargate/backend/pkg/database"
)

const healthTimeout = 2 * time.Second

// health 数据库不可用时返回 503；Redis 不可用只标记降级
func health(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"db": "ok", "redis": "disabled"}

		if deps.DB != nil {
			if err := database.Ping(ctx, deps.DB); err != nil {
				status = http.StatusServiceUnavailable
				checks["db"] = "down"
				deps.Logger.Warn("健康检查：数据库不可用", zap.Error(err))
			}
		}
		if deps.Redis != nil {
			checks["redis"] = "ok"
			if err := deps.Redis.Ping(ctx); err != nil {
				checks["redis"] = "degraded"
				deps.Logger.Warn("健康检查：Redis 不可用", zap.Error(err))
			}
		}

		state := "ok"
		if status != http.StatusOK {
			state = "unavailable"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks})
	}
}
