package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"stargate/backend/internal/metrics"
)

// Metrics HTTP 请求指标中间件；route 使用注册时的路由模板，避免姓名进入标签
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
