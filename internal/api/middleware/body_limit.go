package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stargate/backend/pkg/response"
)

const codeBodyTooLarge = 10005

// BodyLimit 请求体大小限制
// 已声明 Content-Length 的超限请求直接返回 413；其余请求体由 MaxBytesReader 截断，
// 读取时产生的 *http.MaxBytesError 由 handler 通过 IsBodyTooLarge 识别
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			RespondBodyTooLarge(c)
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// IsBodyTooLarge 判断读取请求体的错误是否因超出 BodyLimit
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// RespondBodyTooLarge 输出统一的 413 响应
func RespondBodyTooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "请求体过大")
}
