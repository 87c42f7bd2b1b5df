package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stargate/backend/internal/api/middleware"
	pkgerrors "stargate/backend/pkg/errors"
	"stargate/backend/pkg/jwt"
	"stargate/backend/pkg/response"
)

// 业务码前缀：1xxxx 通用，2xxxx 人员，3xxxx 值勤
const (
	codeBadParams    = 10001
	codeUnauthorized = 10002
	codeLoginFailed  = 11001
	codePersonBase   = 20000
	codeDutyBase     = 30000
)

// MustGetOperator 从 Gin 上下文中安全提取操作员用户名。
// 如果 JWT 中间件未正确注入 username，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetOperator(c *gin.Context) (string, bool) {
	v, exists := c.Get("username")
	if !exists {
		response.Unauthorized(c, codeUnauthorized, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, codeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 从 Gin 上下文中提取完整的 JWT 声明（登出时需要 JTI 与过期时间）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, codeUnauthorized, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, codeUnauthorized, "未认证")
		return nil, false
	}
	return claims, true
}

// respondError 按错误分类写入响应
// base 为模块业务码前缀：+1 不存在，+2 输入无效，+3 冲突
func respondError(c *gin.Context, base int, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.ErrorWithDetails(c, http.StatusNotFound, base+1, pkgerrors.ErrNotFound.Error(), err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidInput):
		response.ErrorWithDetails(c, http.StatusBadRequest, base+2, pkgerrors.ErrInvalidInput.Error(), err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.ErrorWithDetails(c, http.StatusConflict, base+3, pkgerrors.ErrConflict.Error(), err.Error())
	default:
		// 不变量被破坏与存储错误不向客户端暴露细节，已在 service 层记录
		response.InternalError(c)
	}
}

// bindFailed 请求体解析失败：超出 BodyLimit 返回 413，其余返回 400
func bindFailed(c *gin.Context, err error, msg string) {
	if middleware.IsBodyTooLarge(err) {
		middleware.RespondBodyTooLarge(c)
		return
	}
	response.BadRequest(c, codeBadParams, msg)
}
