package dto

// ── 认证模块 DTO ──

// LoginRequest 操作员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=72"`
}

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresIn   int              `json:"expires_in"` // Access Token 有效期（秒）
	Operator    OperatorResponse `json:"operator"`
}

// OperatorResponse 操作员信息
type OperatorResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}
