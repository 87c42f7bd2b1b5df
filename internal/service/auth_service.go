package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stargate/backend/config"
	"stargate/backend/internal/dto"
	"stargate/backend/pkg/jwt"
)

var ErrInvalidCredentials = errors.New("用户名或密码错误")

// TokenBlacklist Token 黑名单存储，由 pkg/redis.Client 实现
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 操作员认证业务接口
// 操作员账号来自配置文件，密码以 bcrypt 哈希保存
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将当前 Token 加入黑名单；未配置 Redis 时仅记录日志
	Logout(ctx context.Context, claims *jwt.Claims) error
}

type authService struct {
	operators []config.OperatorConfig
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例；blacklist 可为 nil
func NewAuthService(
	cfg *config.AuthConfig,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		operators: cfg.Operators,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) findOperator(username string) (config.OperatorConfig, bool) {
	for _, op := range s.operators {
		if subtle.ConstantTimeCompare([]byte(op.Username), []byte(username)) == 1 {
			return op, true
		}
	}
	return config.OperatorConfig{}, false
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查找操作员
	op, ok := s.findOperator(req.Username)
	if !ok {
		s.logger.Info("登录失败：操作员不存在", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("登录失败：密码错误", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Access Token
	accessToken, err := s.jwtMgr.GenerateAccessToken(op.Username, op.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("操作员登录", zap.String("username", op.Username), zap.String("role", op.Role))

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Operator: dto.OperatorResponse{
			Username: op.Username,
			Role:     op.Role,
		},
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil {
		s.logger.Warn("Redis 未启用，Token 在过期前仍然有效", zap.String("username", claims.Username))
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.Remaining()); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
		return err
	}
	s.logger.Info("操作员登出", zap.String("username", claims.Username))
	return nil
}
