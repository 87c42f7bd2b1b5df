package service

import (
	"go.uber.org/zap"

	"stargate/backend/config"
	"stargate/backend/internal/metrics"
	"stargate/backend/internal/repository"
	"stargate/backend/pkg/jwt"
	"stargate/backend/pkg/lock"
	"stargate/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth   AuthService
	Person PersonService
	Duty   DutyService
	Export ExportService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时：Token 黑名单不可用，人员锁退化为进程内锁
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	var (
		blacklist TokenBlacklist
		locker    lock.Locker
	)
	if rdb != nil {
		blacklist = rdb
		locker = lock.NewRedis(rdb, cfg.Duty.LockTTL, cfg.Duty.LockWait, logger)
	} else {
		locker = lock.NewLocal(cfg.Duty.LockWait)
	}

	return &Service{
		Auth:   NewAuthService(&cfg.Auth, jwtMgr, blacklist, logger),
		Person: NewPersonService(repo, logger),
		Duty: NewDutyService(repo, locker, m, DutyOptions{
			EnforceChronology: cfg.Duty.EnforceChronology,
		}, logger),
		Export: NewExportService(repo, logger),
	}
}
