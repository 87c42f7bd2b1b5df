package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisClient 分布式锁所需的 Redis 操作，由 pkg/redis.Client 实现
type RedisClient interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) (bool, error)
}

const (
	minBackoff = 10 * time.Millisecond
	maxBackoff = 200 * time.Millisecond
)

// Redis 基于 SET NX PX 的分布式锁，释放时校验持有者令牌
type Redis struct {
	client RedisClient
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedis 创建分布式锁；ttl 为锁自动过期时长，wait 为获取的最长等待
func NewRedis(client RedisClient, ttl, wait time.Duration, logger *zap.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, wait: wait, logger: logger}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	backoff := minBackoff
	for {
		ok, err := r.client.TryLock(waitCtx, key, token, r.ttl)
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, waitErr(ctx, waitCtx.Err())
			}
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			return nil, waitErr(ctx, waitCtx.Err())
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 请求 context 可能已取消，释放使用独立超时
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			released, err := r.client.Unlock(releaseCtx, key, token)
			if err != nil {
				r.logger.Error("释放分布式锁失败", zap.String("key", key), zap.Error(err))
				return
			}
			if !released {
				r.logger.Warn("分布式锁已过期，持有时间超过 TTL", zap.String("key", key), zap.Duration("ttl", r.ttl))
			}
		})
	}, nil
}
