// Package lock 提供按键互斥的锁：单实例使用进程内信号量，多实例部署使用 Redis。
package lock

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "stargate/backend/pkg/errors"
)

// ErrLockTimeout 在等待时限内未获得锁
var ErrLockTimeout = fmt.Errorf("%w: 等待锁超时，请稍后重试", pkgerrors.ErrConflict)

// Locker 按键加锁；release 必须调用且可重复调用
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// waitErr 将等待期间的 context 错误归一化
func waitErr(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return err
}
