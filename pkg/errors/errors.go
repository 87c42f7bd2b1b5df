package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误分类根 ──
// 各业务模块的哨兵错误通过 %w 包装以下分类，Handler 层按分类映射 HTTP 状态码。

var (
	// ErrNotFound 资源不存在（客户端错误）
	ErrNotFound = errors.New("资源不存在")
	// ErrInvalidInput 输入缺失或格式错误（客户端错误）
	ErrInvalidInput = errors.New("输入无效")
	// ErrConflict 与已有数据冲突（客户端错误）
	ErrConflict = errors.New("数据冲突")
	// ErrInvariantViolation 内部不变量被破坏（服务端错误，必须记录日志）
	ErrInvariantViolation = errors.New("内部不变量被破坏")
)
