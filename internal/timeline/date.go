package timeline

import (
	"fmt"
	"strings"
	"time"

	pkgerrors "stargate/backend/pkg/errors"
)

// DateLayout 日期精度的线上格式
const DateLayout = "2006-01-02"

var (
	// ErrDateOutOfRange 日期运算超出可表示范围（公元 1-9999 年）
	ErrDateOutOfRange = fmt.Errorf("%w: 日期超出可表示范围", pkgerrors.ErrInvariantViolation)
	// ErrDateMalformed 日期格式无法解析
	ErrDateMalformed = fmt.Errorf("%w: 日期格式无效", pkgerrors.ErrInvalidInput)
)

const (
	minYear = 1
	maxYear = 9999
)

// TruncateDate 丢弃时分秒，保留书写时的日历日期，并统一为 UTC 零点
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 "2006-01-02" 或 RFC 3339 时间戳，返回日期精度的值
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrDateMalformed
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return checkRange(t)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return checkRange(TruncateDate(t))
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrDateMalformed, s)
}

// ParseOptionalDate 空字符串或 nil 返回 nil
func ParseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func checkRange(t time.Time) (time.Time, error) {
	if y := t.Year(); y < minYear || y > maxYear {
		return time.Time{}, fmt.Errorf("%w: %s", ErrDateMalformed, t.Format(DateLayout))
	}
	return t, nil
}

// DayBefore 返回前一天；结果越界时报告不变量错误而不是截断
func DayBefore(t time.Time) (time.Time, error) {
	prev := TruncateDate(t).AddDate(0, 0, -1)
	if y := prev.Year(); y < minYear || y > maxYear {
		return time.Time{}, fmt.Errorf("%w: %s 的前一天", ErrDateOutOfRange, TruncateDate(t).Format(DateLayout))
	}
	return prev, nil
}

// FormatDate 按 DateLayout 输出，nil 输出空串
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

