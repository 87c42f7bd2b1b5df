// Package timeline 实现值勤时间线的协调规则：
// 新值勤到来时关闭上一条进行中的值勤、生成新记录并推导职业概要。
// 本包只做决策，不做 I/O；读写由 service 层在同一事务内完成。
package timeline

import (
	"fmt"
	"time"

	"stargate/backend/internal/model"
	pkgerrors "stargate/backend/pkg/errors"
)

// RetiredTitle 退役值勤的保留标题（区分大小写的精确匹配）
const RetiredTitle = "RETIRED"

var (
	ErrEndBeforeStart        = fmt.Errorf("%w: 结束日期不能早于开始日期", pkgerrors.ErrInvalidInput)
	ErrStartNotAfterPrevious = fmt.Errorf("%w: 开始日期必须晚于已有值勤记录", pkgerrors.ErrInvalidInput)
	ErrStartMissing          = fmt.Errorf("%w: 开始日期不能为空", pkgerrors.ErrInvalidInput)
	ErrForeignRecord         = fmt.Errorf("%w: 记录不属于该人员", pkgerrors.ErrInvariantViolation)
	ErrOpenDutyClosed        = fmt.Errorf("%w: 进行中的值勤已有结束日期", pkgerrors.ErrInvariantViolation)
)

// Classify 根据标题判定结果类型
func Classify(title string) model.DutyOutcome {
	if title == RetiredTitle {
		return model.DutyOutcomeRetirement
	}
	return model.DutyOutcomeRegular
}

// Assignment 一次值勤分配请求（已解析、已校验人员存在）
type Assignment struct {
	PersonID  string
	Rank      string
	DutyTitle string
	StartDate time.Time
	EndDate   *time.Time
}

// State 协调所需的当前时间线状态
type State struct {
	Open    *model.Duty          // 进行中的值勤，没有则为 nil
	Latest  *model.Duty          // 开始日期最晚的值勤，用于时间顺序校验
	Summary *model.CareerSummary // 首次分配时为 nil
}

// Options 协调选项
type Options struct {
	// EnforceChronology 为 true 时拒绝不晚于最近一条记录的开始日期
	EnforceChronology bool
}

// Closure 需要关闭的进行中值勤
type Closure struct {
	DutyID  string
	Version int
	EndDate time.Time
}

// Plan 协调结果：按顺序执行 Close → 插入 Duty → 写入 Summary
type Plan struct {
	Outcome         model.DutyOutcome
	Close           *Closure
	Duty            model.Duty
	Summary         model.CareerSummary
	SummaryIsNew    bool
	AfterRetirement bool // 最近一条记录已是退役，终态不做强制
}

// Reconcile 计算一次值勤分配需要落库的全部变更
//
// 规则：
//   - 存在进行中的值勤时，其结束日期 = 新值勤开始日期 - 1 天（退役与否一致）
//   - 新值勤开始日期始终取请求值；退役值勤的结束日期强制为空
//   - 概要的当前军衔/职务总是跟随最新值勤；退役时 careerEndDate = 开始日期 - 1 天，
//     非退役时不清除已有的 careerEndDate
//
// 开始日期是否缺失由调用方在解析请求时判断；0001-01-01 是合法日期
func Reconcile(state State, a Assignment, opts Options) (*Plan, error) {
	start := TruncateDate(a.StartDate)
	outcome := Classify(a.DutyTitle)

	if err := checkOwnership(state, a.PersonID); err != nil {
		return nil, err
	}

	var end *time.Time
	if outcome == model.DutyOutcomeRegular && a.EndDate != nil {
		e := TruncateDate(*a.EndDate)
		if e.Before(start) {
			return nil, ErrEndBeforeStart
		}
		end = &e
	}

	if opts.EnforceChronology {
		if err := checkChronology(state.Latest, start); err != nil {
			return nil, err
		}
	}

	plan := &Plan{
		Outcome:         outcome,
		AfterRetirement: state.Latest != nil && state.Latest.Outcome == model.DutyOutcomeRetirement,
	}

	if state.Open != nil {
		closeAt, err := DayBefore(start)
		if err != nil {
			return nil, err
		}
		plan.Close = &Closure{
			DutyID:  state.Open.DutyID,
			Version: state.Open.Version,
			EndDate: closeAt,
		}
	}

	plan.Duty = model.Duty{
		PersonID:       a.PersonID,
		Rank:           a.Rank,
		DutyTitle:      a.DutyTitle,
		Outcome:        outcome,
		DutyStartDate:  start,
		DutyEndDate:    end,
		VersionedModel: model.VersionedModel{Version: 1},
	}

	var careerEnd *time.Time
	if outcome == model.DutyOutcomeRetirement {
		d, err := DayBefore(start)
		if err != nil {
			return nil, err
		}
		careerEnd = &d
	}

	if state.Summary == nil {
		plan.SummaryIsNew = true
		plan.Summary = model.CareerSummary{
			PersonID:         a.PersonID,
			CurrentRank:      a.Rank,
			CurrentDutyTitle: a.DutyTitle,
			CareerStartDate:  start,
			CareerEndDate:    careerEnd,
			VersionedModel:   model.VersionedModel{Version: 1},
		}
		return plan, nil
	}

	summary := *state.Summary
	summary.CurrentRank = a.Rank
	summary.CurrentDutyTitle = a.DutyTitle
	if careerEnd != nil {
		summary.CareerEndDate = careerEnd
	}
	plan.Summary = summary
	return plan, nil
}

func checkOwnership(state State, personID string) error {
	if state.Open != nil {
		if state.Open.PersonID != personID {
			return ErrForeignRecord
		}
		if !state.Open.IsOpen() {
			return ErrOpenDutyClosed
		}
	}
	if state.Latest != nil && state.Latest.PersonID != personID {
		return ErrForeignRecord
	}
	if state.Summary != nil && state.Summary.PersonID != personID {
		return ErrForeignRecord
	}
	return nil
}

func checkChronology(latest *model.Duty, start time.Time) error {
	if latest == nil {
		return nil
	}
	if !start.After(TruncateDate(latest.DutyStartDate)) {
		return fmt.Errorf("%w: 最近一条开始于 %s", ErrStartNotAfterPrevious, latest.DutyStartDate.Format(DateLayout))
	}
	if latest.DutyEndDate != nil && !start.After(TruncateDate(*latest.DutyEndDate)) {
		return fmt.Errorf("%w: 最近一条结束于 %s", ErrStartNotAfterPrevious, latest.DutyEndDate.Format(DateLayout))
	}
	return nil
}
