package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stargate/backend/internal/dto"
	"stargate/backend/internal/metrics"
	"stargate/backend/internal/model"
	"stargate/backend/internal/repository"
	"stargate/backend/internal/timeline"
	pkgerrors "stargate/backend/pkg/errors"
	"stargate/backend/pkg/lock"
)

// ── 值勤模块业务错误 ──

const (
	maxRankLen  = 100
	maxTitleLen = 100
)

var (
	ErrDutyRankInvalid  = fmt.Errorf("%w: 军衔不能为空且不超过 %d 个字符", pkgerrors.ErrInvalidInput, maxRankLen)
	ErrDutyTitleInvalid = fmt.Errorf("%w: 职务不能为空且不超过 %d 个字符", pkgerrors.ErrInvalidInput, maxTitleLen)
	// ErrDutyConcurrentUpdate 时间线在本次写入期间被其他请求修改
	ErrDutyConcurrentUpdate = fmt.Errorf("%w: 该人员的值勤记录已被其他操作修改，请重试", pkgerrors.ErrConflict)
)

// DutyService 值勤业务接口
type DutyService interface {
	// AssignDuty 为指定人员分配新值勤：关闭进行中的值勤、写入新记录并同步职业概要，三者原子提交
	AssignDuty(ctx context.Context, req *dto.CreateDutyRequest, callerID string) (*dto.IDResponse, error)
	ListDuties(ctx context.Context, req *dto.DutyListRequest) ([]dto.DutyResponse, int64, error)
	ListDutiesByPerson(ctx context.Context, name string) (*dto.PersonDutiesResponse, error)
}

// DutyOptions 值勤服务选项
type DutyOptions struct {
	EnforceChronology bool
}

type dutyService struct {
	repo    *repository.Repository
	locker  lock.Locker
	metrics *metrics.Metrics
	opts    DutyOptions
	logger  *zap.Logger
}

// NewDutyService 创建 DutyService 实例
func NewDutyService(
	repo *repository.Repository,
	locker lock.Locker,
	m *metrics.Metrics,
	opts DutyOptions,
	logger *zap.Logger,
) DutyService {
	return &dutyService{
		repo:    repo,
		locker:  locker,
		metrics: m,
		opts:    opts,
		logger:  logger,
	}
}

func dutyLockKey(personID string) string {
	return "duty:person:" + personID
}

// ────────────────────── AssignDuty ──────────────────────

func (s *dutyService) AssignDuty(ctx context.Context, req *dto.CreateDutyRequest, callerID string) (*dto.IDResponse, error) {
	name, a, err := parseAssignment(req)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	// 1. 前置校验：人员必须存在，不存在时不做任何写入
	person, err := s.repo.Person.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.fail(ErrPersonNotFound)
			return nil, ErrPersonNotFound
		}
		s.logger.Error("查询人员失败", zap.String("name", name), zap.Error(err))
		s.fail(err)
		return nil, err
	}
	a.PersonID = person.PersonID

	// 2. 按人员串行化：同一人员同一时刻只有一个分配在执行
	waitStart := time.Now()
	release, err := s.locker.Acquire(ctx, dutyLockKey(person.PersonID))
	s.metrics.ObserveLockWait(waitStart)
	if err != nil {
		s.logger.Warn("获取人员锁失败", zap.String("person_id", person.PersonID), zap.Error(err))
		s.fail(err)
		return nil, err
	}
	defer release()

	// 3. 事务内读取 → 协调 → 写入
	plan, err := s.assignInTx(ctx, a, callerID)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.metrics.AssignmentCommitted(string(plan.Outcome))
	fields := []zap.Field{
		zap.String("person_id", person.PersonID),
		zap.String("duty_id", plan.Duty.DutyID),
		zap.String("outcome", string(plan.Outcome)),
		zap.String("start", plan.Duty.DutyStartDate.Format(timeline.DateLayout)),
		zap.String("operator", callerID),
	}
	if plan.Close != nil {
		fields = append(fields,
			zap.String("closed_duty_id", plan.Close.DutyID),
			zap.String("closed_end", plan.Close.EndDate.Format(timeline.DateLayout)),
		)
	}
	s.logger.Info("值勤已分配", fields...)

	return &dto.IDResponse{ID: plan.Duty.DutyID}, nil
}

func (s *dutyService) assignInTx(ctx context.Context, a timeline.Assignment, callerID string) (*timeline.Plan, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}
	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	// 行锁：多实例部署且未启用 Redis 时仍能串行化
	if _, err := txRepo.Person.GetByIDForUpdate(ctx, a.PersonID); err != nil {
		rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		s.logger.Error("锁定人员失败", zap.String("person_id", a.PersonID), zap.Error(err))
		return nil, err
	}

	state, err := s.loadState(ctx, txRepo, a.PersonID)
	if err != nil {
		rollback()
		return nil, err
	}

	plan, err := timeline.Reconcile(state, a, timeline.Options{EnforceChronology: s.opts.EnforceChronology})
	if err != nil {
		rollback()
		return nil, err
	}
	if plan.AfterRetirement {
		s.logger.Warn("人员已退役，仍记录新的值勤", zap.String("person_id", a.PersonID), zap.String("title", a.DutyTitle))
	}

	// 关闭进行中的值勤
	if plan.Close != nil {
		if err := txRepo.Duty.UpdateEndDate(ctx, plan.Close.DutyID, plan.Close.Version, plan.Close.EndDate, callerID); err != nil {
			rollback()
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return nil, ErrDutyConcurrentUpdate
			}
			s.logger.Error("关闭进行中的值勤失败", zap.String("duty_id", plan.Close.DutyID), zap.Error(err))
			return nil, err
		}
	}

	// 写入新值勤
	duty := &plan.Duty
	duty.CreatedBy = &callerID
	duty.UpdatedBy = &callerID
	if err := txRepo.Duty.Create(ctx, duty); err != nil {
		rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDutyConcurrentUpdate
		}
		s.logger.Error("写入值勤失败", zap.String("person_id", a.PersonID), zap.Error(err))
		return nil, err
	}

	// 同步职业概要
	summary := &plan.Summary
	if plan.SummaryIsNew {
		summary.CreatedBy = &callerID
	}
	summary.UpdatedBy = &callerID
	if err := txRepo.CareerSummary.Upsert(ctx, summary); err != nil {
		rollback()
		s.logger.Error("写入职业概要失败", zap.String("person_id", a.PersonID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}
	return plan, nil
}

// loadState 读取协调所需的概要、进行中值勤与最近值勤；不存在的记录以 nil 表示
func (s *dutyService) loadState(ctx context.Context, repo *repository.Repository, personID string) (timeline.State, error) {
	var state timeline.State

	summary, err := repo.CareerSummary.GetByPerson(ctx, personID)
	switch {
	case err == nil:
		state.Summary = summary
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询职业概要失败", zap.String("person_id", personID), zap.Error(err))
		return state, err
	}

	open, err := repo.Duty.GetOpenByPerson(ctx, personID)
	switch {
	case err == nil:
		state.Open = open
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询进行中的值勤失败", zap.String("person_id", personID), zap.Error(err))
		return state, err
	}

	latest, err := repo.Duty.GetLatestByPerson(ctx, personID)
	switch {
	case err == nil:
		state.Latest = latest
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询最近值勤失败", zap.String("person_id", personID), zap.Error(err))
		return state, err
	}

	if state.Summary == nil && state.Latest != nil {
		return state, fmt.Errorf("%w: 人员 %s 缺少职业概要", pkgerrors.ErrInvariantViolation, personID)
	}
	return state, nil
}

// parseAssignment 校验请求并转换为协调输入；返回去除空白后的姓名
func parseAssignment(req *dto.CreateDutyRequest) (string, timeline.Assignment, error) {
	var a timeline.Assignment

	name, err := normalizeName(req.Name)
	if err != nil {
		return "", a, err
	}

	a.Rank = strings.TrimSpace(req.Rank)
	if a.Rank == "" || utf8.RuneCountInString(a.Rank) > maxRankLen {
		return "", a, ErrDutyRankInvalid
	}
	// 标题按原样保存与判定：只有精确的 "RETIRED" 算退役，" RETIRED " 与 "Retired" 都是常规值勤
	a.DutyTitle = req.DutyTitle
	if strings.TrimSpace(a.DutyTitle) == "" || utf8.RuneCountInString(a.DutyTitle) > maxTitleLen {
		return "", a, ErrDutyTitleInvalid
	}

	if strings.TrimSpace(req.DutyStartDate) == "" {
		return "", a, timeline.ErrStartMissing
	}
	if a.StartDate, err = timeline.ParseDate(req.DutyStartDate); err != nil {
		return "", a, err
	}
	if a.EndDate, err = timeline.ParseOptionalDate(req.DutyEndDate); err != nil {
		return "", a, err
	}
	return name, a, nil
}

// fail 记录失败指标；内部不变量被破坏时以 error 级别记录
func (s *dutyService) fail(err error) {
	var reason string
	switch {
	case errors.Is(err, lock.ErrLockTimeout):
		reason = metrics.ReasonLockTimeout
	case errors.Is(err, pkgerrors.ErrInvalidInput):
		reason = metrics.ReasonInvalidInput
	case errors.Is(err, pkgerrors.ErrNotFound):
		reason = metrics.ReasonNotFound
	case errors.Is(err, pkgerrors.ErrConflict):
		reason = metrics.ReasonConflict
	case errors.Is(err, pkgerrors.ErrInvariantViolation):
		reason = metrics.ReasonInvariant
		s.logger.Error("值勤时间线不变量被破坏", zap.Error(err))
	default:
		reason = metrics.ReasonStorage
	}
	s.metrics.AssignmentFailed(reason)
}

// ────────────────────── ListDuties ──────────────────────

func (s *dutyService) ListDuties(ctx context.Context, req *dto.DutyListRequest) ([]dto.DutyResponse, int64, error) {
	filter := repository.DutyFilter{
		Outcome:  model.DutyOutcome(req.Outcome),
		OpenOnly: req.Open,
		Offset:   req.GetOffset(),
		Limit:    req.GetPageSize(),
	}
	duties, total, err := s.repo.Duty.ListWithPerson(ctx, filter)
	if err != nil {
		s.logger.Error("查询值勤列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.DutyResponse, 0, len(duties))
	for i := range duties {
		result = append(result, toDutyResponse(&duties[i]))
	}
	return result, total, nil
}

// ────────────────────── ListDutiesByPerson ──────────────────────

func (s *dutyService) ListDutiesByPerson(ctx context.Context, name string) (*dto.PersonDutiesResponse, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	person, err := s.repo.Person.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		s.logger.Error("查询人员失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	duties, err := s.repo.Duty.ListByPerson(ctx, person.PersonID)
	if err != nil {
		s.logger.Error("查询人员值勤失败", zap.String("person_id", person.PersonID), zap.Error(err))
		return nil, err
	}

	resp := &dto.PersonDutiesResponse{
		Person: *toPersonResponse(person),
		Duties: make([]dto.DutyResponse, 0, len(duties)),
	}
	for i := range duties {
		d := toDutyResponse(&duties[i])
		d.Name = person.Name
		resp.Duties = append(resp.Duties, d)
	}
	return resp, nil
}

func toDutyResponse(d *model.Duty) dto.DutyResponse {
	resp := dto.DutyResponse{
		ID:            d.DutyID,
		Rank:          d.Rank,
		DutyTitle:     d.DutyTitle,
		Outcome:       string(d.Outcome),
		DutyStartDate: timeline.FormatDate(&d.DutyStartDate),
		DutyEndDate:   timeline.FormatDate(d.DutyEndDate),
	}
	if d.Person != nil {
		resp.Name = d.Person.Name
	}
	return resp
}
