package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"stargate/backend/internal/model"
	pkgerrors "stargate/backend/pkg/errors"
)

// DutyFilter 值勤列表筛选条件
type DutyFilter struct {
	PersonID string
	Outcome  model.DutyOutcome
	OpenOnly bool
	Offset   int
	Limit    int // 0 表示不分页
}

// DutyRepository 值勤记录数据访问接口
type DutyRepository interface {
	Create(ctx context.Context, duty *model.Duty) error
	// GetOpenByPerson 查询进行中的值勤，不存在时返回 gorm.ErrRecordNotFound
	GetOpenByPerson(ctx context.Context, personID string) (*model.Duty, error)
	GetLatestByPerson(ctx context.Context, personID string) (*model.Duty, error)
	// UpdateEndDate 关闭进行中的值勤；版本不匹配或已关闭时返回 ErrOptimisticLock
	UpdateEndDate(ctx context.Context, dutyID string, version int, endDate time.Time, updatedBy string) error
	ListByPerson(ctx context.Context, personID string) ([]model.Duty, error)
	ListWithPerson(ctx context.Context, filter DutyFilter) ([]model.Duty, int64, error)
}

type dutyRepo struct {
	db *gorm.DB
}

// NewDutyRepo 创建 DutyRepository 实例
func NewDutyRepo(db *gorm.DB) DutyRepository {
	return &dutyRepo{db: db}
}

func (r *dutyRepo) Create(ctx context.Context, duty *model.Duty) error {
	return r.db.WithContext(ctx).Create(duty).Error
}

func (r *dutyRepo) GetOpenByPerson(ctx context.Context, personID string) (*model.Duty, error) {
	var duty model.Duty
	err := r.db.WithContext(ctx).
		Where("person_id = ? AND duty_end_date IS NULL", personID).
		Order("duty_start_date DESC").
		First(&duty).Error
	if err != nil {
		return nil, err
	}
	return &duty, nil
}

func (r *dutyRepo) GetLatestByPerson(ctx context.Context, personID string) (*model.Duty, error) {
	var duty model.Duty
	err := r.db.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("duty_start_date DESC").
		Order("created_at DESC").
		First(&duty).Error
	if err != nil {
		return nil, err
	}
	return &duty, nil
}

func (r *dutyRepo) UpdateEndDate(ctx context.Context, dutyID string, version int, endDate time.Time, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Duty{}).
		Where("duty_id = ? AND version = ? AND duty_end_date IS NULL", dutyID, version).
		Updates(map[string]interface{}{
			"duty_end_date": endDate,
			"updated_at":    time.Now(),
			"updated_by":    updatedBy,
			"version":       version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// ListByPerson 按开始日期升序返回某人的完整时间线
func (r *dutyRepo) ListByPerson(ctx context.Context, personID string) ([]model.Duty, error) {
	var duties []model.Duty
	err := r.db.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("duty_start_date ASC").
		Order("created_at ASC").
		Find(&duties).Error
	return duties, err
}

func (r *dutyRepo) ListWithPerson(ctx context.Context, filter DutyFilter) ([]model.Duty, int64, error) {
	var duties []model.Duty
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Duty{})
	if filter.PersonID != "" {
		db = db.Where("person_id = ?", filter.PersonID)
	}
	if filter.Outcome != "" {
		db = db.Where("outcome = ?", filter.Outcome)
	}
	if filter.OpenOnly {
		db = db.Where("duty_end_date IS NULL")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("Person").
		Order("person_id ASC").
		Order("duty_start_date ASC").
		Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&duties).Error; err != nil {
		return nil, 0, err
	}

	return duties, total, nil
}
