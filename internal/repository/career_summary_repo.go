package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stargate/backend/internal/model"
)

// CareerSummaryRepository 职业概要数据访问接口
type CareerSummaryRepository interface {
	GetByPerson(ctx context.Context, personID string) (*model.CareerSummary, error)
	// Upsert 不存在时插入，存在时覆盖概要字段并递增版本号
	Upsert(ctx context.Context, summary *model.CareerSummary) error
	// ListAstronauts 仅返回已有职业概要的人员
	ListAstronauts(ctx context.Context, offset, limit int) ([]model.Person, int64, error)
}

type careerSummaryRepo struct {
	db *gorm.DB
}

// NewCareerSummaryRepo 创建 CareerSummaryRepository 实例
func NewCareerSummaryRepo(db *gorm.DB) CareerSummaryRepository {
	return &careerSummaryRepo{db: db}
}

func (r *careerSummaryRepo) GetByPerson(ctx context.Context, personID string) (*model.CareerSummary, error) {
	var summary model.CareerSummary
	err := r.db.WithContext(ctx).
		Where("person_id = ?", personID).
		First(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *careerSummaryRepo) Upsert(ctx context.Context, summary *model.CareerSummary) error {
	summary.UpdatedAt = time.Now()
	if summary.Version == 0 {
		summary.Version = 1
	}

	updates := clause.AssignmentColumns([]string{
		"current_rank",
		"current_duty_title",
		"career_start_date",
		"career_end_date",
		"updated_at",
		"updated_by",
	})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "version"},
		Value:  gorm.Expr("career_summaries.version + 1"),
	})

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}},
			DoUpdates: updates,
		}).
		Create(summary).Error
}

func (r *careerSummaryRepo) ListAstronauts(ctx context.Context, offset, limit int) ([]model.Person, int64, error) {
	var people []model.Person
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.Person{}).
		InnerJoins("CareerSummary")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Order("people.name ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&people).Error; err != nil {
		return nil, 0, err
	}

	return people, total, nil
}
