package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stargate/backend/internal/model"
)

// PersonRepository 人员数据访问接口
type PersonRepository interface {
	Create(ctx context.Context, person *model.Person) error
	// CreateIfAbsent 姓名已存在时不做任何修改，返回 false
	CreateIfAbsent(ctx context.Context, person *model.Person) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Person, error)
	GetByName(ctx context.Context, name string) (*model.Person, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Person, error)
	List(ctx context.Context, offset, limit int) ([]model.Person, int64, error)
	Rename(ctx context.Context, id, newName, updatedBy string) error
}

type personRepo struct {
	db *gorm.DB
}

// NewPersonRepo 创建 PersonRepository 实例
func NewPersonRepo(db *gorm.DB) PersonRepository {
	return &personRepo{db: db}
}

func (r *personRepo) Create(ctx context.Context, person *model.Person) error {
	return r.db.WithContext(ctx).Create(person).Error
}

func (r *personRepo) CreateIfAbsent(ctx context.Context, person *model.Person) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(person)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *personRepo) GetByID(ctx context.Context, id string) (*model.Person, error) {
	var person model.Person
	err := r.db.WithContext(ctx).
		Preload("CareerSummary").
		Where("person_id = ?", id).
		First(&person).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// GetByName 按姓名精确查询（区分大小写）
func (r *personRepo) GetByName(ctx context.Context, name string) (*model.Person, error) {
	var person model.Person
	err := r.db.WithContext(ctx).
		Preload("CareerSummary").
		Where("name = ?", name).
		First(&person).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 锁定人员行，串行化同一人员的时间线写入
// 必须在已有事务的 *gorm.DB 上调用（通过 Repository.WithTx 注入事务连接）
func (r *personRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Person, error) {
	var person model.Person
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("person_id = ?", id).
		First(&person).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *personRepo) List(ctx context.Context, offset, limit int) ([]model.Person, int64, error) {
	var people []model.Person
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Person{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("CareerSummary").Order("name ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&people).Error; err != nil {
		return nil, 0, err
	}

	return people, total, nil
}

func (r *personRepo) Rename(ctx context.Context, id, newName, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Person{}).
		Where("person_id = ?", id).
		Updates(map[string]interface{}{
			"name":       newName,
			"updated_at": time.Now(),
			"updated_by": updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
