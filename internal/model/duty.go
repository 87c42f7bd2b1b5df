package model

import (
	"time"

	"gorm.io/gorm"
)

// DutyOutcome 值勤记录的结果类型：常规或退役
type DutyOutcome string

const (
	DutyOutcomeRegular    DutyOutcome = "regular"
	DutyOutcomeRetirement DutyOutcome = "retirement"
)

// Duty 值勤记录表，对应 duties
// 每人至多一条 duty_end_date 为空的记录（ux_duties_open_per_person 部分唯一索引）
type Duty struct {
	DutyID        string      `gorm:"type:uuid;primaryKey"                                json:"duty_id"`
	PersonID      string      `gorm:"type:uuid;not null;index:ux_duties_open_per_person,unique,where:duty_end_date IS NULL;index:idx_duties_person_start,priority:1" json:"person_id"`
	Rank          string      `gorm:"type:varchar(100);not null"                          json:"rank"`
	DutyTitle     string      `gorm:"type:varchar(100);not null"                          json:"duty_title"`
	Outcome       DutyOutcome `gorm:"type:varchar(20);not null;default:'regular'"         json:"outcome"`
	DutyStartDate time.Time   `gorm:"type:date;not null;index:idx_duties_person_start,priority:2" json:"duty_start_date"`
	DutyEndDate   *time.Time  `gorm:"type:date"                                           json:"duty_end_date,omitempty"` // 为空表示进行中
	VersionedModel

	// 关联
	Person *Person `gorm:"foreignKey:PersonID;references:PersonID" json:"person,omitempty"`
}

// TableName 指定表名
func (Duty) TableName() string { return "duties" }

// BeforeCreate 生成主键
func (d *Duty) BeforeCreate(_ *gorm.DB) error {
	d.DutyID = newID(d.DutyID)
	return nil
}

// IsOpen 是否为当前进行中的值勤
func (d *Duty) IsOpen() bool {
	return d.DutyEndDate == nil
}
