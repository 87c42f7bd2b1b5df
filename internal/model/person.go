package model

import "gorm.io/gorm"

// Person 人员表，对应 people
// 姓名区分大小写且全局唯一，仅能通过改名操作修改
type Person struct {
	PersonID string `gorm:"type:uuid;primaryKey"                                  json:"person_id"`
	Name     string `gorm:"type:varchar(255);not null;uniqueIndex:ux_people_name" json:"name"`
	BaseModel

	// 关联
	CareerSummary *CareerSummary `gorm:"foreignKey:PersonID;references:PersonID" json:"career_summary,omitempty"`
}

// TableName 指定表名
func (Person) TableName() string { return "people" }

// BeforeCreate 生成主键
func (p *Person) BeforeCreate(_ *gorm.DB) error {
	p.PersonID = newID(p.PersonID)
	return nil
}
