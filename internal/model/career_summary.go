package model

import "time"

// CareerSummary 职业概要表，对应 career_summaries
// 由值勤记录派生：当且仅当人员至少有一条值勤记录时存在
type CareerSummary struct {
	PersonID         string     `gorm:"type:uuid;primaryKey"        json:"person_id"`
	CurrentRank      string     `gorm:"type:varchar(100);not null"  json:"current_rank"`
	CurrentDutyTitle string     `gorm:"type:varchar(100);not null"  json:"current_duty_title"`
	CareerStartDate  time.Time  `gorm:"type:date;not null"          json:"career_start_date"`
	CareerEndDate    *time.Time `gorm:"type:date"                   json:"career_end_date,omitempty"` // 仅在记录退役后设置
	VersionedModel
}

// TableName 指定表名
func (CareerSummary) TableName() string { return "career_summaries" }
