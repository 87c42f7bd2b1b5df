package dto

// ── 人员模块 DTO ──

// CreatePersonRequest 创建人员请求
type CreatePersonRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// RenamePersonRequest 人员改名请求
type RenamePersonRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// PersonResponse 人员信息；尚无值勤记录时不含职业概要
type PersonResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	CareerSummary *CareerSummaryResponse `json:"careerSummary,omitempty"`
}

// CareerSummaryResponse 职业概要
type CareerSummaryResponse struct {
	CurrentRank      string `json:"currentRank"`
	CurrentDutyTitle string `json:"currentDutyTitle"`
	CareerStartDate  string `json:"careerStartDate"`
	CareerEndDate    string `json:"careerEndDate,omitempty"`
}

// ImportPeopleResponse 批量导入结果
type ImportPeopleResponse struct {
	Created  int              `json:"created"`
	Existing int              `json:"existing"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError 单行导入错误；Row 为表格中的行号（从 1 开始）
type ImportRowError struct {
	Row    int    `json:"row"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}
