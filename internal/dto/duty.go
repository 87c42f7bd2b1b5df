package dto

// ── 值勤模块 DTO ──

// CreateDutyRequest 值勤分配请求
// 日期接受 "2006-01-02" 或 RFC 3339；退役值勤忽略 DutyEndDate
type CreateDutyRequest struct {
	Name          string  `json:"name"          binding:"required"`
	Rank          string  `json:"rank"          binding:"required"`
	DutyTitle     string  `json:"dutyTitle"     binding:"required"`
	DutyStartDate string  `json:"dutyStartDate" binding:"required"`
	DutyEndDate   *string `json:"dutyEndDate"`
}

// DutyListRequest 值勤列表查询参数
type DutyListRequest struct {
	PaginationRequest
	Outcome string `form:"outcome" binding:"omitempty,oneof=regular retirement"`
	Open    bool   `form:"open"`
}

// DutyResponse 值勤记录
type DutyResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Rank          string `json:"rank"`
	DutyTitle     string `json:"dutyTitle"`
	Outcome       string `json:"outcome"`
	DutyStartDate string `json:"dutyStartDate"`
	DutyEndDate   string `json:"dutyEndDate,omitempty"`
}

// PersonDutiesResponse 单人完整时间线
type PersonDutiesResponse struct {
	Person PersonResponse `json:"person"`
	Duties []DutyResponse `json:"duties"`
}
