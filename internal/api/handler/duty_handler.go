package handler

import (
	"github.com/gin-gonic/gin"

	"stargate/backend/internal/dto"
	"stargate/backend/internal/service"
	"stargate/backend/pkg/response"
)

// DutyHandler 值勤模块 HTTP 处理器
type DutyHandler struct {
	dutySvc service.DutyService
}

// NewDutyHandler 创建 DutyHandler
func NewDutyHandler(dutySvc service.DutyService) *DutyHandler {
	return &DutyHandler{dutySvc: dutySvc}
}

// Assign 分配值勤
// POST /api/v1/duties
func (h *DutyHandler) Assign(c *gin.Context) {
	operator, ok := MustGetOperator(c)
	if !ok {
		return
	}

	var req dto.CreateDutyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "参数校验失败")
		return
	}

	result, err := h.dutySvc.AssignDuty(c.Request.Context(), &req, operator)
	if err != nil {
		respondError(c, codeDutyBase, err)
		return
	}

	response.Created(c, result)
}

// List 值勤列表
// GET /api/v1/duties?outcome=retirement&open=true
func (h *DutyHandler) List(c *gin.Context) {
	var req dto.DutyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeBadParams, "参数校验失败")
		return
	}

	duties, total, err := h.dutySvc.ListDuties(c.Request.Context(), &req)
	if err != nil {
		respondError(c, codeDutyBase, err)
		return
	}

	response.OKPage(c, duties, total, req.GetPage(), req.GetPageSize())
}

// ListByPerson 单人完整时间线
// GET /api/v1/people/:name/duties
func (h *DutyHandler) ListByPerson(c *gin.Context) {
	result, err := h.dutySvc.ListDutiesByPerson(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, codePersonBase, err)
		return
	}

	response.OK(c, result)
}
