package handler

import (
	"github.com/gin-gonic/gin"

	"stargate/backend/internal/dto"
	"stargate/backend/internal/service"
	"stargate/backend/pkg/response"
)

// PersonHandler 人员模块 HTTP 处理器
type PersonHandler struct {
	personSvc service.PersonService
}

// NewPersonHandler 创建 PersonHandler
func NewPersonHandler(personSvc service.PersonService) *PersonHandler {
	return &PersonHandler{personSvc: personSvc}
}

// List 人员列表
// GET /api/v1/people
func (h *PersonHandler) List(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, codeBadParams, "参数校验失败")
		return
	}

	people, total, err := h.personSvc.List(c.Request.Context(), &page)
	if err != nil {
		respondError(c, codePersonBase, err)
		return
	}

	response.OKPage(c, people, total, page.GetPage(), page.GetPageSize())
}

// ListAstronauts 有值勤记录的人员列表
// GET /api/v1/astronauts
func (h *PersonHandler) ListAstronauts(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, codeBadParams, "参数校验失败")
		return
	}

	people, total, err := h.personSvc.ListAstronauts(c.Request.Context(), &page)
	if err != nil {
		respondError(c, codePersonBase, err)
		return
	}

	response.OKPage(c, people, total, page.GetPage(), page.GetPageSize())
}

// Get 按姓名查询人员
// GET /api/v1/people/:name
func (h *PersonHandler) Get(c *gin.Context) {
	person, err := h.personSvc.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, codePersonBase, err)
		return
	}

	response.OK(c, person)
}

// Create 创建人员
// POST /api/v1/people
func (h *PersonHandler) Create(c *gin.Context) {
	operator, ok := MustGetOperator(c)
	if !ok {
		return
	}

	var req dto.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "参数校验失败")
		return
	}

	person, err := h.personSvc.Create(c.Request.Context(), &req, operator)
	if err != nil {
		respondError(c, codePersonBase, err)
		return
	}

	response.Created(c, person)
}

// Rename 人员改名
// PUT /api/v1/people/:name
func (h *PersonHandler) Rename(c *gin.Context) {
	operator, ok := MustGetOperator(c)
	if !ok {
		return
	}

	var req dto.RenamePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "参数校验失败")
		return
	}

	person, err := h.personSvc.Rename(c.Request.Context(), c.Param("name"), &req, operator)
	if err != nil {
		respondError(c, codePersonBase, err)
		return
	}

	response.OK(c, person)
}

// Import 通过 Excel 批量导入人员
// POST /api/v1/people/import (multipart, 字段 file)
func (h *PersonHandler) Import(c *gin.Context) {
	operator, ok := MustGetOperator(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		bindFailed(c, err, "请上传 Excel 文件（字段 file）")
		return
	}
	defer file.Close()

	result, err := h.personSvc.Import(c.Request.Context(), file, operator)
	if err != nil {
		respondError(c, codePersonBase, err)
		return
	}

	response.Created(c, result)
}
