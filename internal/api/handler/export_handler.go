package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"stargate/backend/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportDuties 导出全部值勤记录
// GET /api/v1/export/duties
func (h *ExportHandler) ExportDuties(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportDuties(c.Request.Context())
	if err != nil {
		respondError(c, codeDutyBase, err)
		return
	}
	sendFile(c, buf, filename, contentTypeXLSX)
}

// PersonCalendar 单人值勤日历
// GET /api/v1/people/:name/calendar.ics
func (h *ExportHandler) PersonCalendar(c *gin.Context) {
	buf, filename, err := h.exportSvc.PersonCalendar(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, codePersonBase, err)
		return
	}
	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头并写入内容
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
