package handler

import (
	"github.com/gin-gonic/gin"

	"efs-platform/backend/internal/service"
	"efs-platform/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 个人课表导出 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportXLSX 导出个人课表为 Excel
// GET /api/v1/calendar/me/export.xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportTimetableXLSX(c.Request.Context(), studentID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.File(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportICS 导出个人课表为 ICS
// GET /api/v1/calendar/me/export.ics?weeks=
func (h *ExportHandler) ExportICS(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	var q struct {
		Weeks *int `form:"weeks" binding:"omitempty,min=1"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 16000, err.Error())
		return
	}

	body, filename, err := h.exportSvc.ExportTimetableICS(c.Request.Context(), studentID, q.Weeks)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.File(c, filename, contentTypeICS, body)
}
