package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"efs-platform/backend/internal/dto"
	"efs-platform/backend/internal/service"
	"efs-platform/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock CalendarService ──

type mockCalendarService struct {
	sessionsResult    *dto.SessionListResponse
	sessionsErr       error
	lastQuery         string
	occurrencesResult *dto.OccurrenceListResponse
	occurrencesErr    error
	lastOccQuery      *dto.OccurrenceQuery
	conflictsResult   *dto.CheckConflictsResponse
	conflictsErr      error
	saveResult        *dto.SaveTimetableResponse
	saveErr           error
	lastSaveStudent   string
	lastSaveIDs       []string
	viewResult        *dto.MyTimetableResponse
	viewErr           error
	lastStudent       string
	lastSessionID     string
	invalidateErr     error
}

func (m *mockCalendarService) ListSessions(_ context.Context, q string) (*dto.SessionListResponse, error) {
	m.lastQuery = q
	return m.sessionsResult, m.sessionsErr
}
func (m *mockCalendarService) ListOccurrences(_ context.Context, q *dto.OccurrenceQuery) (*dto.OccurrenceListResponse, error) {
	m.lastOccQuery = q
	return m.occurrencesResult, m.occurrencesErr
}
func (m *mockCalendarService) CheckConflicts(_ context.Context, _ *dto.CheckConflictsRequest) (*dto.CheckConflictsResponse, error) {
	return m.conflictsResult, m.conflictsErr
}
func (m *mockCalendarService) LoadTimetable(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}
func (m *mockCalendarService) SaveTimetable(_ context.Context, studentID string, ids []string) (*dto.SaveTimetableResponse, error) {
	m.lastSaveStudent = studentID
	m.lastSaveIDs = ids
	return m.saveResult, m.saveErr
}
func (m *mockCalendarService) GetMyTimetable(_ context.Context, studentID string) (*dto.MyTimetableResponse, error) {
	m.lastStudent = studentID
	return m.viewResult, m.viewErr
}
func (m *mockCalendarService) AddSession(_ context.Context, studentID, sessionID string) (*dto.MyTimetableResponse, error) {
	m.lastStudent, m.lastSessionID = studentID, sessionID
	return m.viewResult, m.viewErr
}
func (m *mockCalendarService) RemoveSession(_ context.Context, studentID, sessionID string) (*dto.MyTimetableResponse, error) {
	m.lastStudent, m.lastSessionID = studentID, sessionID
	return m.viewResult, m.viewErr
}
func (m *mockCalendarService) ClearSessions(_ context.Context, studentID string) (*dto.MyTimetableResponse, error) {
	m.lastStudent = studentID
	return m.viewResult, m.viewErr
}
func (m *mockCalendarService) InvalidateCatalog(_ context.Context) error {
	return m.invalidateErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf       *bytes.Buffer
	body      []byte
	filename  string
	err       error
	lastWeeks *int
}

func (m *mockExportService) ExportTimetableXLSX(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportTimetableICS(_ context.Context, _ string, weeks *int) ([]byte, string, error) {
	m.lastWeeks = weeks
	return m.body, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// newTestRouter 注入学号后注册单个路由
func newTestRouter(method, path string, h gin.HandlerFunc, studentID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if studentID != "" {
			c.Set("student_id", studentID)
			c.Set("role", "student")
		}
		c.Next()
	})
	r.Handle(method, path, h)
	return r
}

func doRequest(r *gin.Engine, method, url string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// CalendarHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCalendarHandler_ListSessions(t *testing.T) {
	mock := &mockCalendarService{sessionsResult: &dto.SessionListResponse{Total: 0, Sessions: []dto.SessionResponse{}}}
	h := NewCalendarHandler(mock)
	r := newTestRouter("GET", "/sessions", h.ListSessions, "20293303")

	w := doRequest(r, "GET", "/sessions?q=ad1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastQuery != "ad1" {
		t.Errorf("expected q=ad1, got %q", mock.lastQuery)
	}
}

func TestCalendarHandler_ListSessions_CatalogUnavailable(t *testing.T) {
	mock := &mockCalendarService{sessionsErr: service.ErrCalendarCatalogUnavailable}
	h := NewCalendarHandler(mock)
	r := newTestRouter("GET", "/sessions", h.ListSessions, "20293303")

	w := doRequest(r, "GET", "/sessions", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestCalendarHandler_ListOccurrences_BindsQuery(t *testing.T) {
	mock := &mockCalendarService{occurrencesResult: &dto.OccurrenceListResponse{}}
	h := NewCalendarHandler(mock)
	r := newTestRouter("GET", "/occurrences", h.ListOccurrences, "20293303")

	w := doRequest(r, "GET", "/occurrences?mode=bulk&start=2024-01-10&session_ids=a,b", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	q := mock.lastOccQuery
	if q.Mode != "bulk" || q.StartDate != "2024-01-10" || len(q.IDs()) != 2 {
		t.Errorf("query not bound: %+v", q)
	}
}

func TestCalendarHandler_ListOccurrences_BadQuery(t *testing.T) {
	h := NewCalendarHandler(&mockCalendarService{})
	r := newTestRouter("GET", "/occurrences", h.ListOccurrences, "20293303")

	for _, url := range []string{"/occurrences?mode=yearly", "/occurrences?start=10-01-2024", "/occurrences?weeks=-1"} {
		w := doRequest(r, "GET", url, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", url, w.Code)
		}
	}
}

func TestCalendarHandler_ListOccurrences_InvalidWindow(t *testing.T) {
	mock := &mockCalendarService{occurrencesErr: service.ErrCalendarInvalidWindow}
	h := NewCalendarHandler(mock)
	r := newTestRouter("GET", "/occurrences", h.ListOccurrences, "20293303")

	w := doRequest(r, "GET", "/occurrences?weeks=100", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16001 {
		t.Errorf("expected error code 16001, got %d", resp.Code)
	}
}

func TestCalendarHandler_CheckConflicts(t *testing.T) {
	mock := &mockCalendarService{conflictsResult: &dto.CheckConflictsResponse{HasConflicts: true}}
	h := NewCalendarHandler(mock)
	r := newTestRouter("POST", "/conflicts", h.CheckConflicts, "20293303")

	w := doRequest(r, "POST", "/conflicts", jsonBody(dto.CheckConflictsRequest{
		Sessions: []dto.CandidateSession{{Code: "AD113", Day: "Mon", StartTime: "09:00", EndTime: "11:00"}},
	}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCalendarHandler_CheckConflicts_BadJSON(t *testing.T) {
	h := NewCalendarHandler(&mockCalendarService{})
	r := newTestRouter("POST", "/conflicts", h.CheckConflicts, "20293303")

	w := doRequest(r, "POST", "/conflicts", bytes.NewReader([]byte("invalid json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	// 缺少 start_time
	w = doRequest(r, "POST", "/conflicts", jsonBody(map[string]interface{}{
		"sessions": []map[string]string{{"code": "AD113", "end_time": "11:00"}},
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing start_time, got %d", w.Code)
	}
}

func TestCalendarHandler_GetMyTimetable_UsesTokenStudentID(t *testing.T) {
	mock := &mockCalendarService{viewResult: &dto.MyTimetableResponse{StudentID: "20293303"}}
	h := NewCalendarHandler(mock)
	r := newTestRouter("GET", "/me", h.GetMyTimetable, "20293303")

	w := doRequest(r, "GET", "/me?student_id=someone-else", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastStudent != "20293303" {
		t.Errorf("学号必须取自 Token，实际 %q", mock.lastStudent)
	}
}

func TestCalendarHandler_GetMyTimetable_Unauthenticated(t *testing.T) {
	h := NewCalendarHandler(&mockCalendarService{})
	r := newTestRouter("GET", "/me", h.GetMyTimetable, "")

	w := doRequest(r, "GET", "/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCalendarHandler_SaveTimetable(t *testing.T) {
	mock := &mockCalendarService{saveResult: &dto.SaveTimetableResponse{StudentID: "20293303"}}
	h := NewCalendarHandler(mock)
	r := newTestRouter("PUT", "/me", h.SaveTimetable, "20293303")

	w := doRequest(r, "PUT", "/me", jsonBody(dto.SaveTimetableRequest{SessionIDs: []string{"s1", "s2"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.lastSaveStudent != "20293303" || len(mock.lastSaveIDs) != 2 {
		t.Errorf("save args: %q %v", mock.lastSaveStudent, mock.lastSaveIDs)
	}
}

func TestCalendarHandler_SaveTimetable_StoreUnavailable(t *testing.T) {
	pending := &service.PendingSelectionError{
		SessionIDs: []string{"s1", "s2"},
		Err:        service.ErrCalendarStoreUnavailable,
	}
	mock := &mockCalendarService{saveErr: pending}
	h := NewCalendarHandler(mock)
	r := newTestRouter("PUT", "/me", h.SaveTimetable, "20293303")

	w := doRequest(r, "PUT", "/me", jsonBody(dto.SaveTimetableRequest{SessionIDs: []string{"s1", "s2"}}))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "5" {
		t.Errorf("expected Retry-After: 5, got %q", w.Header().Get("Retry-After"))
	}

	var body struct {
		Code int                          `json:"code"`
		Data dto.PendingSelectionResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Code != 16003 {
		t.Errorf("expected error code 16003, got %d", body.Code)
	}
	if len(body.Data.SessionIDs) != 2 {
		t.Errorf("未保存的选择应回传给客户端: %+v", body.Data)
	}
}

func TestCalendarHandler_AddSession(t *testing.T) {
	mock := &mockCalendarService{viewResult: &dto.MyTimetableResponse{State: "populated"}}
	h := NewCalendarHandler(mock)
	r := newTestRouter("POST", "/me/sessions/:id", h.AddSession, "20293303")

	w := doRequest(r, "POST", "/me/sessions/AD113-01-MON-0900", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastSessionID != "AD113-01-MON-0900" {
		t.Errorf("session id = %q", mock.lastSessionID)
	}
}

func TestCalendarHandler_AddSession_NotFound(t *testing.T) {
	mock := &mockCalendarService{viewErr: service.ErrCalendarSessionNotFound}
	h := NewCalendarHandler(mock)
	r := newTestRouter("POST", "/me/sessions/:id", h.AddSession, "20293303")

	w := doRequest(r, "POST", "/me/sessions/NOPE", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16002 {
		t.Errorf("expected error code 16002, got %d", resp.Code)
	}
}

func TestCalendarHandler_RemoveAndClear(t *testing.T) {
	mock := &mockCalendarService{viewResult: &dto.MyTimetableResponse{State: "empty"}}
	h := NewCalendarHandler(mock)

	r := newTestRouter("DELETE", "/me/sessions/:id", h.RemoveSession, "20293303")
	if w := doRequest(r, "DELETE", "/me/sessions/s1", nil); w.Code != http.StatusOK {
		t.Errorf("remove: expected 200, got %d", w.Code)
	}

	r = newTestRouter("DELETE", "/me/sessions", h.ClearSessions, "20293303")
	if w := doRequest(r, "DELETE", "/me/sessions", nil); w.Code != http.StatusOK {
		t.Errorf("clear: expected 200, got %d", w.Code)
	}
}

func TestCalendarHandler_InternalError(t *testing.T) {
	mock := &mockCalendarService{viewErr: errors.New("boom")}
	h := NewCalendarHandler(mock)
	r := newTestRouter("GET", "/me", h.GetMyTimetable, "20293303")

	w := doRequest(r, "GET", "/me", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportXLSX_Success(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("fake-excel"), filename: "timetable_20293303.xlsx"}
	h := NewExportHandler(mock)
	r := newTestRouter("GET", "/me/export.xlsx", h.ExportXLSX, "20293303")

	w := doRequest(r, "GET", "/me/export.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("unexpected Content-Type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename*=UTF-8''timetable_20293303.xlsx" {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
	if w.Body.String() != "fake-excel" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestExportHandler_ExportXLSX_Empty(t *testing.T) {
	mock := &mockExportService{err: service.ErrExportEmptyTimetable}
	h := NewExportHandler(mock)
	r := newTestRouter("GET", "/me/export.xlsx", h.ExportXLSX, "20293303")

	w := doRequest(r, "GET", "/me/export.xlsx", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestExportHandler_ExportICS(t *testing.T) {
	mock := &mockExportService{body: []byte("BEGIN:VCALENDAR"), filename: "t.ics"}
	h := NewExportHandler(mock)
	r := newTestRouter("GET", "/me/export.ics", h.ExportICS, "20293303")

	w := doRequest(r, "GET", "/me/export.ics?weeks=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastWeeks == nil || *mock.lastWeeks != 3 {
		t.Errorf("weeks not bound: %v", mock.lastWeeks)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeICS {
		t.Errorf("unexpected Content-Type: %s", ct)
	}

	if w := doRequest(r, "GET", "/me/export.ics?weeks=0", nil); w.Code != http.StatusBadRequest {
		t.Errorf("weeks=0: expected 400, got %d", w.Code)
	}
}
