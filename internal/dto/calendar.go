package dto

import "strings"

// ── 课程目录 ──

// SessionResponse 规范化后的一次每周上课
type SessionResponse struct {
	ID          string `json:"id"`
	CourseCode  string `json:"course_code"`
	ClassNo     string `json:"class_no"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Day         string `json:"day"`     // Sun..Sat
	Weekday     int    `json:"weekday"` // 0-6，Sunday=0
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Room        string `json:"room"`
	CampusCode  string `json:"campus_code"`
	Campus      string `json:"campus"`
	Instructor  string `json:"instructor,omitempty"`
	Color       string `json:"color"`
	BorderColor string `json:"border_color"`
}

// SessionListResponse GET /calendar/sessions
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
	Skipped  int               `json:"skipped"` // 无法解析而被丢弃的原始记录数
}

// ── 日历展开 ──

// OccurrenceQuery GET /calendar/occurrences 查询参数
type OccurrenceQuery struct {
	StartDate  string `form:"start"       binding:"omitempty,datetime=2006-01-02"`
	Weeks      *int   `form:"weeks"       binding:"omitempty,min=0"`
	Mode       string `form:"mode"        binding:"omitempty,oneof=week bulk"`
	SessionIDs string `form:"session_ids" binding:"omitempty,max=4096"` // 逗号分隔，为空表示全部
}

// IDs 拆分 session_ids
func (q *OccurrenceQuery) IDs() []string {
	if q.SessionIDs == "" {
		return nil
	}
	parts := strings.Split(q.SessionIDs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OccurrenceResponse 日历上的一个色块
type OccurrenceResponse struct {
	ID              string `json:"id"` // sessionID#week
	SessionID       string `json:"session_id"`
	OccurrenceIndex int    `json:"occurrence_index"`
	Title           string `json:"title"` // CODE - classNo
	CourseCode      string `json:"course_code"`
	CourseTitle     string `json:"course_title"`
	ClassNo         string `json:"class_no"`
	Start           string `json:"start"` // RFC3339，本地时区
	End             string `json:"end"`
	Room            string `json:"room"`
	Campus          string `json:"campus"`
	Color           string `json:"color"`
	BorderColor     string `json:"border_color"`
	TextColor       string `json:"text_color"`
}

// OccurrenceListResponse GET /calendar/occurrences
type OccurrenceListResponse struct {
	WindowStart string               `json:"window_start"` // 对齐后的周一，YYYY-MM-DD
	WindowEnd   string               `json:"window_end"`   // 不含
	Weeks       int                  `json:"weeks"`
	Occurrences []OccurrenceResponse `json:"occurrences"`
}

// ── 冲突检测 ──

// CandidateSession 客户端提交的待检测课程（可能尚未保存）
// 星期可用 day（Mon / Monday）或 weekday（0-6）任一给出
type CandidateSession struct {
	ID        string `json:"id"`
	Code      string `json:"code"      binding:"required,max=32"`
	ClassNo   string `json:"class_no"  binding:"omitempty,max=16"`
	Day       string `json:"day"       binding:"omitempty,max=16"`
	Weekday   *int   `json:"weekday"   binding:"omitempty,min=0,max=6"`
	StartTime string `json:"start_time" binding:"required,max=16"`
	EndTime   string `json:"end_time"   binding:"required,max=16"`
}

// CheckConflictsRequest POST /calendar/conflicts
type CheckConflictsRequest struct {
	Sessions []CandidateSession `json:"sessions" binding:"max=200,dive"`
}

// ConflictResponse 一对冲突
type ConflictResponse struct {
	SessionIDA   string `json:"session_id_a"`
	SessionIDB   string `json:"session_id_b"`
	CourseA      string `json:"course_a"`
	CourseB      string `json:"course_b"`
	Day          string `json:"day"`
	Weekday      int    `json:"weekday"`
	OverlapStart string `json:"overlap_start"`
	OverlapEnd   string `json:"overlap_end"`
}

// CheckConflictsResponse 冲突检测结果
type CheckConflictsResponse struct {
	HasConflicts bool               `json:"has_conflicts"`
	Conflicts    []ConflictResponse `json:"conflicts"`
	Skipped      int                `json:"skipped"` // 时间无法解析的候选数
}

// ── 个人课表 ──

// SaveTimetableRequest PUT /calendar/me，整体替换
type SaveTimetableRequest struct {
	SessionIDs []string `json:"session_ids" binding:"max=200,dive,max=64"`
}

// SaveTimetableResponse 保存结果
type SaveTimetableResponse struct {
	StudentID  string   `json:"student_id"`
	SessionIDs []string `json:"session_ids"`
	UpdatedAt  string   `json:"updated_at"`
}

// PendingSelectionResponse 保存失败时回传未落库的选择，客户端据此重试
type PendingSelectionResponse struct {
	SessionIDs []string `json:"session_ids"`
}

// MyTimetableResponse 个人课表视图（选择变更后按变更后的集合重新计算）
type MyTimetableResponse struct {
	StudentID    string               `json:"student_id"`
	State        string               `json:"state"` // empty | populated
	SessionIDs   []string             `json:"session_ids"`
	Sessions     []SessionResponse    `json:"sessions"`
	MissingIDs   []string             `json:"missing_ids"` // 已选但目录中已不存在
	HasConflicts bool                 `json:"has_conflicts"`
	Conflicts    []ConflictResponse   `json:"conflicts"`
	WindowStart  string               `json:"window_start"`
	Occurrences  []OccurrenceResponse `json:"occurrences"` // 本周
	UpdatedAt    *string              `json:"updated_at"`
}
