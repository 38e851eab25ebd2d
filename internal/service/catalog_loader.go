package service

import (
	"fmt"
	"sort"
	"strings"

	"efs-platform/backend/internal/model"
)

// ── 课程目录加载 ────────────────────────────────────────────
//
// 将课程管理服务的原始上课记录规范化为 Session 列表。
// 尽力而为：单条记录解析失败只记入诊断并跳过，绝不整体失败。
// 输出按 courseCode、classNo 稳定排序，同样的输入总是得到同样的输出。
// ─────────────────────────────────────────────────────────────

// defaultClassNo 原始记录未填班号时用于生成 ID
const defaultClassNo = "01"

// Session 一个课程班级每周固定的一次上课
type Session struct {
	ID          string
	CourseCode  string
	ClassNo     string
	Weekday     int // 0-6，Sunday=0
	StartMinute int
	EndMinute   int
	Room        string
	CampusCode  string
	Campus      string
	Title       string
	Description string
	Instructor  string
}

// TimeRange 返回上课时间段
func (s Session) TimeRange() TimeRange {
	return TimeRange{StartMinute: s.StartMinute, EndMinute: s.EndMinute}
}

// Label 展示用短名：CODE - classNo
func (s Session) Label() string {
	if s.ClassNo == "" {
		return s.CourseCode
	}
	return s.CourseCode + " - " + s.ClassNo
}

// CatalogDiagnostic 被跳过的原始记录
type CatalogDiagnostic struct {
	CourseCode string
	Row        int // 在该课程 timetable 数组中的下标
	Err        error
}

// CatalogResult 目录加载结果
type CatalogResult struct {
	Sessions    []Session
	Skipped     int
	Diagnostics []CatalogDiagnostic
}

// Index 按 ID 建立索引
func (r CatalogResult) Index() map[string]Session {
	idx := make(map[string]Session, len(r.Sessions))
	for _, s := range r.Sessions {
		idx[s.ID] = s
	}
	return idx
}

// LoadCatalog 规范化原始课程记录
func LoadCatalog(courses []model.Course) CatalogResult {
	var result CatalogResult
	seen := make(map[string]bool)

	skip := func(code string, row int, err error) {
		result.Skipped++
		result.Diagnostics = append(result.Diagnostics, CatalogDiagnostic{CourseCode: code, Row: row, Err: err})
	}

	for _, course := range courses {
		code := strings.ToUpper(strings.TrimSpace(course.Code))
		for row, raw := range course.Timetable {
			if code == "" {
				skip(course.Code, row, &ValidationError{Field: "课程代码", Input: course.Code, Reason: "为空"})
				continue
			}
			sess, err := normalizeRawSession(code, course, raw)
			if err != nil {
				skip(code, row, err)
				continue
			}
			if seen[sess.ID] {
				skip(code, row, &ValidationError{Field: "上课记录", Input: sess.ID, Reason: "与已有记录重复"})
				continue
			}
			seen[sess.ID] = true
			result.Sessions = append(result.Sessions, sess)
		}
	}

	sort.SliceStable(result.Sessions, func(i, j int) bool {
		a, b := result.Sessions[i], result.Sessions[j]
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		return a.ClassNo < b.ClassNo
	})
	return result
}

func normalizeRawSession(code string, course model.Course, raw model.RawSession) (Session, error) {
	weekday, err := ParseWeekday(raw.Day)
	if err != nil {
		return Session{}, err
	}
	tr, err := ParseTimeRange(raw.Time)
	if err != nil {
		return Session{}, err
	}

	classNo := strings.TrimSpace(raw.ClassNo)
	room := strings.TrimSpace(raw.Room)
	campusCode, campus := ResolveCampus(room)

	return Session{
		ID:          SessionID(code, classNo, weekday, tr.StartMinute),
		CourseCode:  code,
		ClassNo:     classNo,
		Weekday:     weekday,
		StartMinute: tr.StartMinute,
		EndMinute:   tr.EndMinute,
		Room:        room,
		CampusCode:  campusCode,
		Campus:      campus,
		Title:       strings.TrimSpace(course.Title),
		Description: course.Description,
		Instructor:  strings.TrimSpace(raw.Instructor),
	}, nil
}

// SessionID 生成稳定 ID：CODE-CLASSNO-DDD-HHMM，例如 AD113-01-MON-0900
// 同一条原始记录在每次重新加载时得到相同 ID
func SessionID(code, classNo string, weekday, startMinute int) string {
	if classNo == "" {
		classNo = defaultClassNo
	}
	return fmt.Sprintf("%s-%s-%s-%02d%02d",
		strings.ToUpper(code), strings.ToUpper(classNo),
		strings.ToUpper(WeekdayAbbrev(weekday)), startMinute/60, startMinute%60)
}

// FilterSessions 按关键字过滤（代码 / 标题 / 班号 / 校区代码，大小写不敏感）
func FilterSessions(sessions []Session, query string) []Session {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return sessions
	}
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if strings.Contains(strings.ToLower(s.CourseCode), q) ||
			strings.Contains(strings.ToLower(s.Title), q) ||
			strings.Contains(strings.ToLower(s.ClassNo), q) ||
			strings.Contains(strings.ToLower(s.CampusCode), q) {
			out = append(out, s)
		}
	}
	return out
}
