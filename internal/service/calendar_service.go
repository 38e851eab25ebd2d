package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"efs-platform/backend/config"
	"efs-platform/backend/internal/dto"
	"efs-platform/backend/internal/model"
	"efs-platform/backend/internal/repository"
	pkgerrors "efs-platform/backend/pkg/errors"
)

// ── 课表模块业务错误 ──

var (
	ErrCalendarStoreUnavailable   = errors.New("个人课表存储暂不可用，请稍后重试")
	ErrCalendarCatalogUnavailable = errors.New("课程目录暂不可用，请稍后重试")
	ErrCalendarStudentIDRequired  = errors.New("缺少学号")
	ErrCalendarSessionNotFound    = errors.New("课程时段不存在")
	ErrCalendarInvalidWindow      = errors.New("日历窗口参数无效")
)

// PendingSelectionError 保存失败，携带尚未落库的选择，调用方可原样重试
type PendingSelectionError struct {
	SessionIDs []string
	Err        error
}

func (e *PendingSelectionError) Error() string { return e.Err.Error() }

func (e *PendingSelectionError) Unwrap() error { return e.Err }

// CatalogCache 原始课程数据缓存（由 pkg/redis 实现）
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]byte, bool, error)
	SetCatalog(ctx context.Context, payload []byte, ttl time.Duration) error
	InvalidateCatalog(ctx context.Context) error
}

// ── CalendarService 接口 ───────────────────────────────────
//
// 设计说明：
//   - 目录每次请求重新加载（经 Redis 缓存原始行），不在进程内保存状态。
//   - 学号一律由调用方显式传入，本服务从不读取其他学生的课表。
//   - 增删操作：读取 → 变更 → 保存 → 按变更后的集合重算冲突与本周日历。
//   - 个人课表保存为整体替换，后写覆盖。
// ─────────────────────────────────────────────────────────────

// CalendarService 课表模块业务接口
type CalendarService interface {
	// ListSessions 列出规范化后的课程时段，q 为空返回全部
	ListSessions(ctx context.Context, q string) (*dto.SessionListResponse, error)
	// ListOccurrences 展开日历窗口（默认本周，bulk 为多周）
	ListOccurrences(ctx context.Context, q *dto.OccurrenceQuery) (*dto.OccurrenceListResponse, error)
	// CheckConflicts 检测候选课程之间的冲突，不读写存储
	CheckConflicts(ctx context.Context, req *dto.CheckConflictsRequest) (*dto.CheckConflictsResponse, error)
	// LoadTimetable 读取个人课表，未保存过返回空切片
	LoadTimetable(ctx context.Context, studentID string) ([]string, error)
	// SaveTimetable 整体替换个人课表
	SaveTimetable(ctx context.Context, studentID string, sessionIDs []string) (*dto.SaveTimetableResponse, error)
	// GetMyTimetable 个人课表视图
	GetMyTimetable(ctx context.Context, studentID string) (*dto.MyTimetableResponse, error)
	// AddSession 加入一个课程时段并返回变更后的视图
	AddSession(ctx context.Context, studentID, sessionID string) (*dto.MyTimetableResponse, error)
	// RemoveSession 移除一个课程时段（不存在时不报错）
	RemoveSession(ctx context.Context, studentID, sessionID string) (*dto.MyTimetableResponse, error)
	// ClearSessions 清空个人课表
	ClearSessions(ctx context.Context, studentID string) (*dto.MyTimetableResponse, error)
	// InvalidateCatalog 清除课程目录缓存
	InvalidateCatalog(ctx context.Context) error
}

type calendarService struct {
	repo   *repository.Repository
	cache  CatalogCache
	cfg    *config.CalendarConfig
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService 创建 CalendarService 实例，cache 可为 nil
func NewCalendarService(repo *repository.Repository, cache CatalogCache, cfg *config.CalendarConfig, logger *zap.Logger) CalendarService {
	return &calendarService{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		loc:    cfg.Location(),
		logger: logger,
		now:    time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// 课程目录
// ════════════════════════════════════════════════════════════

func (s *calendarService) ListSessions(ctx context.Context, q string) (*dto.SessionListResponse, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	matched := FilterSessions(catalog.Sessions, q)
	items := make([]dto.SessionResponse, 0, len(matched))
	for _, sess := range matched {
		items = append(items, toSessionResponse(sess))
	}
	return &dto.SessionListResponse{
		Sessions: items,
		Total:    len(items),
		Skipped:  catalog.Skipped,
	}, nil
}

// catalog 读取原始课程（优先缓存）并规范化
func (s *calendarService) catalog(ctx context.Context) (CatalogResult, error) {
	courses, err := s.rawCourses(ctx)
	if err != nil {
		return CatalogResult{}, err
	}
	result := LoadCatalog(courses)
	if result.Skipped > 0 {
		s.logger.Warn("部分上课记录无法解析，已跳过",
			zap.Int("skipped", result.Skipped),
			zap.Int("loaded", len(result.Sessions)),
		)
		for _, d := range result.Diagnostics {
			s.logger.Debug("跳过上课记录",
				zap.String("course_code", d.CourseCode),
				zap.Int("row", d.Row),
				zap.Error(d.Err),
			)
		}
	}
	return result, nil
}

func (s *calendarService) rawCourses(ctx context.Context) ([]model.Course, error) {
	if s.cache != nil {
		payload, ok, err := s.cache.GetCatalog(ctx)
		if err != nil {
			s.logger.Warn("读取课程目录缓存失败，回源数据库", zap.Error(err))
		} else if ok {
			var courses []model.Course
			if err := json.Unmarshal(payload, &courses); err == nil {
				return courses, nil
			}
			s.logger.Warn("课程目录缓存内容损坏，回源数据库")
		}
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	courses, err := s.repo.Course.ListWithTimetable(storeCtx)
	if err != nil {
		s.logger.Error("查询课程目录失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCalendarCatalogUnavailable, err)
	}

	if s.cache != nil && s.cfg.CatalogCacheTTL > 0 {
		if payload, err := json.Marshal(courses); err == nil {
			if err := s.cache.SetCatalog(ctx, payload, s.cfg.CatalogCacheTTL); err != nil {
				s.logger.Warn("写入课程目录缓存失败", zap.Error(err))
			}
		}
	}
	return courses, nil
}

func (s *calendarService) InvalidateCatalog(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Error("清除课程目录缓存失败", zap.Error(err))
		return err
	}
	s.logger.Info("课程目录缓存已清除")
	return nil
}

// ════════════════════════════════════════════════════════════
// 日历展开
// ════════════════════════════════════════════════════════════

func (s *calendarService) ListOccurrences(ctx context.Context, q *dto.OccurrenceQuery) (*dto.OccurrenceListResponse, error) {
	weeks, start, err := s.resolveWindow(q)
	if err != nil {
		return nil, err
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	sessions := catalog.Sessions
	if ids := q.IDs(); len(ids) > 0 {
		sessions = pickSessions(catalog.Index(), ids)
	}

	windowStart := WeekStart(start)
	return &dto.OccurrenceListResponse{
		WindowStart: windowStart.Format(dateLayout),
		WindowEnd:   windowStart.AddDate(0, 0, weeks*7).Format(dateLayout),
		Weeks:       weeks,
		Occurrences: toOccurrenceResponses(GenerateOccurrences(sessions, windowStart, weeks), sessions),
	}, nil
}

const dateLayout = "2006-01-02"

// resolveWindow 默认本周 1 周；mode=bulk 使用配置的多周；显式 weeks 优先于默认值
func (s *calendarService) resolveWindow(q *dto.OccurrenceQuery) (int, time.Time, error) {
	weeks := 1
	switch {
	case q.Mode == "bulk":
		weeks = s.cfg.BulkWeeks
	case q.Weeks != nil:
		weeks = *q.Weeks
	}
	if weeks < 0 || weeks > s.cfg.MaxWeeks {
		return 0, time.Time{}, fmt.Errorf("%w: weeks 必须在 0-%d 之间", ErrCalendarInvalidWindow, s.cfg.MaxWeeks)
	}

	start := s.now().In(s.loc)
	if q.StartDate != "" {
		t, err := time.ParseInLocation(dateLayout, q.StartDate, s.loc)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("%w: start 必须为 YYYY-MM-DD", ErrCalendarInvalidWindow)
		}
		start = t
	}
	return weeks, start, nil
}

// ════════════════════════════════════════════════════════════
// 冲突检测
// ════════════════════════════════════════════════════════════

func (s *calendarService) CheckConflicts(_ context.Context, req *dto.CheckConflictsRequest) (*dto.CheckConflictsResponse, error) {
	sessions := make([]Session, 0, len(req.Sessions))
	skipped := 0
	for _, c := range req.Sessions {
		sess, err := candidateToSession(c)
		if err != nil {
			skipped++
			s.logger.Debug("跳过无法解析的候选课程", zap.String("code", c.Code), zap.Error(err))
			continue
		}
		sessions = append(sessions, sess)
	}

	conflicts := toConflictResponses(DetectConflicts(sessions), indexSessions(sessions))
	return &dto.CheckConflictsResponse{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
		Skipped:      skipped,
	}, nil
}

func candidateToSession(c dto.CandidateSession) (Session, error) {
	var weekday int
	switch {
	case c.Weekday != nil:
		weekday = *c.Weekday
		if !validWeekday(weekday) {
			return Session{}, &ValidationError{Field: "星期", Input: strconv.Itoa(weekday), Reason: "必须为 0-6"}
		}
	default:
		d, err := ParseWeekday(c.Day)
		if err != nil {
			return Session{}, err
		}
		weekday = d
	}

	start, err := ParseTime(c.StartTime)
	if err != nil {
		return Session{}, err
	}
	end, err := ParseTime(c.EndTime)
	if err != nil {
		return Session{}, err
	}
	tr := TimeRange{StartMinute: start, EndMinute: end}
	if err := tr.validate(c.StartTime + "-" + c.EndTime); err != nil {
		return Session{}, err
	}

	code := strings.ToUpper(strings.TrimSpace(c.Code))
	classNo := strings.TrimSpace(c.ClassNo)
	id := strings.TrimSpace(c.ID)
	if id == "" {
		id = SessionID(code, classNo, weekday, start)
	}
	return Session{
		ID:          id,
		CourseCode:  code,
		ClassNo:     classNo,
		Weekday:     weekday,
		StartMinute: start,
		EndMinute:   end,
	}, nil
}

// ════════════════════════════════════════════════════════════
// 个人课表存储
// ════════════════════════════════════════════════════════════

func (s *calendarService) LoadTimetable(ctx context.Context, studentID string) ([]string, error) {
	sel, _, err := s.loadSelection(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return sel.IDs(), nil
}

func (s *calendarService) SaveTimetable(ctx context.Context, studentID string, sessionIDs []string) (*dto.SaveTimetableResponse, error) {
	sel := NewSelection(sessionIDs)
	tt, err := s.saveSelection(ctx, studentID, sel)
	if err != nil {
		return nil, err
	}
	return &dto.SaveTimetableResponse{
		StudentID:  tt.StudentID,
		SessionIDs: sel.IDs(),
		UpdatedAt:  tt.UpdatedAt.In(s.loc).Format(time.RFC3339),
	}, nil
}

// loadSelection 未保存过视为空选择
func (s *calendarService) loadSelection(ctx context.Context, studentID string) (*Selection, *time.Time, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, nil, ErrCalendarStudentIDRequired
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	tt, err := s.repo.UserTimetable.GetByStudentID(storeCtx, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewSelection(nil), nil, nil
	}
	if err != nil {
		s.logger.Error("读取个人课表失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, nil, s.storeErr(err)
	}
	updatedAt := tt.UpdatedAt
	return NewSelection(tt.SessionIDs), &updatedAt, nil
}

// saveSelection 失败时返回 *PendingSelectionError
func (s *calendarService) saveSelection(ctx context.Context, studentID string, sel *Selection) (*model.UserTimetable, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, ErrCalendarStudentIDRequired
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	tt, err := s.repo.UserTimetable.Replace(storeCtx, studentID, sel.IDs())
	if err != nil {
		s.logger.Error("保存个人课表失败",
			zap.String("student_id", studentID),
			zap.Int("count", sel.Len()),
			zap.Error(err),
		)
		return nil, &PendingSelectionError{SessionIDs: sel.IDs(), Err: s.storeErr(err)}
	}
	s.logger.Info("个人课表已保存", zap.String("student_id", studentID), zap.Int("count", sel.Len()))
	return tt, nil
}

func (s *calendarService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// storeErr 连接类错误归为可重试，其余原样包装
func (s *calendarService) storeErr(err error) error {
	if pkgerrors.IsStoreUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrCalendarStoreUnavailable, err)
	}
	return fmt.Errorf("个人课表读写失败: %w", err)
}

// ════════════════════════════════════════════════════════════
// 个人课表视图与增删
// ════════════════════════════════════════════════════════════

func (s *calendarService) GetMyTimetable(ctx context.Context, studentID string) (*dto.MyTimetableResponse, error) {
	sel, updatedAt, err := s.loadSelection(ctx, studentID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildView(studentID, sel, catalog, updatedAt), nil
}

func (s *calendarService) AddSession(ctx context.Context, studentID, sessionID string) (*dto.MyTimetableResponse, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if _, ok := catalog.Index()[sessionID]; !ok {
		return nil, ErrCalendarSessionNotFound
	}

	return s.mutate(ctx, studentID, catalog, func(sel *Selection) bool {
		return sel.Add(sessionID)
	})
}

func (s *calendarService) RemoveSession(ctx context.Context, studentID, sessionID string) (*dto.MyTimetableResponse, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, studentID, catalog, func(sel *Selection) bool {
		return sel.Remove(sessionID)
	})
}

func (s *calendarService) ClearSessions(ctx context.Context, studentID string) (*dto.MyTimetableResponse, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, studentID, catalog, func(sel *Selection) bool {
		changed := sel.Len() > 0
		sel.Clear()
		return changed
	})
}

// mutate 读取 → 变更 → 保存（无变化则跳过）→ 用变更后的选择构建视图
func (s *calendarService) mutate(ctx context.Context, studentID string, catalog CatalogResult, apply func(*Selection) bool) (*dto.MyTimetableResponse, error) {
	sel, updatedAt, err := s.loadSelection(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if apply(sel) {
		tt, err := s.saveSelection(ctx, studentID, sel)
		if err != nil {
			return nil, err
		}
		updatedAt = &tt.UpdatedAt
	}
	return s.buildView(studentID, sel, catalog, updatedAt), nil
}

func (s *calendarService) buildView(studentID string, sel *Selection, catalog CatalogResult, updatedAt *time.Time) *dto.MyTimetableResponse {
	index := catalog.Index()
	ids := sel.IDs()

	selected := make([]Session, 0, len(ids))
	missing := make([]string, 0)
	for _, id := range ids {
		if sess, ok := index[id]; ok {
			selected = append(selected, sess)
		} else {
			missing = append(missing, id)
		}
	}

	sessions := make([]dto.SessionResponse, 0, len(selected))
	for _, sess := range selected {
		sessions = append(sessions, toSessionResponse(sess))
	}
	conflicts := toConflictResponses(DetectConflicts(selected), index)
	windowStart := WeekStart(s.now().In(s.loc))

	view := &dto.MyTimetableResponse{
		StudentID:    strings.TrimSpace(studentID),
		State:        string(sel.State()),
		SessionIDs:   ids,
		Sessions:     sessions,
		MissingIDs:   missing,
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
		WindowStart:  windowStart.Format(dateLayout),
		Occurrences:  toOccurrenceResponses(GenerateOccurrences(selected, windowStart, 1), selected),
	}
	if updatedAt != nil {
		ts := updatedAt.In(s.loc).Format(time.RFC3339)
		view.UpdatedAt = &ts
	}
	return view
}

// ── 转换 ──

func pickSessions(index map[string]Session, ids []string) []Session {
	out := make([]Session, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if sess, ok := index[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, sess)
		}
	}
	return out
}

func indexSessions(sessions []Session) map[string]Session {
	idx := make(map[string]Session, len(sessions))
	for _, sess := range sessions {
		if _, ok := idx[sess.ID]; !ok {
			idx[sess.ID] = sess
		}
	}
	return idx
}

func toSessionResponse(sess Session) dto.SessionResponse {
	return dto.SessionResponse{
		ID:          sess.ID,
		CourseCode:  sess.CourseCode,
		ClassNo:     sess.ClassNo,
		Title:       sess.Title,
		Description: sess.Description,
		Day:         WeekdayAbbrev(sess.Weekday),
		Weekday:     sess.Weekday,
		StartTime:   FormatMinute(sess.StartMinute),
		EndTime:     FormatMinute(sess.EndMinute),
		Room:        sess.Room,
		CampusCode:  sess.CampusCode,
		Campus:      sess.Campus,
		Instructor:  sess.Instructor,
		Color:       string(ColorFor(sess.CourseCode)),
		BorderColor: string(BorderColorFor(sess.CourseCode)),
	}
}

func toOccurrenceResponses(occs []Occurrence, sessions []Session) []dto.OccurrenceResponse {
	index := indexSessions(sessions)
	out := make([]dto.OccurrenceResponse, 0, len(occs))
	for _, o := range occs {
		sess := index[o.SessionID]
		out = append(out, dto.OccurrenceResponse{
			ID:              o.SessionID + "#" + strconv.Itoa(o.OccurrenceIndex),
			SessionID:       o.SessionID,
			OccurrenceIndex: o.OccurrenceIndex,
			Title:           sess.Label(),
			CourseCode:      sess.CourseCode,
			CourseTitle:     sess.Title,
			ClassNo:         sess.ClassNo,
			Start:           o.Start.Format(time.RFC3339),
			End:             o.End.Format(time.RFC3339),
			Room:            sess.Room,
			Campus:          sess.Campus,
			Color:           string(ColorFor(sess.CourseCode)),
			BorderColor:     string(BorderColorFor(sess.CourseCode)),
			TextColor:       string(OccurrenceTextColor),
		})
	}
	return out
}

func toConflictResponses(conflicts []Conflict, index map[string]Session) []dto.ConflictResponse {
	out := make([]dto.ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, dto.ConflictResponse{
			SessionIDA:   c.SessionIDA,
			SessionIDB:   c.SessionIDB,
			CourseA:      index[c.SessionIDA].Label(),
			CourseB:      index[c.SessionIDB].Label(),
			Day:          WeekdayAbbrev(c.Weekday),
			Weekday:      c.Weekday,
			OverlapStart: FormatMinute(c.OverlapStartMinute),
			OverlapEnd:   FormatMinute(c.OverlapEndMinute),
		})
	}
	return out
}

// [自证通过] internal/service/calendar_service.go
