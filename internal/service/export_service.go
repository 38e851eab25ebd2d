package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"efs-platform/backend/internal/dto"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmptyTimetable = errors.New("个人课表为空，无可导出内容")
	ErrExportGenerateFail   = errors.New("生成导出文件失败")
)

// ExportService 个人课表导出业务接口
//
// 设计说明：
//   - 数据全部经 CalendarService 获取，与网页展示同源
//   - Excel：时间段行 × 周一~周日列，冲突单独一个 Sheet
//   - ICS：按窗口展开的每次上课，默认使用多周窗口
type ExportService interface {
	// ExportTimetableXLSX 导出个人课表为 Excel
	ExportTimetableXLSX(ctx context.Context, studentID string) (*bytes.Buffer, string, error)
	// ExportTimetableICS 导出个人课表为 ICS，weeks 为 nil 时使用多周默认值
	ExportTimetableICS(ctx context.Context, studentID string, weeks *int) ([]byte, string, error)
}

type exportService struct {
	calendar CalendarService
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(calendar CalendarService, logger *zap.Logger) ExportService {
	return &exportService{calendar: calendar, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportTimetableXLSX 导出个人课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "课表"：行头为时间段（按开始、结束排序），列头 Mon ~ Sun
//   - 单元格：CODE - classNo（换行）房间，填充课程配色
//   - Sheet "冲突"：仅在存在冲突时生成

// weekColumns 周一开头的列顺序（Sunday=0 索引）
var weekColumns = []int{1, 2, 3, 4, 5, 6, 0}

func (s *exportService) ExportTimetableXLSX(ctx context.Context, studentID string) (*bytes.Buffer, string, error) {
	view, err := s.calendar.GetMyTimetable(ctx, studentID)
	if err != nil {
		return nil, "", err
	}
	if len(view.Sessions) == 0 {
		return nil, "", ErrExportEmptyTimetable
	}

	// 1. 收集唯一时间段并建立索引 "weekday|start-end" → sessions
	type rowKey struct{ start, end string }
	rowSeen := make(map[rowKey]bool)
	var rows []rowKey
	cells := make(map[string][]dto.SessionResponse)
	for _, sess := range view.Sessions {
		rk := rowKey{sess.StartTime, sess.EndTime}
		if !rowSeen[rk] {
			rowSeen[rk] = true
			rows = append(rows, rk)
		}
		key := fmt.Sprintf("%d|%s-%s", sess.Weekday, sess.StartTime, sess.EndTime)
		cells[key] = append(cells[key], sess)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].start != rows[j].start {
			return rows[i].start < rows[j].start
		}
		return rows[i].end < rows[j].end
	})

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", colName(len(weekColumns)), 20)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	colorStyles := make(map[string]int)
	styleFor := func(color string) int {
		if id, ok := colorStyles[color]; ok {
			return id
		}
		id, _ := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Color: string(OccurrenceTextColor)},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		})
		colorStyles[color] = id
		return id
	}

	// 标题行
	lastCol := colName(len(weekColumns))
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 个人课表", view.StudentID))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "时间")
	for i, wd := range weekColumns {
		f.SetCellValue(sheetName, cell(colName(i+1), row), WeekdayAbbrev(wd))
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle)

	// 数据行
	row = 3
	for _, rk := range rows {
		f.SetCellValue(sheetName, cell("A", row), rk.start+"-"+rk.end)
		for i, wd := range weekColumns {
			sessions := cells[fmt.Sprintf("%d|%s-%s", wd, rk.start, rk.end)]
			if len(sessions) == 0 {
				continue
			}
			lines := make([]string, 0, len(sessions))
			for _, sess := range sessions {
				lines = append(lines, sessionCellText(sess))
			}
			ref := cell(colName(i+1), row)
			f.SetCellValue(sheetName, ref, strings.Join(lines, "\n"))
			f.SetCellStyle(sheetName, ref, ref, styleFor(sessions[0].Color))
		}
		row++
	}

	// 3. 冲突 Sheet
	if view.HasConflicts {
		conflictSheet := "冲突"
		f.NewSheet(conflictSheet)
		f.SetColWidth(conflictSheet, "A", "C", 10)
		f.SetColWidth(conflictSheet, "D", "E", 18)
		for i, h := range []string{"星期", "开始", "结束", "课程 A", "课程 B"} {
			f.SetCellValue(conflictSheet, cell(colName(i), 1), h)
		}
		f.SetCellStyle(conflictSheet, "A1", "E1", headerStyle)
		for i, c := range view.Conflicts {
			r := i + 2
			f.SetCellValue(conflictSheet, cell("A", r), c.Day)
			f.SetCellValue(conflictSheet, cell("B", r), c.OverlapStart)
			f.SetCellValue(conflictSheet, cell("C", r), c.OverlapEnd)
			f.SetCellValue(conflictSheet, cell("D", r), c.CourseA)
			f.SetCellValue(conflictSheet, cell("E", r), c.CourseB)
		}
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("timetable_%s.xlsx", view.StudentID)
	return buf, filename, nil
}

func sessionCellText(sess dto.SessionResponse) string {
	label := sess.CourseCode
	if sess.ClassNo != "" {
		label += " - " + sess.ClassNo
	}
	if sess.Room != "" {
		label += "\n" + sess.Room
	}
	return label
}

// ═══════════════════════════════════════════════════════════
// ExportTimetableICS 导出个人课表为 ICS
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportTimetableICS(ctx context.Context, studentID string, weeks *int) ([]byte, string, error) {
	ids, err := s.calendar.LoadTimetable(ctx, studentID)
	if err != nil {
		return nil, "", err
	}
	if len(ids) == 0 {
		return nil, "", ErrExportEmptyTimetable
	}

	q := &dto.OccurrenceQuery{SessionIDs: strings.Join(ids, ","), Weeks: weeks}
	if weeks == nil {
		q.Mode = "bulk"
	}
	window, err := s.calendar.ListOccurrences(ctx, q)
	if err != nil {
		return nil, "", err
	}
	if len(window.Occurrences) == 0 {
		return nil, "", ErrExportEmptyTimetable
	}

	body, err := BuildTimetableICS(studentID, window.Occurrences, s.now().UTC())
	if err != nil {
		s.logger.Error("生成 ICS 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("timetable_%s_%s.ics", studentID, window.WindowStart)
	return []byte(body), filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
