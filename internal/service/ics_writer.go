package service

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"efs-platform/backend/internal/dto"
)

// ── ICS 生成器 ──────────────────────────────────────────────
//
// 将个人课表展开后的 Occurrence 写为 iCalendar (RFC 5545)。
// 每个 Occurrence 一个 VEVENT，不写 RRULE：窗口已在服务端展开，
// 日历客户端看到的与网页上看到的完全一致。
// UID = sessionID#week@域名，同一窗口重复导出可被客户端去重更新。
// ─────────────────────────────────────────────────────────────

const (
	icsProductID = "-//EFS Student Portal//Timetable//EN"
	icsUIDDomain = "calendar.efs.local"
)

// BuildTimetableICS 生成个人课表 ICS 文本
func BuildTimetableICS(studentID string, occurrences []dto.OccurrenceResponse, stamp time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(fmt.Sprintf("%s 个人课表", studentID))

	for _, o := range occurrences {
		start, err := time.Parse(time.RFC3339, o.Start)
		if err != nil {
			return "", fmt.Errorf("occurrence %s 开始时间无效: %w", o.ID, err)
		}
		end, err := time.Parse(time.RFC3339, o.End)
		if err != nil {
			return "", fmt.Errorf("occurrence %s 结束时间无效: %w", o.ID, err)
		}

		event := cal.AddEvent(o.ID + "@" + icsUIDDomain)
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(o.Title)
		event.SetLocation(icsLocation(o.Room, o.Campus))
		if o.CourseTitle != "" {
			event.SetDescription(o.CourseTitle)
		}
	}
	return cal.Serialize(), nil
}

func icsLocation(room, campus string) string {
	switch {
	case room == "":
		return campus
	case campus == "" || campus == room:
		return room
	default:
		return strings.Join([]string{room, campus}, ", ")
	}
}
