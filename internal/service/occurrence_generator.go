package service

import "time"

// ── 周期展开 ────────────────────────────────────────────────
//
// 把每周重复的 Session 展开为窗口内带日期的 Occurrence。
// 窗口总是对齐到 <= windowStart 的最近一个周一 00:00（按 windowStart 的时区）。
// 星期索引 Sunday=0，在以周一开始的周内偏移为 (weekday+6)%7。
// 纯函数：相同的 (sessions, windowStart, weeks) 总是得到相同结果。
// ─────────────────────────────────────────────────────────────

// Occurrence 一次具体日期的上课
type Occurrence struct {
	SessionID       string
	OccurrenceIndex int // 第几周，从 0 开始
	Start           time.Time
	End             time.Time
}

// WeekStart 返回 t 所在周的周一 00:00
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	offset := weekOffset(int(t.Weekday()))
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// weekOffset Sunday=0 的星期在周一开头的周内的第几天
func weekOffset(weekday int) int {
	return (weekday + 6) % 7
}

// GenerateOccurrences 展开 weeks 周，按周、再按入参顺序排列
func GenerateOccurrences(sessions []Session, windowStart time.Time, weeks int) []Occurrence {
	if weeks <= 0 || len(sessions) == 0 {
		return []Occurrence{}
	}

	base := WeekStart(windowStart)
	y, m, d := base.Date()
	loc := base.Location()

	out := make([]Occurrence, 0, weeks*len(sessions))
	for week := 0; week < weeks; week++ {
		for _, s := range sessions {
			if !validWeekday(s.Weekday) {
				continue
			}
			day := d + week*7 + weekOffset(s.Weekday)
			// 用 time.Date 逐字段构造，夏令时切换当天也保持墙上时间
			out = append(out, Occurrence{
				SessionID:       s.ID,
				OccurrenceIndex: week,
				Start:           time.Date(y, m, day, s.StartMinute/60, s.StartMinute%60, 0, 0, loc),
				End:             time.Date(y, m, day, s.EndMinute/60, s.EndMinute%60, 0, 0, loc),
			})
		}
	}
	return out
}

// GenerateOccurrencesBetween 截断窗口：只保留 from <= Start < to 的 Occurrence
func GenerateOccurrencesBetween(sessions []Session, from, to time.Time) []Occurrence {
	if !from.Before(to) {
		return []Occurrence{}
	}
	first := WeekStart(from)
	weeks := 0
	for cursor := first; cursor.Before(to); weeks++ {
		y, m, d := cursor.Date()
		cursor = time.Date(y, m, d+7, 0, 0, 0, 0, cursor.Location())
	}

	all := GenerateOccurrences(sessions, first, weeks)
	out := make([]Occurrence, 0, len(all))
	for _, o := range all {
		if !o.Start.Before(from) && o.Start.Before(to) {
			out = append(out, o)
		}
	}
	return out
}
