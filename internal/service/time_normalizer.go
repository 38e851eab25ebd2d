package service

import (
	"fmt"
	"strconv"
	"strings"
)

// ── 时间 / 星期规范化 ──────────────────────────────────────
//
// 课程管理员录入的上课时间格式不统一，这里是唯一的解析入口。
// 接受的单个时间格式（大小写不敏感，忽略首尾空白及 am/pm 前的空白）：
//   - H:MM / HH:MM       24 小时制，0-23 时
//   - H:MMam / H:MMpm    12 小时制，1-12 时
//   - Ham / Hpm          12 小时制整点，1-12 时
// 时间段：<时间>-<时间>，连字符两侧可有空白。
// 星期：Sun..Sat 缩写或英文全称，Sunday=0。
// 其余输入一律返回 *ParseError；start >= end（含跨午夜）返回 *ValidationError。
// ─────────────────────────────────────────────────────────────

const minutesPerDay = 24 * 60

// TimeRange 一天内的半开区间 [StartMinute, EndMinute)
type TimeRange struct {
	StartMinute int
	EndMinute   int
}

// ParseError 原始字符串无法识别
type ParseError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("无法解析%s %q: %s", e.Field, e.Input, e.Reason)
}

// ValidationError 格式正确但语义无效（如结束不晚于开始）
type ValidationError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q 无效: %s", e.Field, e.Input, e.Reason)
}

var weekdayNames = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

var weekdayAbbrevs = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ParseWeekday 将星期字符串解析为 0-6（Sunday=0）
func ParseWeekday(raw string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if idx, ok := weekdayNames[key]; ok {
		return idx, nil
	}
	return 0, &ParseError{Field: "星期", Input: raw, Reason: "不是可识别的星期名称"}
}

// WeekdayAbbrev 返回星期缩写，越界返回空串
func WeekdayAbbrev(weekday int) string {
	if !validWeekday(weekday) {
		return ""
	}
	return weekdayAbbrevs[weekday]
}

func validWeekday(weekday int) bool {
	return weekday >= 0 && weekday <= 6
}

// ParseTime 将单个时间解析为当天的分钟数（0-1439）
func ParseTime(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, &ParseError{Field: "时间", Input: raw, Reason: "为空"}
	}

	marker := ""
	if strings.HasSuffix(s, "am") || strings.HasSuffix(s, "pm") {
		marker = s[len(s)-2:]
		s = strings.TrimSpace(s[:len(s)-2])
	}

	hourPart, minutePart, hasMinutes := strings.Cut(s, ":")
	hour, ok := parseDigits(hourPart, 1, 2)
	if !ok {
		return 0, &ParseError{Field: "时间", Input: raw, Reason: "小时部分无效"}
	}
	minute := 0
	if hasMinutes {
		minute, ok = parseDigits(minutePart, 2, 2)
		if !ok || minute > 59 {
			return 0, &ParseError{Field: "时间", Input: raw, Reason: "分钟部分必须为 00-59"}
		}
	}

	if marker == "" {
		// 24 小时制必须带分钟，避免 "9" 这类含义不明的输入
		if !hasMinutes {
			return 0, &ParseError{Field: "时间", Input: raw, Reason: "24 小时制需为 HH:MM"}
		}
		if hour > 23 {
			return 0, &ParseError{Field: "时间", Input: raw, Reason: "小时必须为 0-23"}
		}
		return hour*60 + minute, nil
	}

	if hour < 1 || hour > 12 {
		return 0, &ParseError{Field: "时间", Input: raw, Reason: "12 小时制小时必须为 1-12"}
	}
	// 12am → 0 点，12pm → 12 点，其余 pm +12 小时
	hour %= 12
	if marker == "pm" {
		hour += 12
	}
	return hour*60 + minute, nil
}

// ParseTimeRange 解析 "开始-结束" 时间段
func ParseTimeRange(raw string) (TimeRange, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return TimeRange{}, &ParseError{Field: "时间段", Input: raw, Reason: "必须为 开始-结束 形式"}
	}
	start, err := ParseTime(parts[0])
	if err != nil {
		return TimeRange{}, &ParseError{Field: "时间段", Input: raw, Reason: "开始时间: " + err.Error()}
	}
	end, err := ParseTime(parts[1])
	if err != nil {
		return TimeRange{}, &ParseError{Field: "时间段", Input: raw, Reason: "结束时间: " + err.Error()}
	}
	tr := TimeRange{StartMinute: start, EndMinute: end}
	if err := tr.validate(raw); err != nil {
		return TimeRange{}, err
	}
	return tr, nil
}

func (tr TimeRange) validate(raw string) error {
	if tr.StartMinute < 0 || tr.EndMinute > minutesPerDay-1 {
		return &ValidationError{Field: "时间段", Input: raw, Reason: "超出当天范围"}
	}
	if tr.StartMinute >= tr.EndMinute {
		return &ValidationError{Field: "时间段", Input: raw, Reason: "结束时间必须晚于开始时间（不支持跨午夜）"}
	}
	return nil
}

// FormatMinute 将分钟数格式化为 HH:MM
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// FormatTimeRange 格式化为 HH:MM-HH:MM，可被 ParseTimeRange 原样解析
func FormatTimeRange(tr TimeRange) string {
	return FormatMinute(tr.StartMinute) + "-" + FormatMinute(tr.EndMinute)
}

// parseDigits 仅接受 minLen-maxLen 位纯数字
func parseDigits(s string, minLen, maxLen int) (int, bool) {
	if len(s) < minLen || len(s) > maxLen {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
