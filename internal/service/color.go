package service

import (
	"fmt"
	"strconv"
)

// ColorValue CSS 十六进制颜色
type ColorValue string

// coursePalette 课程配色表，顺序固定，调整会改变所有课程颜色
var coursePalette = [...]ColorValue{
	"#3b82f6", // blue
	"#10b981", // emerald
	"#f59e0b", // amber
	"#ef4444", // red
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#14b8a6", // teal
	"#f97316", // orange
	"#84cc16", // lime
	"#06b6d4", // cyan
}

// OccurrenceTextColor 课表色块上的文字颜色
const OccurrenceTextColor ColorValue = "#ffffff"

// ColorFor 课程代码 → 配色，跨进程稳定
// 不同课程可能撞色，属已知限制
func ColorFor(courseCode string) ColorValue {
	return coursePalette[paletteIndex(courseCode)]
}

// BorderColorFor 边框色：配色加深 20%
func BorderColorFor(courseCode string) ColorValue {
	return darken(ColorFor(courseCode), 51)
}

// paletteIndex h = c + (h<<5) - h，int32 溢出回绕
func paletteIndex(s string) int {
	var h int32
	for i := 0; i < len(s); i++ {
		h = int32(s[i]) + (h << 5) - h
	}
	idx := int(h) % len(coursePalette)
	if idx < 0 {
		idx = -idx
	}
	return idx
}

func darken(c ColorValue, amt int) ColorValue {
	raw := string(c)
	if len(raw) != 7 || raw[0] != '#' {
		return c
	}
	rgb, err := strconv.ParseUint(raw[1:], 16, 32)
	if err != nil {
		return c
	}
	r := max(int(rgb>>16)-amt, 0)
	g := max(int(rgb>>8&0xff)-amt, 0)
	b := max(int(rgb&0xff)-amt, 0)
	return ColorValue(fmt.Sprintf("#%02x%02x%02x", r, g, b))
}
