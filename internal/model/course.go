package model

import (
	"database/sql/driver"
	"encoding/json"
)

// Course 课程表，对应 courses（课程管理服务维护，本服务只读）
type Course struct {
	Code        string      `gorm:"type:varchar(32);primaryKey"        json:"code"`
	Title       string      `gorm:"type:varchar(255);not null"         json:"title"`
	Description string      `gorm:"type:text;not null;default:''"      json:"description"`
	Timetable   RawSessions `gorm:"type:jsonb;not null;default:'[]'"   json:"timetable"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// RawSession 课程管理员录入的原始上课记录，格式不保证规范
type RawSession struct {
	Day        string `json:"day"`  // Mon / mon / Monday ...
	Time       string `json:"time"` // 09:00-11:00 / 9am-11am ...
	Room       string `json:"room"`
	ClassNo    string `json:"classNo,omitempty"`
	Instructor string `json:"instructor,omitempty"`
}

// RawSessions 对应 JSONB 数组
type RawSessions []RawSession

// Scan 实现 sql.Scanner
func (r *RawSessions) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	var out RawSessions
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*r = out
	return nil
}

// Value 实现 driver.Valuer
func (r RawSessions) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
