package model

// UserTimetable 个人课表，对应 user_timetables
// 每个学生一行，保存时整体替换 SessionIDs（后写覆盖）
type UserTimetable struct {
	StudentID  string      `gorm:"type:varchar(64);primaryKey"   json:"student_id"`
	SessionIDs StringArray `gorm:"type:text[];not null"          json:"session_ids"`
	BaseModel
}

// TableName 指定表名
func (UserTimetable) TableName() string { return "user_timetables" }
