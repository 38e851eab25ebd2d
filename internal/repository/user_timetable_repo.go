package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"efs-platform/backend/internal/model"
)

// UserTimetableRepository 个人课表数据访问接口
type UserTimetableRepository interface {
	// GetByStudentID 未保存过时返回 gorm.ErrRecordNotFound
	GetByStudentID(ctx context.Context, studentID string) (*model.UserTimetable, error)
	// Replace 整体替换学生的课表（不存在则创建），后写覆盖
	Replace(ctx context.Context, studentID string, sessionIDs []string) (*model.UserTimetable, error)
}

type userTimetableRepo struct {
	db *gorm.DB
}

// NewUserTimetableRepo 创建 UserTimetableRepository 实例
func NewUserTimetableRepo(db *gorm.DB) UserTimetableRepository {
	return &userTimetableRepo{db: db}
}

func (r *userTimetableRepo) GetByStudentID(ctx context.Context, studentID string) (*model.UserTimetable, error) {
	var tt model.UserTimetable
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&tt).Error
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *userTimetableRepo) Replace(ctx context.Context, studentID string, sessionIDs []string) (*model.UserTimetable, error) {
	now := time.Now()
	tt := model.UserTimetable{
		StudentID:  studentID,
		SessionIDs: model.StringArray(sessionIDs),
		BaseModel:  model.BaseModel{CreatedAt: now, UpdatedAt: now},
	}
	if tt.SessionIDs == nil {
		tt.SessionIDs = model.StringArray{}
	}
	// ON CONFLICT 只更新 session_ids / updated_at，保留首次创建时间
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_ids", "updated_at"}),
	}).Create(&tt).Error
	if err != nil {
		return nil, err
	}
	return &tt, nil
}
