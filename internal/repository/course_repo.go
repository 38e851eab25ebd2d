package repository

import (
	"context"

	"gorm.io/gorm"

	"efs-platform/backend/internal/model"
)

// CourseRepository 课程目录数据访问接口（只读）
type CourseRepository interface {
	// ListWithTimetable 返回至少包含一条上课记录的课程，按 code 升序
	ListWithTimetable(ctx context.Context) ([]model.Course, error)
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) ListWithTimetable(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("jsonb_typeof(timetable) = 'array' AND jsonb_array_length(timetable) > 0").
		Order("code ASC").
		Find(&courses).Error
	return courses, err
}
