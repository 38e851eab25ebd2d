package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"efs-platform/backend/internal/model"
)

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses []model.Course
	err     error
	calls   int
}

func (m *mockCourseRepo) ListWithTimetable(_ context.Context) ([]model.Course, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.courses, nil
}

// ── Mock UserTimetableRepository ──

type mockUserTimetableRepo struct {
	mu         sync.Mutex
	rows       map[string]*model.UserTimetable
	getErr     error
	replaceErr error
	replaces   int
	// hang 为 true 时阻塞直到 ctx 超时，模拟存储无响应
	hang bool
}

func newMockUserTimetableRepo() *mockUserTimetableRepo {
	return &mockUserTimetableRepo{rows: make(map[string]*model.UserTimetable)}
}

func (m *mockUserTimetableRepo) GetByStudentID(ctx context.Context, studentID string) (*model.UserTimetable, error) {
	if m.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	tt, ok := m.rows[studentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *tt
	cp.SessionIDs = append(model.StringArray{}, tt.SessionIDs...)
	return &cp, nil
}

func (m *mockUserTimetableRepo) Replace(ctx context.Context, studentID string, sessionIDs []string) (*model.UserTimetable, error) {
	if m.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return nil, m.replaceErr
	}
	m.replaces++
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	tt := &model.UserTimetable{
		StudentID:  studentID,
		SessionIDs: append(model.StringArray{}, sessionIDs...),
		BaseModel:  model.BaseModel{CreatedAt: now, UpdatedAt: now},
	}
	if prev, ok := m.rows[studentID]; ok {
		tt.CreatedAt = prev.CreatedAt
	}
	m.rows[studentID] = tt
	cp := *tt
	return &cp, nil
}

// ── Mock CatalogCache ──

type mockCatalogCache struct {
	payload     []byte
	getErr      error
	sets        int
	invalidated int
}

func (m *mockCatalogCache) GetCatalog(_ context.Context) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	if m.payload == nil {
		return nil, false, nil
	}
	return m.payload, true, nil
}

func (m *mockCatalogCache) SetCatalog(_ context.Context, payload []byte, _ time.Duration) error {
	m.sets++
	m.payload = payload
	return nil
}

func (m *mockCatalogCache) InvalidateCatalog(_ context.Context) error {
	m.invalidated++
	m.payload = nil
	return nil
}
