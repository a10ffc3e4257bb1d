package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

type mockCourseRepo struct {
	courses map[string]models.Course
	created *models.Course
	updated *models.Course
	deleted []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var list []models.Course
	for _, c := range m.courses {
		if c.TenantID == filter.TenantID {
			list = append(list, c)
		}
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok && c.TenantID == tenantID {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = *course
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.courses[course.ID] = *course
	m.updated = course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, tenantID, id string) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockCourseCascade struct {
	changed []string
	purged  []string
}

func (m *mockCourseCascade) CourseChanged(course models.Course) {
	m.changed = append(m.changed, course.ID)
}

func (m *mockCourseCascade) CoursePurged(tenantID, courseID string) {
	m.purged = append(m.purged, courseID)
}

func disabledCache() *CacheService {
	return NewCacheService(nil, nil, 0, zap.NewNop(), false)
}

func instructorIdentity() *models.Identity {
	return &models.Identity{TenantID: "utec", StudentID: "inst-1", FullName: "Carlos Prado", Role: models.RoleInstructor}
}

func TestCourseServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, disabledCache(), &mockCourseCascade{}, nil, validator.New(), zap.NewNop())

	course, err := svc.Create(context.Background(), instructorIdentity(), CreateCourseRequest{
		Name:        "Cálculo I",
		Description: "Curso introductorio",
		StartDate:   "2026-03-01",
		EndDate:     "2026-07-15",
		Price:       350,
	})
	require.NoError(t, err)
	assert.Equal(t, "utec", course.TenantID)
	assert.Equal(t, "inst-1", course.InstructorID)
	assert.Equal(t, "Carlos Prado", course.InstructorName)
	assert.NotNil(t, repo.created)
}

func TestCourseServiceCreateRejectsInvertedDates(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, disabledCache(), &mockCourseCascade{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), instructorIdentity(), CreateCourseRequest{
		Name:        "Cálculo I",
		Description: "Curso introductorio",
		StartDate:   "2026-07-15",
		EndDate:     "2026-03-01",
		Price:       350,
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, disabledCache(), &mockCourseCascade{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), instructorIdentity(), "missing")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCourseServiceUpdateQueuesRefresh(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {TenantID: "utec", ID: "c1", Name: "Cálculo I", InstructorID: "inst-1"},
	}}
	cascades := &mockCourseCascade{}
	svc := NewCourseService(repo, disabledCache(), cascades, nil, validator.New(), zap.NewNop())

	course, err := svc.Update(context.Background(), instructorIdentity(), "c1", UpdateCourseRequest{
		Name:        "Cálculo I (actualizado)",
		Description: "Nueva descripción",
		StartDate:   "2026-03-01",
		EndDate:     "2026-07-15",
		Price:       400,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cálculo I (actualizado)", course.Name)
	assert.Contains(t, cascades.changed, "c1")
}

func TestCourseServiceUpdateForbiddenForOtherInstructor(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {TenantID: "utec", ID: "c1", Name: "Cálculo I", InstructorID: "inst-2"},
	}}
	svc := NewCourseService(repo, disabledCache(), &mockCourseCascade{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), instructorIdentity(), "c1", UpdateCourseRequest{
		Name:        "Cálculo I",
		Description: "Curso introductorio",
		StartDate:   "2026-03-01",
		EndDate:     "2026-07-15",
		Price:       350,
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestCourseServiceUpdateAllowedForAdmin(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {TenantID: "utec", ID: "c1", Name: "Cálculo I", InstructorID: "inst-2"},
	}}
	svc := NewCourseService(repo, disabledCache(), &mockCourseCascade{}, nil, validator.New(), zap.NewNop())

	admin := &models.Identity{TenantID: "utec", StudentID: "adm-1", Role: models.RoleAdmin}
	_, err := svc.Update(context.Background(), admin, "c1", UpdateCourseRequest{
		Name:        "Cálculo I",
		Description: "Curso introductorio",
		StartDate:   "2026-03-01",
		EndDate:     "2026-07-15",
		Price:       350,
	})
	assert.NoError(t, err)
}

func TestCourseServiceDeleteQueuesPurge(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {TenantID: "utec", ID: "c1", Name: "Cálculo I", InstructorID: "inst-1"},
	}}
	cascades := &mockCourseCascade{}
	svc := NewCourseService(repo, disabledCache(), cascades, nil, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), instructorIdentity(), "c1")
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, "c1")
	assert.Contains(t, cascades.purged, "c1")
}

func TestCourseServiceListPagination(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {TenantID: "utec", ID: "c1", Name: "Cálculo I", InstructorID: "inst-1"},
	}}
	svc := NewCourseService(repo, disabledCache(), &mockCourseCascade{}, nil, validator.New(), zap.NewNop())

	courses, pagination, fromCache, err := svc.List(context.Background(), instructorIdentity(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.False(t, fromCache)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestCourseServiceListObservesQueryTiming(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {TenantID: "utec", ID: "c1", Name: "Cálculo I", InstructorID: "inst-1"},
	}}
	metrics := NewMetricsService()
	svc := NewCourseService(repo, disabledCache(), &mockCourseCascade{}, metrics, validator.New(), zap.NewNop())

	_, _, _, err := svc.List(context.Background(), instructorIdentity(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.dbQueryDuration, "db_query_duration_seconds"))
}
