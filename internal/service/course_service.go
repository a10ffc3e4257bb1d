package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, tenantID, id string) error
}

type courseCascade interface {
	CourseChanged(course models.Course)
	CoursePurged(tenantID, courseID string)
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description" validate:"required"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Price       float64 `json:"price" validate:"required,gt=0"`
}

// UpdateCourseRequest describes course mutation payload.
type UpdateCourseRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description" validate:"required"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Price       float64 `json:"price" validate:"required,gt=0"`
}

// CourseService orchestrates course workflows.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	cascades  courseCascade
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, cascades courseCascade, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, cascades: cascades, metrics: metrics, validator: validate, logger: logger}
}

type cachedCourseList struct {
	Courses    []models.Course    `json:"courses"`
	Pagination *models.Pagination `json:"pagination"`
}

// List returns courses with pagination metadata. The boolean result
// reports whether the response was served from cache.
func (s *CourseService) List(ctx context.Context, identity *models.Identity, filter models.CourseFilter) ([]models.Course, *models.Pagination, bool, error) {
	filter.TenantID = identity.TenantID

	key := courseListCacheKey(filter)
	if s.cache.Enabled() {
		var cached cachedCourseList
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached.Courses, cached.Pagination, true, nil
		}
	}

	start := time.Now()
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	s.metrics.ObserveDBQuery("course_list", time.Since(start))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, cachedCourseList{Courses: courses, Pagination: pagination}, 0)
	}
	return courses, pagination, false, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, identity *models.Identity, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course owned by the calling instructor.
func (s *CourseService) Create(ctx context.Context, identity *models.Identity, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.StartDate >= req.EndDate {
		return nil, appErrors.Clone(appErrors.ErrValidation, "la fecha de inicio debe ser anterior a la de fin")
	}

	course := &models.Course{
		TenantID:       identity.TenantID,
		Name:           req.Name,
		Description:    req.Description,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Price:          req.Price,
		InstructorID:   identity.StudentID,
		InstructorName: identity.FullName,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateListings(ctx, identity.TenantID)
	return course, nil
}

// Update mutates a course owned by the caller (or any course for an
// admin) and schedules a denormalized-field refresh on purchases.
func (s *CourseService) Update(ctx context.Context, identity *models.Identity, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.StartDate >= req.EndDate {
		return nil, appErrors.Clone(appErrors.ErrValidation, "la fecha de inicio debe ser anterior a la de fin")
	}

	course, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if identity.Role != models.RoleAdmin && course.InstructorID != identity.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "solo el instructor del curso puede modificarlo")
	}

	course.Name = req.Name
	course.Description = req.Description
	course.StartDate = req.StartDate
	course.EndDate = req.EndDate
	course.Price = req.Price

	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.cascades.CourseChanged(*course)
	s.invalidateListings(ctx, identity.TenantID)
	return course, nil
}

// Delete removes a course and schedules cascade removal of its
// schedules and purchases. The cascade is best-effort: the course is
// gone once this returns, dependents follow eventually.
func (s *CourseService) Delete(ctx context.Context, identity *models.Identity, id string) error {
	course, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "curso no encontrado")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if identity.Role != models.RoleAdmin && course.InstructorID != identity.StudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "solo el instructor del curso puede eliminarlo")
	}

	if err := s.repo.Delete(ctx, identity.TenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "curso no encontrado")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.cascades.CoursePurged(identity.TenantID, id)
	s.invalidateListings(ctx, identity.TenantID)
	return nil
}

func (s *CourseService) invalidateListings(ctx context.Context, tenantID string) {
	if err := s.cache.Invalidate(ctx, "courses:"+tenantID+":*"); err != nil {
		s.logger.Sugar().Warnw("course cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}

func courseListCacheKey(filter models.CourseFilter) string {
	return fmt.Sprintf("courses:%s:%s:%s:%d:%d:%s:%s",
		filter.TenantID, filter.InstructorID, filter.Search, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}
