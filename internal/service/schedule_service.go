package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

type scheduleRepository interface {
	ListByCourse(ctx context.Context, tenantID, courseID string) ([]models.Schedule, error)
	FindByID(ctx context.Context, tenantID, courseID, id string) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, tenantID, courseID, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Course, error)
}

type scheduleCascade interface {
	ScheduleChanged(schedule models.Schedule)
	SchedulePurged(tenantID, courseID, scheduleID string)
}

// ScheduleRequest describes schedule creation and update payloads.
type ScheduleRequest struct {
	Days      []string `json:"days" validate:"required,min=1"`
	StartTime string   `json:"start_time" validate:"required"`
	EndTime   string   `json:"end_time" validate:"required"`
}

// ScheduleService orchestrates schedule workflows, including conflict
// detection against the course's existing time slots.
type ScheduleService struct {
	repo      scheduleRepository
	courses   courseReader
	cascades  scheduleCascade
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(repo scheduleRepository, courses courseReader, cascades scheduleCascade, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, courses: courses, cascades: cascades, validator: validate, logger: logger}
}

// List returns every schedule of a course.
func (s *ScheduleService) List(ctx context.Context, identity *models.Identity, courseID string) ([]models.Schedule, error) {
	if _, err := s.loadCourse(ctx, identity, courseID); err != nil {
		return nil, err
	}
	schedules, err := s.repo.ListByCourse(ctx, identity.TenantID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, nil
}

// Get returns one schedule.
func (s *ScheduleService) Get(ctx context.Context, identity *models.Identity, courseID, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, identity.TenantID, courseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "horario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Create adds a conflict-free schedule to a course.
func (s *ScheduleService) Create(ctx context.Context, identity *models.Identity, courseID string, req ScheduleRequest) (*models.Schedule, error) {
	slot, err := s.checkedSlot(req)
	if err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, identity, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnership(identity, course); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByCourse(ctx, identity.TenantID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	if HasConflict(slot, existing, "") {
		return nil, appErrors.Clone(appErrors.ErrScheduleOverlap, "existe choque de horario en al menos un día")
	}

	schedule := &models.Schedule{
		TenantID:  identity.TenantID,
		CourseID:  courseID,
		Days:      pq.StringArray(req.Days),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return schedule, nil
}

// Update rewrites a schedule after re-running conflict detection with
// the schedule itself excluded, then queues a refresh of dependent
// purchase records.
func (s *ScheduleService) Update(ctx context.Context, identity *models.Identity, courseID, id string, req ScheduleRequest) (*models.Schedule, error) {
	slot, err := s.checkedSlot(req)
	if err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, identity, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnership(identity, course); err != nil {
		return nil, err
	}

	schedule, err := s.repo.FindByID(ctx, identity.TenantID, courseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "horario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	existing, err := s.repo.ListByCourse(ctx, identity.TenantID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	if HasConflict(slot, existing, id) {
		return nil, appErrors.Clone(appErrors.ErrScheduleOverlap, "existe choque de horario en al menos un día")
	}

	schedule.Days = pq.StringArray(req.Days)
	schedule.StartTime = req.StartTime
	schedule.EndTime = req.EndTime
	if err := s.repo.Update(ctx, schedule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "horario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}

	s.cascades.ScheduleChanged(*schedule)
	return schedule, nil
}

// Delete removes a schedule and queues cascade removal of purchases
// referencing it.
func (s *ScheduleService) Delete(ctx context.Context, identity *models.Identity, courseID, id string) error {
	course, err := s.loadCourse(ctx, identity, courseID)
	if err != nil {
		return err
	}
	if err := s.requireOwnership(identity, course); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, identity.TenantID, courseID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "horario no encontrado")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}

	s.cascades.SchedulePurged(identity.TenantID, courseID, id)
	return nil
}

func (s *ScheduleService) checkedSlot(req ScheduleRequest) (ProposedSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return ProposedSlot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	slot := ProposedSlot{Days: req.Days, StartTime: req.StartTime, EndTime: req.EndTime}
	if err := ValidateSlot(slot); err != nil {
		return ProposedSlot{}, err
	}
	return slot, nil
}

func (s *ScheduleService) loadCourse(ctx context.Context, identity *models.Identity, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, identity.TenantID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *ScheduleService) requireOwnership(identity *models.Identity, course *models.Course) error {
	if identity.Role == models.RoleAdmin {
		return nil
	}
	if course.InstructorID != identity.StudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "solo el instructor del curso puede modificar sus horarios")
	}
	return nil
}
