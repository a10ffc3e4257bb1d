package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

type purchaseRepository interface {
	List(ctx context.Context, filter models.PurchaseFilter) ([]models.Purchase, int, error)
	FindByStudentAndCourse(ctx context.Context, tenantID, courseID, studentID string) ([]models.Purchase, error)
	InsertIfAbsent(ctx context.Context, purchase *models.Purchase) (bool, error)
	Delete(ctx context.Context, tenantID, courseID, studentID string, state models.PurchaseState) (bool, error)
}

type scheduleReader interface {
	FindByID(ctx context.Context, tenantID, courseID, id string) (*models.Schedule, error)
}

type purchaseCompensator interface {
	CompensatePurchase(tenantID, courseID, studentID string, state models.PurchaseState)
}

// CreatePurchaseRequest describes a reserve or enroll request.
type CreatePurchaseRequest struct {
	CourseID   string `json:"course_id" validate:"required"`
	ScheduleID string `json:"schedule_id" validate:"required"`
	State      string `json:"state" validate:"required,oneof=reservado inscrito"`
}

// PurchaseService orchestrates reservation and enrollment workflows.
//
// Correctness under concurrent requests rests on the repository's
// conditional insert, never on the preceding read: two simultaneous
// reserves may both see no records, but only one insert wins.
type PurchaseService struct {
	repo       purchaseRepository
	courses    courseReader
	schedules  scheduleReader
	compensate purchaseCompensator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPurchaseService constructs PurchaseService.
func NewPurchaseService(repo purchaseRepository, courses courseReader, schedules scheduleReader, compensate purchaseCompensator, validate *validator.Validate, logger *zap.Logger) *PurchaseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseService{repo: repo, courses: courses, schedules: schedules, compensate: compensate, validator: validate, logger: logger}
}

// Create applies the purchase state machine for the calling student.
func (s *PurchaseService) Create(ctx context.Context, identity *models.Identity, req CreatePurchaseRequest) (*models.Purchase, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid purchase payload")
	}
	requested := models.PurchaseState(req.State)

	course, err := s.courses.FindByID(ctx, identity.TenantID, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	schedule, err := s.schedules.FindByID(ctx, identity.TenantID, req.CourseID, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "horario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	existing, err := s.repo.FindByStudentAndCourse(ctx, identity.TenantID, req.CourseID, identity.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load purchases")
	}
	decision, err := DecideTransition(existing, requested)
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		TenantID:       identity.TenantID,
		CourseID:       req.CourseID,
		StudentID:      identity.StudentID,
		State:          requested,
		ScheduleID:     schedule.ID,
		StudentName:    identity.FullName,
		CourseName:     course.Name,
		InstructorName: course.InstructorName,
		Price:          course.Price,
		Days:           schedule.Days,
		StartTime:      schedule.StartTime,
		EndTime:        schedule.EndTime,
	}

	inserted, err := s.repo.InsertIfAbsent(ctx, purchase)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create purchase")
	}
	if !inserted {
		// Lost a race against a concurrent identical request.
		if requested == models.StateInscrito {
			return nil, appErrors.ErrAlreadyEnrolled
		}
		return nil, appErrors.ErrAlreadyReserved
	}

	if decision.DeleteState != "" {
		// The new record is durable; removing the superseded one may
		// fail without losing the student's enrollment. Hand failures
		// to the compensation queue.
		if _, err := s.repo.Delete(ctx, identity.TenantID, req.CourseID, identity.StudentID, decision.DeleteState); err != nil {
			s.logger.Sugar().Warnw("superseded purchase delete failed, queueing compensation",
				"course_id", req.CourseID, "student_id", identity.StudentID, "state", decision.DeleteState, "error", err)
			s.compensate.CompensatePurchase(identity.TenantID, req.CourseID, identity.StudentID, decision.DeleteState)
		}
	}

	return purchase, nil
}

// List returns purchases according to the caller's role: students see
// their own records for one state, instructors and admins see the
// records of one of their courses.
func (s *PurchaseService) List(ctx context.Context, identity *models.Identity, filter models.PurchaseFilter) ([]models.Purchase, *models.Pagination, error) {
	filter.TenantID = identity.TenantID

	switch identity.Role {
	case models.RoleAlumno:
		filter.StudentID = identity.StudentID
		if filter.State != "" && !filter.State.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "estado inválido")
		}
	case models.RoleInstructor, models.RoleAdmin:
		if filter.CourseID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "se requiere course_id")
		}
	}

	purchases, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list purchases")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return purchases, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Unenroll removes the calling student's purchase on a course,
// preferring the inscrito record when both states are present.
func (s *PurchaseService) Unenroll(ctx context.Context, identity *models.Identity, courseID string) (models.PurchaseState, error) {
	existing, err := s.repo.FindByStudentAndCourse(ctx, identity.TenantID, courseID, identity.StudentID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load purchases")
	}

	state := StateToRemove(existing)
	if state == "" {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no se encontró ninguna compra activa para este curso")
	}

	deleted, err := s.repo.Delete(ctx, identity.TenantID, courseID, identity.StudentID, state)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete purchase")
	}
	if !deleted {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no se encontró ninguna compra activa para este curso")
	}
	return state, nil
}
