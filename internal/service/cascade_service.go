package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edumarket/course-market-api/internal/models"
	"github.com/edumarket/course-market-api/pkg/jobs"
)

// Cascade job types.
const (
	jobCoursePurge        = "course.purge"
	jobSchedulePurge      = "schedule.purge"
	jobCourseRefresh      = "course.refresh"
	jobScheduleRefresh    = "schedule.refresh"
	jobPurchaseCompensate = "purchase.compensate"
)

type coursePurgePayload struct {
	TenantID string
	CourseID string
}

type schedulePurgePayload struct {
	TenantID   string
	CourseID   string
	ScheduleID string
}

type purchaseCompensatePayload struct {
	TenantID  string
	CourseID  string
	StudentID string
	State     models.PurchaseState
}

type scheduleCascadeRepo interface {
	DeleteByCourse(ctx context.Context, tenantID, courseID string) (int64, error)
}

type purchaseCascadeRepo interface {
	DeleteByCourse(ctx context.Context, tenantID, courseID string) (int64, error)
	DeleteBySchedule(ctx context.Context, tenantID, courseID, scheduleID string) (int64, error)
	RefreshCourseFields(ctx context.Context, course *models.Course) (int64, error)
	RefreshScheduleFields(ctx context.Context, schedule *models.Schedule) (int64, error)
	Delete(ctx context.Context, tenantID, courseID, studentID string, state models.PurchaseState) (bool, error)
}

// CascadeService propagates parent-entity changes to dependent records
// as best-effort background work. Submitting never blocks the primary
// operation; partial application is an accepted failure mode and shows
// up only in the logs.
type CascadeService struct {
	queue     *jobs.Queue
	schedules scheduleCascadeRepo
	purchases purchaseCascadeRepo
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCascadeService constructs the service and its worker queue.
func NewCascadeService(schedules scheduleCascadeRepo, purchases purchaseCascadeRepo, metrics *MetricsService, cfg jobs.QueueConfig, logger *zap.Logger) *CascadeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CascadeService{schedules: schedules, purchases: purchases, metrics: metrics, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("cascade", s.handle, cfg)
	return s
}

// Start launches the cascade workers.
func (s *CascadeService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the cascade workers.
func (s *CascadeService) Stop() {
	s.queue.Stop()
}

// CoursePurged queues removal of the schedules and purchases left
// behind by a deleted course.
func (s *CascadeService) CoursePurged(tenantID, courseID string) {
	s.submit(jobCoursePurge, coursePurgePayload{TenantID: tenantID, CourseID: courseID})
}

// SchedulePurged queues removal of purchases referencing a deleted
// schedule.
func (s *CascadeService) SchedulePurged(tenantID, courseID, scheduleID string) {
	s.submit(jobSchedulePurge, schedulePurgePayload{TenantID: tenantID, CourseID: courseID, ScheduleID: scheduleID})
}

// CourseChanged queues a refresh of the denormalized course fields on
// dependent purchases.
func (s *CascadeService) CourseChanged(course models.Course) {
	s.submit(jobCourseRefresh, course)
}

// ScheduleChanged queues a refresh of the denormalized schedule fields
// on dependent purchases.
func (s *CascadeService) ScheduleChanged(schedule models.Schedule) {
	s.submit(jobScheduleRefresh, schedule)
}

// CompensatePurchase queues removal of a superseded purchase record
// whose immediate delete failed after the replacing record was
// durably inserted.
func (s *CascadeService) CompensatePurchase(tenantID, courseID, studentID string, state models.PurchaseState) {
	s.submit(jobPurchaseCompensate, purchaseCompensatePayload{
		TenantID:  tenantID,
		CourseID:  courseID,
		StudentID: studentID,
		State:     state,
	})
}

func (s *CascadeService) submit(jobType string, payload interface{}) {
	err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: payload})
	if err != nil {
		s.logger.Sugar().Errorw("cascade submission dropped", "type", jobType, "error", err)
		return
	}
	s.metrics.RecordCascadeJob(jobType)
}

func (s *CascadeService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobCoursePurge:
		payload, ok := job.Payload.(coursePurgePayload)
		if !ok {
			return fmt.Errorf("bad payload for %s", job.Type)
		}
		schedules, err := s.schedules.DeleteByCourse(ctx, payload.TenantID, payload.CourseID)
		if err != nil {
			return err
		}
		purchases, err := s.purchases.DeleteByCourse(ctx, payload.TenantID, payload.CourseID)
		if err != nil {
			return err
		}
		s.logger.Sugar().Infow("course purge complete", "course_id", payload.CourseID, "schedules", schedules, "purchases", purchases)
		return nil
	case jobSchedulePurge:
		payload, ok := job.Payload.(schedulePurgePayload)
		if !ok {
			return fmt.Errorf("bad payload for %s", job.Type)
		}
		purchases, err := s.purchases.DeleteBySchedule(ctx, payload.TenantID, payload.CourseID, payload.ScheduleID)
		if err != nil {
			return err
		}
		s.logger.Sugar().Infow("schedule purge complete", "schedule_id", payload.ScheduleID, "purchases", purchases)
		return nil
	case jobCourseRefresh:
		course, ok := job.Payload.(models.Course)
		if !ok {
			return fmt.Errorf("bad payload for %s", job.Type)
		}
		updated, err := s.purchases.RefreshCourseFields(ctx, &course)
		if err != nil {
			return err
		}
		s.logger.Sugar().Infow("course refresh complete", "course_id", course.ID, "purchases", updated)
		return nil
	case jobScheduleRefresh:
		schedule, ok := job.Payload.(models.Schedule)
		if !ok {
			return fmt.Errorf("bad payload for %s", job.Type)
		}
		updated, err := s.purchases.RefreshScheduleFields(ctx, &schedule)
		if err != nil {
			return err
		}
		s.logger.Sugar().Infow("schedule refresh complete", "schedule_id", schedule.ID, "purchases", updated)
		return nil
	case jobPurchaseCompensate:
		payload, ok := job.Payload.(purchaseCompensatePayload)
		if !ok {
			return fmt.Errorf("bad payload for %s", job.Type)
		}
		_, err := s.purchases.Delete(ctx, payload.TenantID, payload.CourseID, payload.StudentID, payload.State)
		return err
	default:
		return fmt.Errorf("unknown cascade job type %s", job.Type)
	}
}
