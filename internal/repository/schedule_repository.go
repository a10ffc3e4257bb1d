package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edumarket/course-market-api/internal/models"
)

// ScheduleRepository handles persistence of course schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `tenant_id, course_id, id, days, start_time, end_time, created_at, updated_at`

// ListByCourse returns every schedule of a course. Conflict checking
// needs the full set, so this query is not paginated.
func (r *ScheduleRepository) ListByCourse(ctx context.Context, tenantID, courseID string) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE tenant_id = $1 AND course_id = $2 ORDER BY start_time ASC`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, tenantID, courseID); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// FindByID returns a schedule by its course-scoped identity.
func (r *ScheduleRepository) FindByID(ctx context.Context, tenantID, courseID, id string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE tenant_id = $1 AND course_id = $2 AND id = $3`, scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, tenantID, courseID, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create persists a new schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	const query = `INSERT INTO schedules (tenant_id, course_id, id, days, start_time, end_time, created_at, updated_at)
        VALUES (:tenant_id, :course_id, :id, :days, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update rewrites the days and time interval of a schedule.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET days = :days, start_time = :start_time, end_time = :end_time, updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND course_id = :course_id AND id = :id`
	result, err := r.db.NamedExecContext(ctx, query, schedule)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update schedule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes one schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, tenantID, courseID, id string) error {
	const query = `DELETE FROM schedules WHERE tenant_id = $1 AND course_id = $2 AND id = $3`
	result, err := r.db.ExecContext(ctx, query, tenantID, courseID, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByCourse removes every schedule of a course and reports how
// many were removed. Used by the cascade worker.
func (r *ScheduleRepository) DeleteByCourse(ctx context.Context, tenantID, courseID string) (int64, error) {
	const query = `DELETE FROM schedules WHERE tenant_id = $1 AND course_id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, courseID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete schedules: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cascade delete schedules rows: %w", err)
	}
	return affected, nil
}
