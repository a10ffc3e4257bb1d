package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edumarket/course-market-api/internal/models"
)

// PurchaseRepository handles persistence of purchase records.
//
// The (tenant_id, course_id, student_id, state) tuple carries a UNIQUE
// constraint; InsertIfAbsent relies on it as the only safe guard
// against concurrent duplicate reservations.
type PurchaseRepository struct {
	db *sqlx.DB
}

// NewPurchaseRepository constructs the repository.
func NewPurchaseRepository(db *sqlx.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

const purchaseColumns = `tenant_id, course_id, student_id, state, schedule_id, student_name, course_name, instructor_name, price, days, start_time, end_time, created_at, updated_at`

// List returns purchases matching the filter with a total count.
func (r *PurchaseRepository) List(ctx context.Context, filter models.PurchaseFilter) ([]models.Purchase, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{filter.TenantID}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM purchases%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		purchaseColumns, clause, size, offset)

	var purchases []models.Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM purchases" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}
	return purchases, total, nil
}

// ListByCourse returns every purchase of a course, unpaginated. Used
// for roster exports.
func (r *PurchaseRepository) ListByCourse(ctx context.Context, tenantID, courseID string) ([]models.Purchase, error) {
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE tenant_id = $1 AND course_id = $2 ORDER BY student_name ASC, state ASC`, purchaseColumns)
	var purchases []models.Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, tenantID, courseID); err != nil {
		return nil, fmt.Errorf("list course purchases: %w", err)
	}
	return purchases, nil
}

// FindByStudentAndCourse returns the existing records for one student
// on one course, at most one per state.
func (r *PurchaseRepository) FindByStudentAndCourse(ctx context.Context, tenantID, courseID, studentID string) ([]models.Purchase, error) {
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE tenant_id = $1 AND course_id = $2 AND student_id = $3`, purchaseColumns)
	var purchases []models.Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, tenantID, courseID, studentID); err != nil {
		return nil, fmt.Errorf("find purchases: %w", err)
	}
	return purchases, nil
}

// InsertIfAbsent performs a conditional put: the insert succeeds only
// when no record with the same key and state exists. Returns false
// when the key was already taken.
func (r *PurchaseRepository) InsertIfAbsent(ctx context.Context, purchase *models.Purchase) (bool, error) {
	now := time.Now().UTC()
	purchase.CreatedAt = now
	purchase.UpdatedAt = now
	const query = `INSERT INTO purchases (tenant_id, course_id, student_id, state, schedule_id, student_name, course_name, instructor_name, price, days, start_time, end_time, created_at, updated_at)
        VALUES (:tenant_id, :course_id, :student_id, :state, :schedule_id, :student_name, :course_name, :instructor_name, :price, :days, :start_time, :end_time, :created_at, :updated_at)
        ON CONFLICT (tenant_id, course_id, student_id, state) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, purchase)
	if err != nil {
		return false, fmt.Errorf("insert purchase: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert purchase rows: %w", err)
	}
	return affected > 0, nil
}

// Delete removes the record with the given state. Returns false when
// no such record existed.
func (r *PurchaseRepository) Delete(ctx context.Context, tenantID, courseID, studentID string, state models.PurchaseState) (bool, error) {
	const query = `DELETE FROM purchases WHERE tenant_id = $1 AND course_id = $2 AND student_id = $3 AND state = $4`
	result, err := r.db.ExecContext(ctx, query, tenantID, courseID, studentID, state)
	if err != nil {
		return false, fmt.Errorf("delete purchase: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete purchase rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteByCourse removes every purchase of a course. Used by the
// cascade worker after a course delete.
func (r *PurchaseRepository) DeleteByCourse(ctx context.Context, tenantID, courseID string) (int64, error) {
	const query = `DELETE FROM purchases WHERE tenant_id = $1 AND course_id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, courseID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete purchases: %w", err)
	}
	return result.RowsAffected()
}

// DeleteBySchedule removes purchases referencing one schedule. Used by
// the cascade worker after a schedule delete.
func (r *PurchaseRepository) DeleteBySchedule(ctx context.Context, tenantID, courseID, scheduleID string) (int64, error) {
	const query = `DELETE FROM purchases WHERE tenant_id = $1 AND course_id = $2 AND schedule_id = $3`
	result, err := r.db.ExecContext(ctx, query, tenantID, courseID, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete purchases by schedule: %w", err)
	}
	return result.RowsAffected()
}

// RefreshCourseFields rewrites the denormalized course fields on every
// purchase of a course.
func (r *PurchaseRepository) RefreshCourseFields(ctx context.Context, course *models.Course) (int64, error) {
	const query = `UPDATE purchases SET course_name = $3, instructor_name = $4, price = $5, updated_at = $6
        WHERE tenant_id = $1 AND course_id = $2`
	result, err := r.db.ExecContext(ctx, query, course.TenantID, course.ID, course.Name, course.InstructorName, course.Price, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("refresh purchase course fields: %w", err)
	}
	return result.RowsAffected()
}

// RefreshScheduleFields rewrites the denormalized schedule fields on
// every purchase referencing one schedule.
func (r *PurchaseRepository) RefreshScheduleFields(ctx context.Context, schedule *models.Schedule) (int64, error) {
	const query = `UPDATE purchases SET days = $4, start_time = $5, end_time = $6, updated_at = $7
        WHERE tenant_id = $1 AND course_id = $2 AND schedule_id = $3`
	result, err := r.db.ExecContext(ctx, query, schedule.TenantID, schedule.CourseID, schedule.ID, schedule.Days, schedule.StartTime, schedule.EndTime, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("refresh purchase schedule fields: %w", err)
	}
	return result.RowsAffected()
}
