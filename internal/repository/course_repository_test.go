package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarket/course-market-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"tenant_id", "id", "name", "description", "start_date", "end_date", "price", "instructor_id", "instructor_name", "created_at", "updated_at"}).
		AddRow("utec", "c1", "Redes", "Redes y comunicaciones", "2026-03-01", "2026-07-15", 350.0, "40298311", "Jorge Prado", time.Now(), time.Now())
}

func TestCourseRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT tenant_id, id, name, .+ FROM courses WHERE tenant_id = \\$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("utec").
		WillReturnRows(courseRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE tenant_id = $1")).
		WithArgs("utec").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.CourseFilter{TenantID: "utec"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByInstructorWithSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT tenant_id, id, name, .+ FROM courses WHERE tenant_id = \\$1 AND instructor_id = \\$2 AND name ILIKE \\$3").
		WithArgs("utec", "40298311", "%redes%").
		WillReturnRows(courseRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM courses WHERE tenant_id = \\$1 AND instructor_id = \\$2 AND name ILIKE \\$3").
		WithArgs("utec", "40298311", "%redes%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.CourseFilter{TenantID: "utec", InstructorID: "40298311", Search: "redes"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs("utec", sqlmock.AnyArg(), "Redes", "Redes y comunicaciones", "2026-03-01", "2026-07-15", 350.0, "40298311", "Jorge Prado", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{
		TenantID:       "utec",
		Name:           "Redes",
		Description:    "Redes y comunicaciones",
		StartDate:      "2026-03-01",
		EndDate:        "2026-07-15",
		Price:          350.0,
		InstructorID:   "40298311",
		InstructorName: "Jorge Prado",
	}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Course{TenantID: "utec", ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE tenant_id = $1 AND id = $2")).
		WithArgs("utec", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "utec", "c1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE tenant_id = $1 AND id = $2")).
		WithArgs("utec", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "utec", "missing"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
