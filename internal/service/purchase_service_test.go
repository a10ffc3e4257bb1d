package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

type mockPurchaseRepo struct {
	purchases    map[string]models.Purchase
	insertDenied bool
	deleteErr    error
	deleted      []models.PurchaseState
}

func purchaseKey(p models.Purchase) string {
	return p.TenantID + "/" + p.CourseID + "/" + p.StudentID + "/" + string(p.State)
}

func (m *mockPurchaseRepo) List(ctx context.Context, filter models.PurchaseFilter) ([]models.Purchase, int, error) {
	var list []models.Purchase
	for _, p := range m.purchases {
		if p.TenantID != filter.TenantID {
			continue
		}
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && p.CourseID != filter.CourseID {
			continue
		}
		if filter.State != "" && p.State != filter.State {
			continue
		}
		list = append(list, p)
	}
	return list, len(list), nil
}

func (m *mockPurchaseRepo) FindByStudentAndCourse(ctx context.Context, tenantID, courseID, studentID string) ([]models.Purchase, error) {
	var list []models.Purchase
	for _, p := range m.purchases {
		if p.TenantID == tenantID && p.CourseID == courseID && p.StudentID == studentID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *mockPurchaseRepo) InsertIfAbsent(ctx context.Context, purchase *models.Purchase) (bool, error) {
	if m.insertDenied {
		return false, nil
	}
	if m.purchases == nil {
		m.purchases = make(map[string]models.Purchase)
	}
	key := purchaseKey(*purchase)
	if _, ok := m.purchases[key]; ok {
		return false, nil
	}
	m.purchases[key] = *purchase
	return true, nil
}

func (m *mockPurchaseRepo) Delete(ctx context.Context, tenantID, courseID, studentID string, state models.PurchaseState) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	key := tenantID + "/" + courseID + "/" + studentID + "/" + string(state)
	if _, ok := m.purchases[key]; !ok {
		return false, nil
	}
	delete(m.purchases, key)
	m.deleted = append(m.deleted, state)
	return true, nil
}

type mockScheduleReader struct {
	schedules map[string]models.Schedule
}

func (m *mockScheduleReader) FindByID(ctx context.Context, tenantID, courseID, id string) (*models.Schedule, error) {
	if s, ok := m.schedules[id]; ok && s.TenantID == tenantID && s.CourseID == courseID {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCompensator struct {
	queued []models.PurchaseState
}

func (m *mockCompensator) CompensatePurchase(tenantID, courseID, studentID string, state models.PurchaseState) {
	m.queued = append(m.queued, state)
}

func studentIdentity() *models.Identity {
	return &models.Identity{TenantID: "utec", StudentID: "74829301", FullName: "Maria Lopez", Role: models.RoleAlumno}
}

func purchaseFixtures() (*mockCourseReader, *mockScheduleReader) {
	courses := &mockCourseReader{courses: map[string]models.Course{
		"c1": {TenantID: "utec", ID: "c1", Name: "Cálculo I", InstructorID: "inst-1", InstructorName: "Carlos Prado", Price: 350},
	}}
	schedules := &mockScheduleReader{schedules: map[string]models.Schedule{
		"h1": {TenantID: "utec", CourseID: "c1", ID: "h1", Days: []string{"lunes", "miercoles"}, StartTime: "09:00", EndTime: "10:00"},
	}}
	return courses, schedules
}

func newPurchaseService(repo *mockPurchaseRepo, compensate *mockCompensator) *PurchaseService {
	courses, schedules := purchaseFixtures()
	return NewPurchaseService(repo, courses, schedules, compensate, validator.New(), zap.NewNop())
}

func TestPurchaseServiceReserve(t *testing.T) {
	repo := &mockPurchaseRepo{}
	svc := newPurchaseService(repo, &mockCompensator{})

	purchase, err := svc.Create(context.Background(), studentIdentity(), CreatePurchaseRequest{
		CourseID: "c1", ScheduleID: "h1", State: "reservado",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateReservado, purchase.State)
	assert.Equal(t, "Cálculo I", purchase.CourseName)
	assert.Equal(t, "Maria Lopez", purchase.StudentName)
	assert.Equal(t, 350.0, purchase.Price)
	assert.Equal(t, "09:00", purchase.StartTime)
	assert.Len(t, repo.purchases, 1)
}

func TestPurchaseServiceReserveTwice(t *testing.T) {
	repo := &mockPurchaseRepo{}
	svc := newPurchaseService(repo, &mockCompensator{})
	identity := studentIdentity()
	req := CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "reservado"}

	_, err := svc.Create(context.Background(), identity, req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), identity, req)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyReserved)
}

func TestPurchaseServiceReserveThenEnroll(t *testing.T) {
	repo := &mockPurchaseRepo{}
	svc := newPurchaseService(repo, &mockCompensator{})
	identity := studentIdentity()

	_, err := svc.Create(context.Background(), identity, CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "reservado"})
	require.NoError(t, err)

	purchase, err := svc.Create(context.Background(), identity, CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "inscrito"})
	require.NoError(t, err)
	assert.Equal(t, models.StateInscrito, purchase.State)

	// The reservation is gone; only the enrollment remains.
	remaining, err := repo.FindByStudentAndCourse(context.Background(), "utec", "c1", identity.StudentID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, models.StateInscrito, remaining[0].State)
	assert.Contains(t, repo.deleted, models.StateReservado)
}

func TestPurchaseServiceEnrolledBlocksFurtherRequests(t *testing.T) {
	repo := &mockPurchaseRepo{}
	svc := newPurchaseService(repo, &mockCompensator{})
	identity := studentIdentity()

	_, err := svc.Create(context.Background(), identity, CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "inscrito"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), identity, CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "reservado"})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)

	_, err = svc.Create(context.Background(), identity, CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "inscrito"})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
}

func TestPurchaseServiceLostInsertRace(t *testing.T) {
	// The conditional insert reports no row written when a concurrent
	// identical request got there first.
	repo := &mockPurchaseRepo{insertDenied: true}
	svc := newPurchaseService(repo, &mockCompensator{})

	_, err := svc.Create(context.Background(), studentIdentity(), CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "reservado"})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyReserved)

	_, err = svc.Create(context.Background(), studentIdentity(), CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "inscrito"})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
}

func TestPurchaseServiceCompensatesFailedSupersededDelete(t *testing.T) {
	identity := studentIdentity()
	repo := &mockPurchaseRepo{
		purchases: map[string]models.Purchase{},
		deleteErr: errors.New("connection reset"),
	}
	existing := models.Purchase{TenantID: "utec", CourseID: "c1", StudentID: identity.StudentID, State: models.StateReservado}
	repo.purchases[purchaseKey(existing)] = existing

	compensate := &mockCompensator{}
	svc := newPurchaseService(repo, compensate)

	purchase, err := svc.Create(context.Background(), identity, CreatePurchaseRequest{CourseID: "c1", ScheduleID: "h1", State: "inscrito"})
	require.NoError(t, err)
	assert.Equal(t, models.StateInscrito, purchase.State)
	assert.Contains(t, compensate.queued, models.StateReservado)
}

func TestPurchaseServiceCreateScheduleNotFound(t *testing.T) {
	svc := newPurchaseService(&mockPurchaseRepo{}, &mockCompensator{})

	_, err := svc.Create(context.Background(), studentIdentity(), CreatePurchaseRequest{CourseID: "c1", ScheduleID: "missing", State: "reservado"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPurchaseServiceListStudentScope(t *testing.T) {
	identity := studentIdentity()
	repo := &mockPurchaseRepo{purchases: map[string]models.Purchase{}}
	own := models.Purchase{TenantID: "utec", CourseID: "c1", StudentID: identity.StudentID, State: models.StateReservado}
	other := models.Purchase{TenantID: "utec", CourseID: "c1", StudentID: "99999999", State: models.StateInscrito}
	repo.purchases[purchaseKey(own)] = own
	repo.purchases[purchaseKey(other)] = other

	svc := newPurchaseService(repo, &mockCompensator{})

	purchases, pagination, err := svc.List(context.Background(), identity, models.PurchaseFilter{State: models.StateReservado})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, identity.StudentID, purchases[0].StudentID)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestPurchaseServiceListInstructorRequiresCourse(t *testing.T) {
	svc := newPurchaseService(&mockPurchaseRepo{}, &mockCompensator{})

	_, _, err := svc.List(context.Background(), instructorIdentity(), models.PurchaseFilter{})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPurchaseServiceUnenrollPrefersEnrolled(t *testing.T) {
	identity := studentIdentity()
	repo := &mockPurchaseRepo{purchases: map[string]models.Purchase{}}
	reserved := models.Purchase{TenantID: "utec", CourseID: "c1", StudentID: identity.StudentID, State: models.StateReservado}
	enrolled := models.Purchase{TenantID: "utec", CourseID: "c1", StudentID: identity.StudentID, State: models.StateInscrito}
	repo.purchases[purchaseKey(reserved)] = reserved
	repo.purchases[purchaseKey(enrolled)] = enrolled

	svc := newPurchaseService(repo, &mockCompensator{})

	state, err := svc.Unenroll(context.Background(), identity, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StateInscrito, state)
	assert.Contains(t, repo.deleted, models.StateInscrito)
}

func TestPurchaseServiceUnenrollNothingActive(t *testing.T) {
	svc := newPurchaseService(&mockPurchaseRepo{}, &mockCompensator{})

	_, err := svc.Unenroll(context.Background(), studentIdentity(), "c1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
