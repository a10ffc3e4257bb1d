package models

import (
	"time"

	"github.com/lib/pq"
)

// PurchaseState is the enrollment state of a purchase record.
type PurchaseState string

// Purchase states. A student holds at most one record per state per
// course; enrolling supersedes an existing reservation.
const (
	StateReservado PurchaseState = "reservado"
	StateInscrito  PurchaseState = "inscrito"
)

// Valid reports whether the state is one of the known values.
func (s PurchaseState) Valid() bool {
	return s == StateReservado || s == StateInscrito
}

// Purchase records a student's reservation or enrollment for a course.
// Course and schedule display fields are denormalized at write time and
// refreshed by cascade updates when the source entities change.
type Purchase struct {
	TenantID       string         `db:"tenant_id" json:"tenant_id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	State          PurchaseState  `db:"state" json:"state"`
	ScheduleID     string         `db:"schedule_id" json:"schedule_id"`
	StudentName    string         `db:"student_name" json:"student_name"`
	CourseName     string         `db:"course_name" json:"course_name"`
	InstructorName string         `db:"instructor_name" json:"instructor_name"`
	Price          float64        `db:"price" json:"price"`
	Days           pq.StringArray `db:"days" json:"days"`
	StartTime      string         `db:"start_time" json:"start_time"`
	EndTime        string         `db:"end_time" json:"end_time"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// PurchaseFilter describes query params for listing purchases.
type PurchaseFilter struct {
	TenantID  string
	CourseID  string
	StudentID string
	State     PurchaseState
	Page      int
	PageSize  int
}
