package models

import (
	"time"

	"github.com/lib/pq"
)

// Weekday is a day-of-week value accepted on schedules.
type Weekday string

// Weekday values. The marketplace keeps the Spanish day names used
// across tenant frontends.
const (
	Lunes     Weekday = "lunes"
	Martes    Weekday = "martes"
	Miercoles Weekday = "miercoles"
	Jueves    Weekday = "jueves"
	Viernes   Weekday = "viernes"
	Sabado    Weekday = "sabado"
	Domingo   Weekday = "domingo"
)

// Valid reports whether the weekday is one of the known values.
func (w Weekday) Valid() bool {
	switch w {
	case Lunes, Martes, Miercoles, Jueves, Viernes, Sabado, Domingo:
		return true
	}
	return false
}

// Schedule is a weekly time slot belonging to one course. Times are
// zero-padded 24h "HH:MM" strings, so lexicographic comparison matches
// chronological order.
type Schedule struct {
	TenantID  string         `db:"tenant_id" json:"tenant_id"`
	CourseID  string         `db:"course_id" json:"course_id"`
	ID        string         `db:"id" json:"id"`
	Days      pq.StringArray `db:"days" json:"days"`
	StartTime string         `db:"start_time" json:"start_time"`
	EndTime   string         `db:"end_time" json:"end_time"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
