package models

import "time"

// Course is a purchasable course offered by an instructor within a tenant.
type Course struct {
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	StartDate      string    `db:"start_date" json:"start_date"`
	EndDate        string    `db:"end_date" json:"end_date"`
	Price          float64   `db:"price" json:"price"`
	InstructorID   string    `db:"instructor_id" json:"instructor_id"`
	InstructorName string    `db:"instructor_name" json:"instructor_name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter describes query params for listing courses.
type CourseFilter struct {
	TenantID     string
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
