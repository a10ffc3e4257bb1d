package models

// Role represents the role carried by a verified identity.
type Role string

// Roles recognised by the marketplace.
const (
	RoleAlumno     Role = "alumno"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAlumno, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Identity is the result of delegating token verification to the
// identity provider. StudentID doubles as the instructor document
// number for instructor identities.
type Identity struct {
	TenantID  string `json:"tenant_id"`
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role"`
}
