package model

import "github.com/google/uuid"

// Role is fixed at signup and never self-changed afterwards.
type Role string

const (
	RoleUser     Role = "User"
	RoleEmployee Role = "Employee"
	RoleAdmin    Role = "Admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// User is an identity plus role record. The id matches the identity
// provider's principal id.
type User struct {
	Base
	Email         string  `json:"email" db:"email"`
	FullName      *string `json:"full_name,omitempty" db:"full_name"`
	Role          Role    `json:"role" db:"role"`
	PasswordHash  string  `json:"-" db:"password_hash"`
	EmailVerified bool    `json:"email_verified" db:"email_verified"`
}

// UserFilters represents user search parameters
type UserFilters struct {
	Role  Role   `json:"role" form:"role"`
	Email string `json:"email" form:"email"`
}

// EmployeeOption is the shape the admin dashboard needs for the
// assignment dropdown.
type EmployeeOption struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}
