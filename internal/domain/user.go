package domain

import "time"

// Role enumerates the fixed user roles driving workflow permissions.
type Role string

const (
	RoleTester    Role = "TESTER"
	RoleDeveloper Role = "DEVELOPER"
	RoleQA        Role = "QA"
	RoleAdmin     Role = "ADMIN"
)

// ValidRole reports whether the value is a member of the role set.
func ValidRole(role Role) bool {
	switch role {
	case RoleTester, RoleDeveloper, RoleQA, RoleAdmin:
		return true
	}
	return false
}

// User is the domain model for accounts acting on tickets.
type User struct {
	ID           string
	Username     string
	FullName     string
	Email        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
