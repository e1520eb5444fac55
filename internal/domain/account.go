package domain

import "time"

// Role enumerates account roles within a department.
type Role string

const (
	// RoleHead is the department administrator who triages tickets.
	RoleHead Role = "Head"
	// RoleUser is a regular requester.
	RoleUser Role = "User"
)

// Account is the domain model for anyone who can log in: requesters
// and department heads share one record type, distinguished by Role.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	Department   string
	CreatedAt    time.Time
}

// IsHead reports whether the account holds the Head role.
func (a *Account) IsHead() bool {
	return a != nil && a.Role == RoleHead
}
