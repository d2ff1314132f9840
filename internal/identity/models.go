// Package identity holds the read model for institution members. The core
// only reads identities to mint token claims and resolve display fields;
// profile CRUD lives in the records service that owns the table.
package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is a closed enumeration. Unknown values are rejected at the parsing
// boundary instead of being passed through as raw strings.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole normalizes and validates a role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Honorific returns the display prefix used in activity descriptions.
func (r Role) Honorific() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleTeacher:
		return "Teacher"
	case RoleStudent:
		return "Student"
	default:
		return "User"
	}
}

// Status is a closed enumeration of account states.
type Status string

const (
	StatusActive    Status = "active"
	StatusBlocked   Status = "blocked"
	StatusSuspended Status = "suspended"
)

// ParseStatus normalizes and validates a status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusActive:
		return StatusActive, nil
	case StatusBlocked:
		return StatusBlocked, nil
	case StatusSuspended:
		return StatusSuspended, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// Identity is one institution member as stored by the records service.
// CredentialHash is a bcrypt hash once the member has set a password; while
// NeedToChange is true it still holds the issued default in the clear.
type Identity struct {
	ID             uuid.UUID
	ExternalID     string
	FirstName      string
	LastName       string
	Email          string
	Role           Role
	Status         Status
	CredentialHash string
	NeedToChange   bool
}

// DisplayFields is the point-in-time projection joined onto activity records
// at query time. The actor reference stays weak: only the key is stored, so
// these fields reflect the identity as it is now, not as it was.
type DisplayFields struct {
	ExternalID string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
}

// Display projects the joinable fields from an identity.
func (i Identity) Display() DisplayFields {
	return DisplayFields{
		ExternalID: i.ExternalID,
		FirstName:  i.FirstName,
		LastName:   i.LastName,
		Email:      i.Email,
		Role:       i.Role,
	}
}
