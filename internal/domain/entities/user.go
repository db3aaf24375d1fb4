package entities

import (
	"time"
)

// Role identifies which profile a user owns and what the user may do
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
	RoleClient Role = "client"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleClient:
		return true
	}
	return false
}

// UserStatus represents the account lifecycle state
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusEnabled  UserStatus = "enabled"
	UserStatusDisabled UserStatus = "disabled"
)

// Valid reports whether s is a known status
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusEnabled, UserStatusDisabled:
		return true
	}
	return false
}

// User represents an identity in the system
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	AvatarRef    *string    `json:"profile_picture,omitempty" db:"avatar_ref"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Tabs returns the static capability list shown to a role
func (r Role) Tabs() []string {
	switch r {
	case RoleClient:
		return []string{"home", "events", "articles", "consultation", "profile"}
	case RoleDoctor:
		return []string{"home", "events", "articles", "availability", "consultation", "profile"}
	case RoleAdmin:
		return []string{"home", "events", "articles", "messages", "doctors", "clients", "profile"}
	}
	return nil
}
