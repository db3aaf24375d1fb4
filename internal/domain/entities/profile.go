package entities

import "time"

// ProfileStatus is the per-profile enablement flag
type ProfileStatus string

const (
	ProfileStatusEnabled  ProfileStatus = "enabled"
	ProfileStatusDisabled ProfileStatus = "disabled"
)

// PersonName holds the name fields shared by every profile
type PersonName struct {
	FirstName  string  `json:"first_name" db:"first_name"`
	MiddleName *string `json:"middle_name,omitempty" db:"middle_name"`
	LastName   string  `json:"last_name" db:"last_name"`
}

// FullName joins the name parts with single spaces
func (n PersonName) FullName() string {
	name := n.FirstName
	if n.MiddleName != nil && *n.MiddleName != "" {
		name += " " + *n.MiddleName
	}
	return name + " " + n.LastName
}

// AdminProfile is the profile row of an admin user
type AdminProfile struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	PersonName
	ContactNumber string        `json:"contact_number" db:"contact_number"`
	Status        ProfileStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// DoctorProfile is the profile row of a doctor user
type DoctorProfile struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	PersonName
	ContactNumber string        `json:"contact_number" db:"contact_number"`
	FieldID       *string       `json:"field_id,omitempty" db:"field_id"`
	FieldName     *string       `json:"specialty,omitempty" db:"field_name"`
	ValidID       *string       `json:"valid_id,omitempty" db:"valid_id"`
	Status        ProfileStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// ClientProfile is the profile row of a client user
type ClientProfile struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	PersonName
	ContactNumber string        `json:"contact_number" db:"contact_number"`
	FieldID       *string       `json:"field_id,omitempty" db:"field_id"`
	Status        ProfileStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// Field is a medical specialty a doctor can belong to
type Field struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// ProfileFields carries the editable profile data for any role
type ProfileFields struct {
	PersonName
	ContactNumber string  `json:"contact_number"`
	FieldID       *string `json:"field_id,omitempty"`
	ValidID       *string `json:"valid_id,omitempty"`
}

// DoctorSummary is the directory listing shape for a doctor
type DoctorSummary struct {
	DoctorID  string `json:"doctor_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Status    string `json:"status"`
	Email     string `json:"email"`
}

// ClientSummary is the directory listing shape for a client
type ClientSummary struct {
	ClientProfile
	Email      string     `json:"email"`
	UserStatus UserStatus `json:"user_status"`
}
