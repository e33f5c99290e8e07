package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role of an authenticated actor. Fixed at registration.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// ParticipantField returns the appointment/consultation field that holds an
// identity acting in this role.
func (r Role) ParticipantField() string {
	if r == RoleDoctor {
		return "doctorId"
	}
	return "patientId"
}

// Actor is the authenticated identity performing an operation
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// EmergencyContact of a patient
type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// User is a directory profile keyed by the authentication provider's uid.
// Doctor attributes are populated only for doctors, patient attributes only
// for patients.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	Phone       string    `json:"phone,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Doctor
	Specialization  string          `json:"specialization,omitempty"`
	License         string          `json:"license,omitempty"`
	Experience      int             `json:"experience,omitempty"`
	ConsultationFee decimal.Decimal `json:"consultation_fee,omitempty"`
	Rating          float64         `json:"rating,omitempty"`

	// Patient
	MedicalHistory   []string          `json:"medical_history,omitempty"`
	Allergies        []string          `json:"allergies,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergency_contact,omitempty"`
}

// IsDoctor checks if the user is a doctor
func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

// IsPatient checks if the user is a patient
func (u *User) IsPatient() bool {
	return u.Role == RolePatient
}
