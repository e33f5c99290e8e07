package dto

import (
	"time"
)

// Request DTOs

type EmergencyContactRequest struct {
	Name         string `json:"name" validate:"omitempty,min=2"`
	Phone        string `json:"phone" validate:"omitempty,min=6,max=20"`
	Relationship string `json:"relationship" validate:"omitempty"`
}

// RegisterUserRequest creates the profile of the authenticated identity.
// Doctor and patient attributes are only kept for the matching role. An
// omitted email is taken from the token.
type RegisterUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,min=2"`
	Role        string `json:"role" validate:"required,oneof=doctor patient"`
	Phone       string `json:"phone" validate:"omitempty,min=6,max=20"`

	Specialization  string `json:"specialization" validate:"required_if=Role doctor"`
	License         string `json:"license" validate:"required_if=Role doctor"`
	Experience      int    `json:"experience" validate:"omitempty,min=0,max=80"`
	ConsultationFee string `json:"consultation_fee" validate:"omitempty,numeric"`

	MedicalHistory   []string                 `json:"medical_history" validate:"omitempty,dive,required"`
	Allergies        []string                 `json:"allergies" validate:"omitempty,dive,required"`
	EmergencyContact *EmergencyContactRequest `json:"emergency_contact" validate:"omitempty"`
}

// UpdateProfileRequest carries the fields to change. Role is accepted on the
// wire only to reject it.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=2"`
	Phone       *string `json:"phone" validate:"omitempty,min=6,max=20"`
	IsActive    *bool   `json:"is_active"`
	Role        *string `json:"role"`

	Specialization  *string `json:"specialization" validate:"omitempty,min=2"`
	License         *string `json:"license" validate:"omitempty"`
	Experience      *int    `json:"experience" validate:"omitempty,min=0,max=80"`
	ConsultationFee *string `json:"consultation_fee" validate:"omitempty,numeric"`

	MedicalHistory   []string                 `json:"medical_history" validate:"omitempty,dive,required"`
	Allergies        []string                 `json:"allergies" validate:"omitempty,dive,required"`
	EmergencyContact *EmergencyContactRequest `json:"emergency_contact" validate:"omitempty"`
}

// Response DTOs

type EmergencyContactResponse struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

type DoctorProfileResponse struct {
	Specialization  string  `json:"specialization"`
	License         string  `json:"license"`
	Experience      int     `json:"experience"`
	ConsultationFee string  `json:"consultation_fee"`
	Rating          float64 `json:"rating"`
}

type PatientProfileResponse struct {
	MedicalHistory   []string                  `json:"medical_history"`
	Allergies        []string                  `json:"allergies"`
	EmergencyContact *EmergencyContactResponse `json:"emergency_contact,omitempty"`
}

type UserResponse struct {
	ID             string                  `json:"id"`
	Email          string                  `json:"email"`
	DisplayName    string                  `json:"display_name"`
	Role           string                  `json:"role"`
	Phone          string                  `json:"phone,omitempty"`
	IsActive       bool                    `json:"is_active"`
	DoctorProfile  *DoctorProfileResponse  `json:"doctor_profile,omitempty"`
	PatientProfile *PatientProfileResponse `json:"patient_profile,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
}
