package dto

import (
	"time"
)

// Request DTOs

// CreateAppointmentRequest books an appointment. A patient names the doctor;
// a doctor names the patient. The caller fills the other side.
type CreateAppointmentRequest struct {
	DoctorID        string    `json:"doctor_id" validate:"omitempty,identity"`
	DoctorName      string    `json:"doctor_name" validate:"omitempty,max=255"`
	PatientID       string    `json:"patient_id" validate:"omitempty,identity"`
	PatientName     string    `json:"patient_name" validate:"omitempty,max=255"`
	AppointmentDate time.Time `json:"appointment_date" validate:"required"`
	Type            string    `json:"type" validate:"required,oneof=video chat phone in-person"`
	Reason          string    `json:"reason" validate:"omitempty,max=1000"`
	Notes           string    `json:"notes" validate:"omitempty,max=2000"`
	Urgency         string    `json:"urgency" validate:"omitempty,oneof=normal urgent emergency"`
}

type UpdateAppointmentRequest struct {
	Status          *string    `json:"status" validate:"omitempty,oneof=scheduled confirmed in-progress completed cancelled"`
	AppointmentDate *time.Time `json:"appointment_date"`
	Reason          *string    `json:"reason" validate:"omitempty,max=1000"`
	Notes           *string    `json:"notes" validate:"omitempty,max=2000"`
}

// Response DTOs

type AppointmentResponse struct {
	ID              string     `json:"id"`
	PatientID       string     `json:"patient_id"`
	PatientName     string     `json:"patient_name,omitempty"`
	DoctorID        string     `json:"doctor_id"`
	DoctorName      string     `json:"doctor_name,omitempty"`
	AppointmentDate time.Time  `json:"appointment_date"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Urgency         string     `json:"urgency"`
	CreatedBy       string     `json:"created_by"`
	CallStartTime   *time.Time `json:"call_start_time,omitempty"`
	CallEndTime     *time.Time `json:"call_end_time,omitempty"`
	Duration        int        `json:"duration,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
