package dto

import (
	"time"
)

// Request DTOs

type CreateConsultationRequest struct {
	PatientID     string     `json:"patient_id" validate:"required,identity"`
	PatientName   string     `json:"patient_name" validate:"omitempty,max=255"`
	DoctorName    string     `json:"doctor_name" validate:"omitempty,max=255"`
	AppointmentID string     `json:"appointment_id" validate:"omitempty"`
	Symptoms      string     `json:"symptoms" validate:"omitempty,max=2000"`
	Diagnosis     string     `json:"diagnosis" validate:"omitempty,max=2000"`
	Prescription  string     `json:"prescription" validate:"omitempty,max=2000"`
	Notes         string     `json:"notes" validate:"omitempty,max=5000"`
	FollowUpDate  *time.Time `json:"follow_up_date"`
	Status        string     `json:"status" validate:"omitempty,oneof=active follow-up completed cancelled"`
}

type UpdateConsultationRequest struct {
	Status       *string    `json:"status" validate:"omitempty,oneof=active follow-up completed cancelled"`
	Symptoms     *string    `json:"symptoms" validate:"omitempty,max=2000"`
	Diagnosis    *string    `json:"diagnosis" validate:"omitempty,max=2000"`
	Prescription *string    `json:"prescription" validate:"omitempty,max=2000"`
	Notes        *string    `json:"notes" validate:"omitempty,max=5000"`
	FollowUpDate *time.Time `json:"follow_up_date"`
}

type AddNoteRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// Response DTOs

type ConsultationNoteResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
}

type ConsultationResponse struct {
	ID            string                     `json:"id"`
	AppointmentID string                     `json:"appointment_id,omitempty"`
	PatientID     string                     `json:"patient_id"`
	PatientName   string                     `json:"patient_name,omitempty"`
	DoctorID      string                     `json:"doctor_id"`
	DoctorName    string                     `json:"doctor_name,omitempty"`
	Type          string                     `json:"type,omitempty"`
	Symptoms      string                     `json:"symptoms,omitempty"`
	Diagnosis     string                     `json:"diagnosis,omitempty"`
	Prescription  string                     `json:"prescription,omitempty"`
	Notes         string                     `json:"notes,omitempty"`
	FollowUpDate  *time.Time                 `json:"follow_up_date,omitempty"`
	Duration      int                        `json:"duration,omitempty"`
	Status        string                     `json:"status"`
	NoteHistory   []ConsultationNoteResponse `json:"note_history"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

type ConsultationListResponse struct {
	Consultations []ConsultationResponse `json:"consultations"`
	Total         int                    `json:"total"`
}
