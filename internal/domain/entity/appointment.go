package entity

import "time"

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in-progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
)

// AppointmentType is how the appointment takes place
type AppointmentType string

const (
	AppointmentTypeVideo    AppointmentType = "video"
	AppointmentTypeChat     AppointmentType = "chat"
	AppointmentTypePhone    AppointmentType = "phone"
	AppointmentTypeInPerson AppointmentType = "in-person"
)

// Urgency of an appointment request
type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusScheduled:  {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed:  {AppointmentStatusInProgress, AppointmentStatusCompleted, AppointmentStatusCancelled},
	AppointmentStatusInProgress: {AppointmentStatusCompleted},
}

// Valid reports whether s is a known status
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed. Writing
// the current status again is not a transition.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if !next.Valid() {
		return false
	}
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether t is a known appointment type
func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentTypeVideo, AppointmentTypeChat, AppointmentTypePhone, AppointmentTypeInPerson:
		return true
	}
	return false
}

// Valid reports whether u is a known urgency
func (u Urgency) Valid() bool {
	return u == UrgencyNormal || u == UrgencyUrgent || u == UrgencyEmergency
}

// Appointment between a patient and a doctor
type Appointment struct {
	ID              string            `json:"id"`
	PatientID       string            `json:"patient_id"`
	PatientName     string            `json:"patient_name,omitempty"`
	DoctorID        string            `json:"doctor_id"`
	DoctorName      string            `json:"doctor_name,omitempty"`
	AppointmentDate time.Time         `json:"appointment_date"`
	Type            AppointmentType   `json:"type"`
	Status          AppointmentStatus `json:"status"`
	Reason          string            `json:"reason,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Urgency         Urgency           `json:"urgency"`
	CreatedBy       string            `json:"created_by"`
	CallStartTime   *time.Time        `json:"call_start_time,omitempty"`
	CallEndTime     *time.Time        `json:"call_end_time,omitempty"`
	Duration        int               `json:"duration,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// HasParticipant reports whether identity is the patient or doctor
func (a *Appointment) HasParticipant(identity string) bool {
	return identity != "" && (a.PatientID == identity || a.DoctorID == identity)
}

// IsConfirmed checks if appointment is confirmed
func (a *Appointment) IsConfirmed() bool {
	return a.Status == AppointmentStatusConfirmed
}

// IsVideo checks if appointment takes place over a video call
func (a *Appointment) IsVideo() bool {
	return a.Type == AppointmentTypeVideo
}
