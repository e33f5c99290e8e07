package entity

import "time"

// ConsultationStatus represents the status of a consultation record
type ConsultationStatus string

const (
	ConsultationStatusActive    ConsultationStatus = "active"
	ConsultationStatusFollowUp  ConsultationStatus = "follow-up"
	ConsultationStatusCompleted ConsultationStatus = "completed"
	ConsultationStatusCancelled ConsultationStatus = "cancelled"
)

// ConsultationTypeVideoCall marks consultations synthesized when a call ends
const ConsultationTypeVideoCall = "video_call"

var consultationTransitions = map[ConsultationStatus][]ConsultationStatus{
	ConsultationStatusActive:   {ConsultationStatusFollowUp, ConsultationStatusCompleted, ConsultationStatusCancelled},
	ConsultationStatusFollowUp: {ConsultationStatusActive, ConsultationStatusCompleted, ConsultationStatusCancelled},
}

// Valid reports whether s is a known status
func (s ConsultationStatus) Valid() bool {
	switch s {
	case ConsultationStatusActive, ConsultationStatusFollowUp, ConsultationStatusCompleted, ConsultationStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed. Writing
// the current status again is not a transition.
func (s ConsultationStatus) CanTransitionTo(next ConsultationStatus) bool {
	if !next.Valid() {
		return false
	}
	for _, allowed := range consultationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ConsultationNote is an append-only timestamped note
type ConsultationNote struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Consultation is the doctor's record of an encounter. Notes is free text;
// NoteHistory is the append-only list of timestamped notes.
type Consultation struct {
	ID            string             `json:"id"`
	AppointmentID string             `json:"appointment_id,omitempty"`
	PatientID     string             `json:"patient_id"`
	PatientName   string             `json:"patient_name,omitempty"`
	DoctorID      string             `json:"doctor_id"`
	DoctorName    string             `json:"doctor_name,omitempty"`
	Type          string             `json:"type,omitempty"`
	Symptoms      string             `json:"symptoms,omitempty"`
	Diagnosis     string             `json:"diagnosis,omitempty"`
	Prescription  string             `json:"prescription,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	FollowUpDate  *time.Time         `json:"follow_up_date,omitempty"`
	Duration      int                `json:"duration,omitempty"`
	Status        ConsultationStatus `json:"status"`
	NoteHistory   []ConsultationNote `json:"note_history"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// CallConsultationID derives the id of the consultation recorded when the
// video call of appointmentID ends, so a call never yields two.
func CallConsultationID(appointmentID string) string {
	return "call_" + appointmentID
}
