package entity

import "time"

// AuditLog represents a system audit trail entry
type AuditLog struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	EntityName string    `json:"entity"`
	EntityID   string    `json:"entity_id"`
	OldValue   JSON      `json:"old_value,omitempty"`
	NewValue   JSON      `json:"new_value,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Common audit actions
const (
	AuditActionUserRegister        = "user.register"
	AuditActionProfileUpdate       = "profile.update"
	AuditActionAppointmentCreate   = "appointment.create"
	AuditActionAppointmentStatus   = "appointment.status"
	AuditActionConsultationCreate  = "consultation.create"
	AuditActionConsultationStatus  = "consultation.status"
	AuditActionConsultationAddNote = "consultation.note"
	AuditActionVideoCallStart      = "video_call.start"
	AuditActionVideoCallEnd        = "video_call.end"
)
