package dto

import (
	"time"

	"telemed-backend/internal/domain/entity"
)

// Response DTOs

type AuditLogResponse struct {
	ID        string      `json:"id"`
	ActorID   string      `json:"actor_id"`
	Action    string      `json:"action"`
	Entity    string      `json:"entity"`
	EntityID  string      `json:"entity_id"`
	OldValue  entity.JSON `json:"old_value,omitempty"`
	NewValue  entity.JSON `json:"new_value,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int                `json:"total"`
}
