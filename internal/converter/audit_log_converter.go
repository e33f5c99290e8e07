package converter

import (
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
)

// DocumentToAuditLog maps an auditLogs document onto the AuditLog entity
func DocumentToAuditLog(doc *entity.Document) *entity.AuditLog {
	if doc == nil {
		return nil
	}
	d := doc.Data

	return &entity.AuditLog{
		ID:         doc.ID,
		ActorID:    d.String("actorId"),
		Action:     d.String("action"),
		EntityName: d.String("entity"),
		EntityID:   d.String("entityId"),
		OldValue:   d.Map("oldValue"),
		NewValue:   d.Map("newValue"),
		CreatedAt:  d.Time(entity.FieldCreatedAt),
	}
}

// AuditLogToResponse converts a AuditLog entity to AuditLogResponse DTO
func AuditLogToResponse(log *entity.AuditLog) *dto.AuditLogResponse {
	if log == nil {
		return nil
	}

	return &dto.AuditLogResponse{
		ID:        log.ID,
		ActorID:   log.ActorID,
		Action:    log.Action,
		Entity:    log.EntityName,
		EntityID:  log.EntityID,
		OldValue:  log.OldValue,
		NewValue:  log.NewValue,
		CreatedAt: log.CreatedAt,
	}
}

// AuditLogsToResponses converts a slice of auditLogs documents to slice of AuditLogResponse DTOs
func AuditLogsToResponses(docs []entity.Document) []dto.AuditLogResponse {
	responses := make([]dto.AuditLogResponse, len(docs))
	for i := range docs {
		responses[i] = *AuditLogToResponse(DocumentToAuditLog(&docs[i]))
	}
	return responses
}
