package service

import (
	"context"

	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

// AuditService records who changed what in the auditLogs collection.
// Entries are best-effort: the audited write has already committed, so a
// failed entry is logged and never reaches the caller.
type AuditService interface {
	LogCreate(ctx context.Context, actorID string, action string, entityName string, entityID string, newValue entity.JSON)
	LogUpdate(ctx context.Context, actorID string, action string, entityName string, entityID string, oldValue, newValue entity.JSON)
}

type auditService struct {
	log  *logrus.Logger
	repo repository.DocumentRepository
}

func NewAuditService(log *logrus.Logger, repo repository.DocumentRepository) AuditService {
	return &auditService{
		log:  log,
		repo: repo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, actorID string, action string, entityName string, entityID string, newValue entity.JSON) {
	s.write(ctx, actorID, action, entityName, entityID, nil, newValue)
}

// LogUpdate logs an update action with old and new values
func (s *auditService) LogUpdate(ctx context.Context, actorID string, action string, entityName string, entityID string, oldValue, newValue entity.JSON) {
	s.write(ctx, actorID, action, entityName, entityID, oldValue, newValue)
}

func (s *auditService) write(ctx context.Context, actorID, action, entityName, entityID string, oldValue, newValue entity.JSON) {
	data := entity.JSON{
		"actorId":  actorID,
		"action":   action,
		"entity":   entityName,
		"entityId": entityID,
		"oldValue": oldValue,
		"newValue": newValue,
	}

	if _, err := s.repo.Create(ctx, entity.CollectionAuditLogs, data); err != nil {
		s.log.Warnf("Failed to create audit log %s on %s/%s: %+v", action, entityName, entityID, err)
	}
}
