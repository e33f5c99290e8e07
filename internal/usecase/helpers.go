package usecase

import (
	"context"
	"fmt"

	"telemed-backend/internal/converter"
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"
)

func validateActor(actor entity.Actor) error {
	if err := entity.ValidateIdentity(actor.ID); err != nil {
		return err
	}
	if !actor.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", entity.ErrValidation, actor.Role)
	}
	return nil
}

// participantQuery selects the documents where identity acts in role, newest
// first by orderField.
func participantQuery(identity string, role entity.Role, orderField string) (*entity.Query, error) {
	if err := entity.ValidateIdentity(identity); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", entity.ErrValidation, role)
	}
	return entity.NewQuery().
		Where(role.ParticipantField(), identity).
		OrderBy(orderField, entity.Desc), nil
}

func auditHistory(ctx context.Context, repo repository.DocumentRepository, entityName, entityID string) (*dto.AuditLogListResponse, error) {
	query := entity.NewQuery().
		Where("entity", entityName).
		Where("entityId", entityID).
		OrderBy(entity.FieldCreatedAt, entity.Asc)

	docs, err := repo.Query(ctx, entity.CollectionAuditLogs, query)
	if err != nil {
		return nil, err
	}

	logs := converter.AuditLogsToResponses(docs)
	return &dto.AuditLogListResponse{
		Logs:  logs,
		Total: len(logs),
	}, nil
}
