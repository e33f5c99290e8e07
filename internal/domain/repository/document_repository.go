package repository

import (
	"context"

	"telemed-backend/internal/domain/entity"
)

// DocumentRepository is the generic store contract every domain service is
// built on. Implementations stamp createdAt/updatedAt and replace
// entity.ServerTimestamp values with the store clock.
type DocumentRepository interface {
	// Create persists data under a generated opaque id and returns it.
	Create(ctx context.Context, collection string, data entity.JSON) (string, error)
	// CreateIfAbsent persists data under id unless a document already exists.
	CreateIfAbsent(ctx context.Context, collection, id string, data entity.JSON) (bool, error)
	// GetByID returns nil, nil when no document exists.
	GetByID(ctx context.Context, collection, id string) (*entity.Document, error)
	// Update merges top-level fields into the document; entity.ErrNotFound when absent.
	Update(ctx context.Context, collection, id string, partial entity.JSON) error
	// UpdateIf merges partial only if every field in expect equals the stored
	// value; entity.ErrPreconditionFailed otherwise.
	UpdateIf(ctx context.Context, collection, id string, expect, partial entity.JSON) error
	// ArrayAppend atomically appends values to the list at field.
	ArrayAppend(ctx context.Context, collection, id, field string, values ...interface{}) error
	Query(ctx context.Context, collection string, query *entity.Query) ([]entity.Document, error)
}
