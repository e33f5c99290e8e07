package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telemed-backend/internal/domain/entity"
	domainRepo "telemed-backend/internal/domain/repository"

	"github.com/google/uuid"
)

// memoryDocumentRepository keeps documents in process memory. It implements
// the full store contract, including atomic appends and conditional writes,
// and backs the "memory" store driver and every usecase test.
type memoryDocumentRepository struct {
	mu          sync.RWMutex
	collections map[string]map[string]*entity.Document
	seq         int64
	now         func() time.Time
}

// MemoryOption configures the in-memory store
type MemoryOption func(*memoryDocumentRepository)

// WithClock overrides the store clock
func WithClock(now func() time.Time) MemoryOption {
	return func(r *memoryDocumentRepository) {
		r.now = now
	}
}

func NewMemoryDocumentRepository(opts ...MemoryOption) domainRepo.DocumentRepository {
	r := &memoryDocumentRepository{
		collections: make(map[string]map[string]*entity.Document),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *memoryDocumentRepository) Create(ctx context.Context, collection string, data entity.JSON) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateCollection(collection); err != nil {
		return "", err
	}

	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(collection, id, data)
	return id, nil
}

func (r *memoryDocumentRepository) CreateIfAbsent(ctx context.Context, collection, id string, data entity.JSON) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateCollection(collection); err != nil {
		return false, err
	}
	if id == "" {
		return false, fmt.Errorf("%w: empty document id", entity.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.collections[collection][id]; exists {
		return false, nil
	}
	r.insertLocked(collection, id, data)
	return true, nil
}

func (r *memoryDocumentRepository) insertLocked(collection, id string, data entity.JSON) {
	now := r.now()
	r.seq++
	docs, ok := r.collections[collection]
	if !ok {
		docs = make(map[string]*entity.Document)
		r.collections[collection] = docs
	}
	docs[id] = &entity.Document{
		Collection: collection,
		ID:         id,
		Data:       stampCreate(data.Clone(), now),
		Seq:        r.seq,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *memoryDocumentRepository) GetByID(ctx context.Context, collection, id string) (*entity.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return copyDocument(doc), nil
}

func (r *memoryDocumentRepository) Update(ctx context.Context, collection, id string, partial entity.JSON) error {
	return r.UpdateIf(ctx, collection, id, nil, partial)
}

func (r *memoryDocumentRepository) UpdateIf(ctx context.Context, collection, id string, expect, partial entity.JSON) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.collections[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", entity.ErrNotFound, collection, id)
	}
	for field, want := range expect {
		got, ok := doc.Data.Lookup(field)
		if !ok || !entity.ValuesEqual(got, want) {
			return fmt.Errorf("%w: %s/%s field %q", entity.ErrPreconditionFailed, collection, id, field)
		}
	}

	now := r.now()
	for k, v := range stampUpdate(partial.Clone(), now) {
		doc.Data[k] = v
	}
	doc.UpdatedAt = now
	return nil
}

func (r *memoryDocumentRepository) ArrayAppend(ctx context.Context, collection, id, field string, values ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateArrayField(field); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.collections[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", entity.ErrNotFound, collection, id)
	}

	now := r.now()
	list := append([]interface{}(nil), entity.AsSlice(doc.Data[field])...)
	for _, v := range values {
		list = append(list, resolveValue(entity.CloneValue(v), now))
	}
	doc.Data[field] = list
	doc.Data[entity.FieldUpdatedAt] = now
	doc.UpdatedAt = now
	return nil
}

func (r *memoryDocumentRepository) Query(ctx context.Context, collection string, query *entity.Query) ([]entity.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	result := make([]entity.Document, 0)
	for _, doc := range r.collections[collection] {
		if query.Matches(doc.Data) {
			result = append(result, *copyDocument(doc))
		}
	}
	r.mu.RUnlock()

	sortDocuments(result, query.Orders())
	if limit := query.LimitValue(); limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyDocument(doc *entity.Document) *entity.Document {
	cp := *doc
	cp.Data = doc.Data.Clone()
	return &cp
}
