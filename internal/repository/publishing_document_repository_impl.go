package repository

import (
	"context"
	"time"

	"telemed-backend/internal/domain/entity"
	domainRepo "telemed-backend/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// publishingDocumentRepository announces every successful write on a change
// feed. The write is already committed when Publish runs, so a publish
// failure is logged and not returned; listeners recover on the next change
// or resync.
type publishingDocumentRepository struct {
	inner domainRepo.DocumentRepository
	feed  domainRepo.ChangeFeed
	log   *logrus.Logger
}

func NewPublishingDocumentRepository(inner domainRepo.DocumentRepository, feed domainRepo.ChangeFeed, log *logrus.Logger) domainRepo.DocumentRepository {
	return &publishingDocumentRepository{
		inner: inner,
		feed:  feed,
		log:   log,
	}
}

func (r *publishingDocumentRepository) Create(ctx context.Context, collection string, data entity.JSON) (string, error) {
	id, err := r.inner.Create(ctx, collection, data)
	if err != nil {
		return "", err
	}
	r.publish(ctx, collection, id, entity.ChangeCreated)
	return id, nil
}

func (r *publishingDocumentRepository) CreateIfAbsent(ctx context.Context, collection, id string, data entity.JSON) (bool, error) {
	created, err := r.inner.CreateIfAbsent(ctx, collection, id, data)
	if err != nil {
		return false, err
	}
	if created {
		r.publish(ctx, collection, id, entity.ChangeCreated)
	}
	return created, nil
}

func (r *publishingDocumentRepository) GetByID(ctx context.Context, collection, id string) (*entity.Document, error) {
	return r.inner.GetByID(ctx, collection, id)
}

func (r *publishingDocumentRepository) Update(ctx context.Context, collection, id string, partial entity.JSON) error {
	if err := r.inner.Update(ctx, collection, id, partial); err != nil {
		return err
	}
	r.publish(ctx, collection, id, entity.ChangeUpdated)
	return nil
}

func (r *publishingDocumentRepository) UpdateIf(ctx context.Context, collection, id string, expect, partial entity.JSON) error {
	if err := r.inner.UpdateIf(ctx, collection, id, expect, partial); err != nil {
		return err
	}
	r.publish(ctx, collection, id, entity.ChangeUpdated)
	return nil
}

func (r *publishingDocumentRepository) ArrayAppend(ctx context.Context, collection, id, field string, values ...interface{}) error {
	if err := r.inner.ArrayAppend(ctx, collection, id, field, values...); err != nil {
		return err
	}
	r.publish(ctx, collection, id, entity.ChangeUpdated)
	return nil
}

func (r *publishingDocumentRepository) Query(ctx context.Context, collection string, query *entity.Query) ([]entity.Document, error) {
	return r.inner.Query(ctx, collection, query)
}

func (r *publishingDocumentRepository) publish(ctx context.Context, collection, id string, kind entity.ChangeKind) {
	// The caller's context may already be done once the write returns.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	change := entity.Change{Collection: collection, DocumentID: id, Kind: kind}
	if err := r.feed.Publish(pubCtx, change); err != nil {
		r.log.Warnf("Failed to publish change %s %s/%s: %+v", kind, collection, id, err)
	}
}
