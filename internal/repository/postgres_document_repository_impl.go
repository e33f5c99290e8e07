package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"telemed-backend/internal/domain/entity"
	domainRepo "telemed-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// postgresDocumentRepository stores every collection in a single "documents"
// table: (collection, id) primary key, JSONB data, and a bigserial seq used as
// the final sort key. Filters compile to JSONB containment (@>) so they are
// served by the GIN index on data.
type postgresDocumentRepository struct {
	db  *gorm.DB
	log *logrus.Logger
	now func() time.Time
}

func NewPostgresDocumentRepository(db *gorm.DB, log *logrus.Logger) domainRepo.DocumentRepository {
	return &postgresDocumentRepository{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *postgresDocumentRepository) Create(ctx context.Context, collection string, data entity.JSON) (string, error) {
	if err := validateCollection(collection); err != nil {
		return "", err
	}

	now := r.now()
	doc := &entity.Document{
		Collection: collection,
		ID:         uuid.NewString(),
		Data:       stampCreate(data, now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		r.log.Warnf("Failed to create document in %s: %+v", collection, err)
		return "", translateError(err)
	}
	return doc.ID, nil
}

func (r *postgresDocumentRepository) CreateIfAbsent(ctx context.Context, collection, id string, data entity.JSON) (bool, error) {
	if err := validateCollection(collection); err != nil {
		return false, err
	}
	if id == "" {
		return false, fmt.Errorf("%w: empty document id", entity.ErrValidation)
	}

	now := r.now()
	doc := &entity.Document{
		Collection: collection,
		ID:         id,
		Data:       stampCreate(data, now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(doc)
	if result.Error != nil {
		r.log.Warnf("Failed to create document %s/%s: %+v", collection, id, result.Error)
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *postgresDocumentRepository) GetByID(ctx context.Context, collection, id string) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &doc, nil
}

func (r *postgresDocumentRepository) Update(ctx context.Context, collection, id string, partial entity.JSON) error {
	return r.UpdateIf(ctx, collection, id, nil, partial)
}

func (r *postgresDocumentRepository) UpdateIf(ctx context.Context, collection, id string, expect, partial entity.JSON) error {
	now := r.now()
	patch, err := encodeJSON(stampUpdate(partial, now))
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}

	tx := r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("collection = ? AND id = ?", collection, id)
	for field, want := range expect {
		if !entity.ValidFieldPath(field) {
			return fmt.Errorf("%w: invalid field path %q", entity.ErrUnsupportedQuery, field)
		}
		cond, err := encodeJSON(containment(field, want))
		if err != nil {
			return fmt.Errorf("%w: %v", entity.ErrValidation, err)
		}
		tx = tx.Where("data @> ?::jsonb", cond)
	}

	result := tx.Updates(map[string]interface{}{
		"data":       gorm.Expr("data || ?::jsonb", patch),
		"updated_at": now,
	})
	if result.Error != nil {
		r.log.Warnf("Failed to update document %s/%s: %+v", collection, id, result.Error)
		return translateError(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return r.missOrPrecondition(ctx, collection, id, len(expect) > 0)
}

func (r *postgresDocumentRepository) ArrayAppend(ctx context.Context, collection, id, field string, values ...interface{}) error {
	if err := validateArrayField(field); err != nil {
		return err
	}

	now := r.now()
	resolved := make([]interface{}, len(values))
	for i, v := range values {
		resolved[i] = resolveValue(v, now)
	}
	elems, err := encodeJSON(resolved)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	stamp, err := encodeJSON(entity.JSON{entity.FieldUpdatedAt: now})
	if err != nil {
		return err
	}

	// One statement, so concurrent appends serialize on the row lock instead
	// of overwriting each other.
	result := r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]interface{}{
			"data": gorm.Expr(
				"jsonb_set(data, ?::text[], COALESCE(data->?::text, '[]'::jsonb) || ?::jsonb, true) || ?::jsonb",
				"{"+field+"}", field, elems, stamp,
			),
			"updated_at": now,
		})
	if result.Error != nil {
		r.log.Warnf("Failed to append to %s/%s.%s: %+v", collection, id, field, result.Error)
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", entity.ErrNotFound, collection, id)
	}
	return nil
}

func (r *postgresDocumentRepository) Query(ctx context.Context, collection string, query *entity.Query) ([]entity.Document, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	tx := r.db.WithContext(ctx).Where("collection = ?", collection)
	for _, f := range query.Filters() {
		cond, err := filterCondition(f)
		if err != nil {
			return nil, err
		}
		tx = tx.Where("data @> ?::jsonb", cond)
	}
	for _, o := range query.Orders() {
		tx = tx.Order(orderExpression(o))
	}
	tx = tx.Order("seq ASC")
	if limit := query.LimitValue(); limit > 0 {
		tx = tx.Limit(limit)
	}

	var docs []entity.Document
	if err := tx.Find(&docs).Error; err != nil {
		r.log.Warnf("Failed to query %s: %+v", collection, err)
		return nil, translateError(err)
	}
	return docs, nil
}

func (r *postgresDocumentRepository) missOrPrecondition(ctx context.Context, collection, id string, conditional bool) error {
	if conditional {
		doc, err := r.GetByID(ctx, collection, id)
		if err != nil {
			return err
		}
		if doc != nil {
			return fmt.Errorf("%w: %s/%s", entity.ErrPreconditionFailed, collection, id)
		}
	}
	return fmt.Errorf("%w: %s/%s", entity.ErrNotFound, collection, id)
}

// filterCondition compiles a filter into a JSONB containment document.
// Equality against lists or objects has no exact containment form and is
// rejected.
func filterCondition(f entity.Filter) (string, error) {
	switch f.Op {
	case entity.OpEqual:
		switch f.Value.(type) {
		case entity.JSON, map[string]interface{}, []interface{}, []string:
			return "", fmt.Errorf("%w: equality on composite value for %q", entity.ErrUnsupportedQuery, f.Field)
		}
		return encodeJSON(containment(f.Field, f.Value))
	case entity.OpArrayContains:
		return encodeJSON(containment(f.Field, []interface{}{f.Value}))
	}
	return "", fmt.Errorf("%w: operator %q", entity.ErrUnsupportedQuery, f.Op)
}

// containment nests value under a dotted path: "a.b", v -> {"a":{"b":v}}
func containment(path string, value interface{}) map[string]interface{} {
	parts := strings.Split(path, ".")
	out := map[string]interface{}{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		out = map[string]interface{}{parts[i]: out}
	}
	return out
}

// orderExpression renders an ORDER BY term. Field paths are validated by
// Query.Validate before they reach here.
func orderExpression(o entity.Order) string {
	dir := "ASC"
	if o.Direction == entity.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("data #> '{%s}' %s", strings.ReplaceAll(o.Field, ".", ","), dir)
}

func encodeJSON(v interface{}) (string, error) {
	b, err := json.Marshal(entity.NormalizeValue(v))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// translateError maps driver errors onto the store error taxonomy
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501":
			return fmt.Errorf("%w: %w", entity.ErrPermissionDenied, err)
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "57P"),
			pgErr.Code == "53300":
			return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
		case pgErr.Code == "0A000", pgErr.Code == "42P18", pgErr.Code == "54001":
			return fmt.Errorf("%w: %w", entity.ErrUnsupportedQuery, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
	}
	return err
}
