package repository

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"telemed-backend/internal/domain/entity"
)

// resolveServerTimestamps returns a copy of data with every
// entity.ServerTimestamp placeholder replaced by now.
func resolveServerTimestamps(data entity.JSON, now time.Time) entity.JSON {
	out := make(entity.JSON, len(data))
	for k, v := range data {
		out[k] = resolveValue(v, now)
	}
	return out
}

func resolveValue(v interface{}, now time.Time) interface{} {
	if entity.IsServerTimestamp(v) {
		return now
	}
	switch t := v.(type) {
	case entity.JSON:
		return resolveServerTimestamps(t, now)
	case map[string]interface{}:
		return resolveServerTimestamps(entity.JSON(t), now)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, el := range t {
			out[i] = resolveValue(el, now)
		}
		return out
	}
	return v
}

// stampCreate prepares data for insertion: placeholders resolved and both
// timestamps set.
func stampCreate(data entity.JSON, now time.Time) entity.JSON {
	out := resolveServerTimestamps(data, now)
	out[entity.FieldCreatedAt] = now
	out[entity.FieldUpdatedAt] = now
	return out
}

// stampUpdate prepares a partial update. createdAt is never overwritten.
func stampUpdate(partial entity.JSON, now time.Time) entity.JSON {
	out := resolveServerTimestamps(partial, now)
	delete(out, entity.FieldCreatedAt)
	out[entity.FieldUpdatedAt] = now
	return out
}

func validateCollection(collection string) error {
	if collection == "" || strings.HasPrefix(collection, "/") || strings.HasSuffix(collection, "/") {
		return fmt.Errorf("%w: invalid collection %q", entity.ErrUnsupportedQuery, collection)
	}
	return nil
}

func validateArrayField(field string) error {
	if !entity.ValidFieldPath(field) || strings.Contains(field, ".") {
		return fmt.Errorf("%w: array field must be a top-level field, got %q", entity.ErrUnsupportedQuery, field)
	}
	return nil
}

// sortDocuments orders docs by the query's sort keys, then by insertion
// sequence. A missing value sorts after present values ascending and before
// them descending, matching postgres NULL ordering.
func sortDocuments(docs []entity.Document, orders []entity.Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			va, okA := docs[i].Data.Lookup(o.Field)
			vb, okB := docs[j].Data.Lookup(o.Field)
			if va == nil {
				okA = false
			}
			if vb == nil {
				okB = false
			}
			switch {
			case !okA && !okB:
				continue
			case !okA:
				return o.Direction == entity.Desc
			case !okB:
				return o.Direction == entity.Asc
			}
			c, ok := entity.CompareValues(va, vb)
			if !ok {
				c = strings.Compare(fmt.Sprint(va), fmt.Sprint(vb))
			}
			if c == 0 {
				continue
			}
			if o.Direction == entity.Desc {
				c = -c
			}
			return c < 0
		}
		return docs[i].Seq < docs[j].Seq
	})
}
