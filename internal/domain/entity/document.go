package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collection names
const (
	CollectionUsers         = "users"
	CollectionAppointments  = "appointments"
	CollectionConsultations = "consultations"
	CollectionChatRooms     = "chatRooms"
	CollectionAuditLogs     = "auditLogs"
)

// Fields stamped by every store
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// TimeLayout is the fixed-width UTC layout documents persist times in, so that
// lexical order of stored values matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// MessagesCollection returns the per-room message collection name
func MessagesCollection(roomID string) string {
	return CollectionChatRooms + "/" + roomID + "/messages"
}

type serverTimestamp struct{}

// ServerTimestamp is a placeholder value that stores replace with their own
// clock when the document is written.
var ServerTimestamp = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp placeholder
func IsServerTimestamp(v interface{}) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Document is a schemaless record stored in a named collection
type Document struct {
	Collection string    `gorm:"type:varchar(255);primaryKey" json:"-"`
	ID         string    `gorm:"type:varchar(255);primaryKey" json:"id"`
	Data       JSON      `gorm:"type:jsonb;not null" json:"data"`
	Seq        int64     `gorm:"->;column:seq" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// ChangeKind describes the write that produced a Change
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	// ChangeResync is emitted when a feed may have missed changes and every
	// listener should re-read.
	ChangeResync ChangeKind = "resync"
)

// Change is a notification that a document in a collection was written
type Change struct {
	Collection string     `json:"collection"`
	DocumentID string     `json:"document_id,omitempty"`
	Kind       ChangeKind `json:"kind"`
}

// JSON type for GORM JSONB support
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(NormalizeValue(map[string]interface{}(j)))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan scan value into Jsonb, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}

	result := map[string]interface{}{}
	err := json.Unmarshal(bytes, &result)
	*j = JSON(result)
	return err
}

// Clone returns a deep copy of the map, its nested maps and slices
func (j JSON) Clone() JSON {
	if j == nil {
		return nil
	}
	return cloneValue(map[string]interface{}(j)).(JSON)
}

// CloneValue deep-copies a document value
func CloneValue(v interface{}) interface{} {
	return cloneValue(v)
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case JSON:
		out := make(JSON, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case map[string]interface{}:
		out := make(JSON, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}

// NormalizeValue converts times into TimeLayout strings, recursively, so the
// value can be persisted as JSON without losing ordering.
func NormalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(TimeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(TimeLayout)
	case JSON:
		return NormalizeValue(map[string]interface{}(t))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = NormalizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = NormalizeValue(val)
		}
		return out
	default:
		return v
	}
}

// Lookup resolves a dotted field path ("emergencyContact.phone")
func (j JSON) Lookup(path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(j)
	for _, part := range strings.Split(path, ".") {
		var m map[string]interface{}
		switch t := cur.(type) {
		case JSON:
			m = t
		case map[string]interface{}:
			m = t
		default:
			return nil, false
		}
		val, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = val
	}
	return cur, true
}

// String returns the string at key, or "" when absent or not a string
func (j JSON) String(key string) string {
	v, ok := j.Lookup(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Bool returns the bool at key
func (j JSON) Bool(key string) bool {
	v, ok := j.Lookup(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Float returns the number at key as float64
func (j JSON) Float(key string) float64 {
	v, ok := j.Lookup(key)
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return f
}

// Int returns the number at key truncated to int
func (j JSON) Int(key string) int {
	return int(j.Float(key))
}

// Time returns the time at key; strings are parsed as RFC 3339
func (j JSON) Time(key string) time.Time {
	v, ok := j.Lookup(key)
	if !ok {
		return time.Time{}
	}
	t, _ := toTime(v)
	return t
}

// TimePtr is like Time but returns nil when the key is absent or zero
func (j JSON) TimePtr(key string) *time.Time {
	t := j.Time(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

// Strings returns the string elements of the list at key
func (j JSON) Strings(key string) []string {
	out := []string{}
	for _, v := range j.Slice(key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Slice returns the list at key
func (j JSON) Slice(key string) []interface{} {
	v, ok := j.Lookup(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}

// Map returns the nested object at key
func (j JSON) Map(key string) JSON {
	v, ok := j.Lookup(key)
	if !ok {
		return nil
	}
	return AsJSON(v)
}

// AsJSON converts a nested object value to JSON, or nil when v is not an object
func AsJSON(v interface{}) JSON {
	switch t := v.(type) {
	case JSON:
		return t
	case map[string]interface{}:
		return JSON(t)
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

// CompareValues orders two document values. Numbers compare numerically,
// times chronologically, strings lexically and bools false < true. ok is
// false when the values are not of comparable kinds.
func CompareValues(a, b interface{}) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if _, ok := b.(time.Time); ok {
		c, ok := CompareValues(b, a)
		return -c, ok
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// ValuesEqual reports whether two document values are equal under
// CompareValues, falling back to JSON equality for objects and lists.
func ValuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := CompareValues(a, b); ok {
		return c == 0
	}
	ab, errA := json.Marshal(NormalizeValue(a))
	bb, errB := json.Marshal(NormalizeValue(b))
	return errA == nil && errB == nil && string(ab) == string(bb)
}
