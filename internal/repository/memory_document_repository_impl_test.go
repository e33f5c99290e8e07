package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"telemed-backend/internal/domain/entity"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMemoryDocumentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryDocumentRepository(WithClock(fixedClock(now)))

	id, err := repo.Create(ctx, entity.CollectionAppointments, entity.JSON{
		"doctorId":  "d1",
		"status":    "scheduled",
		"checkedIn": entity.ServerTimestamp,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	doc, err := repo.GetByID(ctx, entity.CollectionAppointments, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc == nil {
		t.Fatal("expected document")
	}
	if doc.Data.String("doctorId") != "d1" {
		t.Errorf("doctorId = %q", doc.Data.String("doctorId"))
	}
	if !doc.Data.Time(entity.FieldCreatedAt).Equal(now) {
		t.Errorf("createdAt = %v, want %v", doc.Data[entity.FieldCreatedAt], now)
	}
	if !doc.Data.Time("checkedIn").Equal(now) {
		t.Errorf("server timestamp not resolved: %v", doc.Data["checkedIn"])
	}

	// Mutating the returned copy must not reach the store.
	doc.Data["status"] = "cancelled"
	again, _ := repo.GetByID(ctx, entity.CollectionAppointments, id)
	if again.Data.String("status") != "scheduled" {
		t.Errorf("store leaked internal state, status = %q", again.Data.String("status"))
	}
}

func TestMemoryDocumentRepository_GetByIDMissing(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	doc, err := repo.GetByID(context.Background(), entity.CollectionUsers, "nobody")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil document, got %+v", doc)
	}
}

func TestMemoryDocumentRepository_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()

	created, err := repo.CreateIfAbsent(ctx, entity.CollectionChatRooms, "a~b", entity.JSON{"lastMessage": ""})
	if err != nil || !created {
		t.Fatalf("first CreateIfAbsent = %v, %v", created, err)
	}
	created, err = repo.CreateIfAbsent(ctx, entity.CollectionChatRooms, "a~b", entity.JSON{"lastMessage": "overwrite"})
	if err != nil {
		t.Fatalf("second CreateIfAbsent: %v", err)
	}
	if created {
		t.Fatal("expected existing document to be kept")
	}
	doc, _ := repo.GetByID(ctx, entity.CollectionChatRooms, "a~b")
	if doc.Data.String("lastMessage") != "" {
		t.Errorf("existing document was overwritten: %v", doc.Data)
	}

	if _, err := repo.CreateIfAbsent(ctx, entity.CollectionChatRooms, "", entity.JSON{}); !errors.Is(err, entity.ErrValidation) {
		t.Errorf("empty id: got %v, want ErrValidation", err)
	}
}

func TestMemoryDocumentRepository_UpdateMergesTopLevel(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := created
	repo := NewMemoryDocumentRepository(WithClock(func() time.Time { return clock }))

	id, _ := repo.Create(ctx, entity.CollectionUsers, entity.JSON{
		"name":  "Ana",
		"role":  "patient",
		"phone": "555",
	})

	clock = created.Add(time.Hour)
	err := repo.Update(ctx, entity.CollectionUsers, id, entity.JSON{
		"phone":               "777",
		entity.FieldCreatedAt: time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	doc, _ := repo.GetByID(ctx, entity.CollectionUsers, id)
	if doc.Data.String("name") != "Ana" || doc.Data.String("phone") != "777" {
		t.Errorf("unexpected data after merge: %v", doc.Data)
	}
	if !doc.Data.Time(entity.FieldCreatedAt).Equal(created) {
		t.Errorf("createdAt changed to %v", doc.Data[entity.FieldCreatedAt])
	}
	if !doc.Data.Time(entity.FieldUpdatedAt).Equal(clock) {
		t.Errorf("updatedAt = %v, want %v", doc.Data[entity.FieldUpdatedAt], clock)
	}
}

func TestMemoryDocumentRepository_UpdateMissing(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	err := repo.Update(context.Background(), entity.CollectionUsers, "ghost", entity.JSON{"name": "x"})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryDocumentRepository_UpdateIf(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()
	id, _ := repo.Create(ctx, entity.CollectionAppointments, entity.JSON{"status": "scheduled"})

	if err := repo.UpdateIf(ctx, entity.CollectionAppointments, id,
		entity.JSON{"status": "scheduled"}, entity.JSON{"status": "confirmed"}); err != nil {
		t.Fatalf("UpdateIf matching: %v", err)
	}

	err := repo.UpdateIf(ctx, entity.CollectionAppointments, id,
		entity.JSON{"status": "scheduled"}, entity.JSON{"status": "cancelled"})
	if !errors.Is(err, entity.ErrPreconditionFailed) {
		t.Fatalf("stale precondition: got %v, want ErrPreconditionFailed", err)
	}

	doc, _ := repo.GetByID(ctx, entity.CollectionAppointments, id)
	if doc.Data.String("status") != "confirmed" {
		t.Errorf("status = %q, want confirmed", doc.Data.String("status"))
	}
}

func TestMemoryDocumentRepository_ArrayAppendConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()
	id, _ := repo.Create(ctx, entity.CollectionConsultations, entity.JSON{"status": "active"})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			note := entity.JSON{"content": fmt.Sprintf("note %d", i), "timestamp": entity.ServerTimestamp}
			if err := repo.ArrayAppend(ctx, entity.CollectionConsultations, id, "noteHistory", note); err != nil {
				t.Errorf("ArrayAppend %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	doc, _ := repo.GetByID(ctx, entity.CollectionConsultations, id)
	notes := doc.Data.Slice("noteHistory")
	if len(notes) != n {
		t.Fatalf("got %d notes, want %d", len(notes), n)
	}
	seen := make(map[string]bool, n)
	for _, raw := range notes {
		note := entity.AsJSON(raw)
		if note.Time("timestamp").IsZero() {
			t.Errorf("note timestamp not resolved: %v", note)
		}
		seen[note.String("content")] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct notes, want %d", len(seen), n)
	}
}

func TestMemoryDocumentRepository_ArrayAppendRejectsNestedField(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()
	id, _ := repo.Create(ctx, entity.CollectionConsultations, entity.JSON{})

	err := repo.ArrayAppend(ctx, entity.CollectionConsultations, id, "a.b", "x")
	if !errors.Is(err, entity.ErrUnsupportedQuery) {
		t.Fatalf("got %v, want ErrUnsupportedQuery", err)
	}
	err = repo.ArrayAppend(ctx, entity.CollectionConsultations, "ghost", "notes", "x")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryDocumentRepository_Query(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryDocumentRepository()

	seed := []entity.JSON{
		{"doctorId": "d1", "status": "scheduled", "date": base.Add(2 * time.Hour)},
		{"doctorId": "d1", "status": "completed", "date": base},
		{"doctorId": "d2", "status": "scheduled", "date": base.Add(time.Hour)},
		{"doctorId": "d1", "status": "scheduled", "date": base.Add(time.Hour)},
	}
	for _, data := range seed {
		if _, err := repo.Create(ctx, entity.CollectionAppointments, data); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		name  string
		query *entity.Query
		want  []time.Time
	}{
		{
			name:  "filter and ascending order",
			query: entity.NewQuery().Where("doctorId", "d1").OrderBy("date", entity.Asc),
			want:  []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour)},
		},
		{
			name:  "two filters descending",
			query: entity.NewQuery().Where("doctorId", "d1").Where("status", "scheduled").OrderBy("date", entity.Desc),
			want:  []time.Time{base.Add(2 * time.Hour), base.Add(time.Hour)},
		},
		{
			name:  "limit",
			query: entity.NewQuery().OrderBy("date", entity.Asc).Limit(2),
			want:  []time.Time{base, base.Add(time.Hour)},
		},
		{
			name:  "no match",
			query: entity.NewQuery().Where("doctorId", "d9"),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := repo.Query(ctx, entity.CollectionAppointments, tt.query)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(docs) != len(tt.want) {
				t.Fatalf("got %d docs, want %d", len(docs), len(tt.want))
			}
			for i, want := range tt.want {
				if got := docs[i].Data.Time("date"); !got.Equal(want) {
					t.Errorf("doc %d date = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestMemoryDocumentRepository_QueryTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository(WithClock(fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))
	room := entity.MessagesCollection("a~b")
	for i := 0; i < 5; i++ {
		repo.Create(ctx, room, entity.JSON{"content": fmt.Sprint(i), "timestamp": entity.ServerTimestamp})
	}

	docs, err := repo.Query(ctx, room, entity.NewQuery().OrderBy("timestamp", entity.Asc))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for i, doc := range docs {
		if doc.Data.String("content") != fmt.Sprint(i) {
			t.Fatalf("position %d holds %q", i, doc.Data.String("content"))
		}
	}
}

func TestMemoryDocumentRepository_QueryArrayContains(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()
	repo.CreateIfAbsent(ctx, entity.CollectionChatRooms, "a~b", entity.JSON{"participants": []string{"a", "b"}})
	repo.CreateIfAbsent(ctx, entity.CollectionChatRooms, "b~c", entity.JSON{"participants": []string{"b", "c"}})

	docs, err := repo.Query(ctx, entity.CollectionChatRooms, entity.NewQuery().WhereArrayContains("participants", "a"))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "a~b" {
		t.Fatalf("unexpected result: %+v", docs)
	}
}

func TestMemoryDocumentRepository_QueryUnsupported(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	queries := map[string]*entity.Query{
		"negative limit": entity.NewQuery().Limit(-1),
		"bad field":      entity.NewQuery().Where("bad field", "x"),
		"nil value":      entity.NewQuery().Where("status", nil),
		"bad direction":  entity.NewQuery().OrderBy("date", entity.Direction("sideways")),
	}
	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Query(context.Background(), entity.CollectionAppointments, q)
			if !errors.Is(err, entity.ErrUnsupportedQuery) {
				t.Fatalf("got %v, want ErrUnsupportedQuery", err)
			}
		})
	}
}

func TestMemoryDocumentRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewMemoryDocumentRepository()
	if _, err := repo.Create(ctx, entity.CollectionUsers, entity.JSON{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
