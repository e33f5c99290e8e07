package repository

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"telemed-backend/internal/domain/entity"

	"github.com/sirupsen/logrus"
)

type recordingFeed struct {
	mu      sync.Mutex
	changes []entity.Change
	err     error
}

func (f *recordingFeed) Publish(ctx context.Context, change entity.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, change)
	return f.err
}

func (f *recordingFeed) Listen(collection string) (<-chan entity.Change, func()) {
	ch := make(chan entity.Change)
	return ch, func() {}
}

func (f *recordingFeed) recorded() []entity.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Change(nil), f.changes...)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPublishingDocumentRepository_PublishesWrites(t *testing.T) {
	ctx := context.Background()
	feed := &recordingFeed{}
	repo := NewPublishingDocumentRepository(NewMemoryDocumentRepository(), feed, quietLogger())

	id, err := repo.Create(ctx, entity.CollectionAppointments, entity.JSON{"status": "scheduled"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Update(ctx, entity.CollectionAppointments, id, entity.JSON{"status": "confirmed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := repo.ArrayAppend(ctx, entity.CollectionAppointments, id, "history", "confirmed"); err != nil {
		t.Fatalf("ArrayAppend: %v", err)
	}
	if _, err := repo.Query(ctx, entity.CollectionAppointments, entity.NewQuery()); err != nil {
		t.Fatalf("Query: %v", err)
	}

	got := feed.recorded()
	want := []entity.ChangeKind{entity.ChangeCreated, entity.ChangeUpdated, entity.ChangeUpdated}
	if len(got) != len(want) {
		t.Fatalf("got %d changes, want %d: %+v", len(got), len(want), got)
	}
	for i, kind := range want {
		if got[i].Kind != kind || got[i].DocumentID != id || got[i].Collection != entity.CollectionAppointments {
			t.Errorf("change %d = %+v", i, got[i])
		}
	}
}

func TestPublishingDocumentRepository_SkipsFailedAndNoopWrites(t *testing.T) {
	ctx := context.Background()
	feed := &recordingFeed{}
	repo := NewPublishingDocumentRepository(NewMemoryDocumentRepository(), feed, quietLogger())

	if err := repo.Update(ctx, entity.CollectionUsers, "ghost", entity.JSON{"name": "x"}); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("Update missing: %v", err)
	}
	repo.CreateIfAbsent(ctx, entity.CollectionChatRooms, "a~b", entity.JSON{})
	repo.CreateIfAbsent(ctx, entity.CollectionChatRooms, "a~b", entity.JSON{})

	if got := feed.recorded(); len(got) != 1 {
		t.Fatalf("got %d changes, want 1: %+v", len(got), got)
	}
}

func TestPublishingDocumentRepository_PublishErrorDoesNotFailWrite(t *testing.T) {
	feed := &recordingFeed{err: errors.New("broker down")}
	repo := NewPublishingDocumentRepository(NewMemoryDocumentRepository(), feed, quietLogger())

	if _, err := repo.Create(context.Background(), entity.CollectionUsers, entity.JSON{"name": "a"}); err != nil {
		t.Fatalf("Create should succeed despite publish failure: %v", err)
	}
}
