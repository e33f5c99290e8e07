package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"
	repoImpl "telemed-backend/internal/repository"
)

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps [][]entity.Document
	ch    chan struct{}
}

func newSnapshotRecorder() *snapshotRecorder {
	return &snapshotRecorder{ch: make(chan struct{}, 64)}
}

func (r *snapshotRecorder) record(docs []entity.Document) {
	r.mu.Lock()
	r.snaps = append(r.snaps, docs)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *snapshotRecorder) wait(t *testing.T) []entity.Document {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func newTestManager(t *testing.T) (*SubscriptionManager, repository.DocumentRepository) {
	t.Helper()
	feed := NewMemoryChangeFeed(16)
	log := quietLogger()
	store := repoImpl.NewPublishingDocumentRepository(repoImpl.NewMemoryDocumentRepository(), feed, log)
	m := NewSubscriptionManager(store, feed, log, 10*time.Millisecond)
	t.Cleanup(m.Close)
	return m, store
}

func TestSubscriptionManager_DeliversInitialAndUpdatedSnapshots(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)
	room := entity.MessagesCollection("u1~u2")
	store.Create(ctx, room, entity.JSON{"content": "hello", "timestamp": entity.ServerTimestamp})

	rec := newSnapshotRecorder()
	sub, err := m.Subscribe(ctx, room, entity.NewQuery().OrderBy("timestamp", entity.Asc), rec.record)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	if got := rec.wait(t); len(got) != 1 {
		t.Fatalf("initial snapshot has %d docs, want 1", len(got))
	}

	store.Create(ctx, room, entity.JSON{"content": "hi", "timestamp": entity.ServerTimestamp})
	got := rec.wait(t)
	if len(got) != 2 {
		t.Fatalf("second snapshot has %d docs, want 2", len(got))
	}
	if got[0].Data.String("content") != "hello" || got[1].Data.String("content") != "hi" {
		t.Errorf("unexpected order: %q, %q", got[0].Data.String("content"), got[1].Data.String("content"))
	}
}

func TestSubscriptionManager_EmptyInitialSnapshot(t *testing.T) {
	m, _ := newTestManager(t)
	rec := newSnapshotRecorder()
	sub, err := m.Subscribe(context.Background(), entity.CollectionAppointments,
		entity.NewQuery().Where("doctorId", "d1"), rec.record)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	if got := rec.wait(t); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d", len(got))
	}
}

func TestSubscriptionManager_SkipsUnchangedSnapshots(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	rec := newSnapshotRecorder()
	sub, err := m.Subscribe(ctx, entity.CollectionAppointments,
		entity.NewQuery().Where("doctorId", "d1"), rec.record)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()
	rec.wait(t)

	// A write outside the result set changes nothing the subscriber sees.
	store.Create(ctx, entity.CollectionAppointments, entity.JSON{"doctorId": "d2"})
	store.Create(ctx, entity.CollectionAppointments, entity.JSON{"doctorId": "d1"})

	if got := rec.wait(t); len(got) != 1 {
		t.Fatalf("got %d docs, want 1", len(got))
	}
	time.Sleep(50 * time.Millisecond)
	if n := rec.count(); n != 2 {
		t.Errorf("got %d deliveries, want 2", n)
	}
}

func TestSubscriptionManager_UnsupportedQuery(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Subscribe(context.Background(), entity.CollectionAppointments,
		entity.NewQuery().Limit(-1), func([]entity.Document) {})
	if !errors.Is(err, entity.ErrUnsupportedQuery) {
		t.Fatalf("got %v, want ErrUnsupportedQuery", err)
	}
	if m.ActiveCount() != 0 {
		t.Errorf("failed subscription was registered")
	}
}

func TestSubscriptionManager_CancelIsIdempotentAndFinal(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	var calls atomic.Int32
	sub, err := m.Subscribe(ctx, entity.CollectionUsers, nil, func([]entity.Document) {
		calls.Add(1)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	sub.Cancel()
	sub.Cancel()
	after := calls.Load()

	store.Create(ctx, entity.CollectionUsers, entity.JSON{"name": "x"})
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("delivery goroutine did not exit")
	}
	time.Sleep(20 * time.Millisecond)

	if calls.Load() != after {
		t.Errorf("callback ran after Cancel returned")
	}
	if m.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", m.ActiveCount())
	}
}

func TestSubscriptionManager_CancelFromCallback(t *testing.T) {
	m, _ := newTestManager(t)

	var sub *Subscription
	ready := make(chan struct{})
	cancelled := make(chan struct{})
	var err error
	sub, err = m.Subscribe(context.Background(), entity.CollectionUsers, nil, func([]entity.Document) {
		<-ready
		sub.Cancel()
		close(cancelled)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	close(ready)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Cancel from inside the callback deadlocked")
	}
}

func TestSubscriptionManager_ContextEndsSubscription(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := m.Subscribe(ctx, entity.CollectionUsers, nil, func([]entity.Document) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription outlived its context")
	}
}

func TestSubscriptionManager_SubscribeDocument(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)
	id, _ := store.Create(ctx, entity.CollectionAppointments, entity.JSON{"status": "scheduled"})
	otherID, _ := store.Create(ctx, entity.CollectionAppointments, entity.JSON{"status": "scheduled"})

	docs := make(chan *entity.Document, 8)
	sub, err := m.SubscribeDocument(ctx, entity.CollectionAppointments, id, func(doc *entity.Document) {
		docs <- doc
	})
	if err != nil {
		t.Fatalf("SubscribeDocument: %v", err)
	}
	defer sub.Cancel()

	first := <-docs
	if first == nil || first.Data.String("status") != "scheduled" {
		t.Fatalf("unexpected initial document %+v", first)
	}

	store.Update(ctx, entity.CollectionAppointments, otherID, entity.JSON{"status": "cancelled"})
	store.Update(ctx, entity.CollectionAppointments, id, entity.JSON{"status": "confirmed"})

	select {
	case doc := <-docs:
		if doc.Data.String("status") != "confirmed" {
			t.Errorf("status = %q, want confirmed", doc.Data.String("status"))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
}

func TestSubscriptionManager_MissingDocument(t *testing.T) {
	m, _ := newTestManager(t)
	docs := make(chan *entity.Document, 1)
	sub, err := m.SubscribeDocument(context.Background(), entity.CollectionUsers, "ghost", func(doc *entity.Document) {
		docs <- doc
	})
	if err != nil {
		t.Fatalf("SubscribeDocument: %v", err)
	}
	defer sub.Cancel()

	if doc := <-docs; doc != nil {
		t.Fatalf("expected nil document, got %+v", doc)
	}
}

type flakyRepository struct {
	repository.DocumentRepository
	failures atomic.Int32
}

func (r *flakyRepository) Query(ctx context.Context, collection string, query *entity.Query) ([]entity.Document, error) {
	if r.failures.Load() > 0 {
		r.failures.Add(-1)
		return nil, entity.ErrStoreUnavailable
	}
	return r.DocumentRepository.Query(ctx, collection, query)
}

func TestSubscriptionManager_RetriesAfterReadFailure(t *testing.T) {
	ctx := context.Background()
	feed := NewMemoryChangeFeed(16)
	log := quietLogger()
	store := repoImpl.NewPublishingDocumentRepository(repoImpl.NewMemoryDocumentRepository(), feed, log)
	flaky := &flakyRepository{DocumentRepository: store}
	m := NewSubscriptionManager(flaky, feed, log, 5*time.Millisecond)
	defer m.Close()

	rec := newSnapshotRecorder()
	sub, err := m.Subscribe(ctx, entity.CollectionUsers, nil, rec.record)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()
	rec.wait(t)

	flaky.failures.Store(3)
	store.Create(ctx, entity.CollectionUsers, entity.JSON{"name": "a"})

	if got := rec.wait(t); len(got) != 1 {
		t.Fatalf("got %d docs after recovery, want 1", len(got))
	}
}

func TestSubscriptionManager_ResyncTriggersRead(t *testing.T) {
	ctx := context.Background()
	feed := NewMemoryChangeFeed(16)
	log := quietLogger()
	// Writes bypass the feed, as if the notification had been lost.
	inner := repoImpl.NewMemoryDocumentRepository()
	m := NewSubscriptionManager(inner, feed, log, 5*time.Millisecond)
	defer m.Close()

	rec := newSnapshotRecorder()
	sub, err := m.Subscribe(ctx, entity.CollectionUsers, nil, rec.record)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()
	rec.wait(t)

	inner.Create(ctx, entity.CollectionUsers, entity.JSON{"name": "a"})
	feed.Resync()

	if got := rec.wait(t); len(got) != 1 {
		t.Fatalf("got %d docs after resync, want 1", len(got))
	}
}

func TestSubscriptionManager_CloseCancelsAll(t *testing.T) {
	feed := NewMemoryChangeFeed(16)
	m := NewSubscriptionManager(repoImpl.NewMemoryDocumentRepository(), feed, quietLogger(), 0)

	for i := 0; i < 3; i++ {
		if _, err := m.Subscribe(context.Background(), entity.CollectionUsers, nil, func([]entity.Document) {}); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}
	if m.ActiveCount() != 3 {
		t.Fatalf("ActiveCount = %d, want 3", m.ActiveCount())
	}

	m.Close()
	if m.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d after Close", m.ActiveCount())
	}
	if _, err := m.Subscribe(context.Background(), entity.CollectionUsers, nil, func([]entity.Document) {}); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("got %v, want ErrManagerClosed", err)
	}
}
