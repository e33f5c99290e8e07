package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultRetryBackoff = time.Second

var ErrManagerClosed = errors.New("subscription manager is closed")

// SubscriptionManager turns change notifications into live query results.
//
// Every subscription re-runs its query whenever its collection changes and
// hands the full result to the callback, so consumers never see deltas. A
// subscription delivers from a single goroutine, in order, and never repeats
// a snapshot identical to the previous one. Read failures after the first
// snapshot are logged and retried until they succeed or the subscription is
// cancelled.
type SubscriptionManager struct {
	repo         repository.DocumentRepository
	feed         repository.ChangeFeed
	log          *logrus.Logger
	retryBackoff time.Duration

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

func NewSubscriptionManager(repo repository.DocumentRepository, feed repository.ChangeFeed, log *logrus.Logger, retryBackoff time.Duration) *SubscriptionManager {
	if retryBackoff <= 0 {
		retryBackoff = DefaultRetryBackoff
	}
	return &SubscriptionManager{
		repo:         repo,
		feed:         feed,
		log:          log,
		retryBackoff: retryBackoff,
		subs:         make(map[string]*Subscription),
	}
}

// Subscription is a live query registration
type Subscription struct {
	id      string
	manager *SubscriptionManager
	label   string

	cancelled  atomic.Bool
	delivering atomic.Bool
	deliverMu  sync.Mutex

	once     sync.Once
	stop     chan struct{}
	done     chan struct{}
	unlisten func()
}

// ID returns the subscription identifier
func (s *Subscription) ID() string {
	return s.id
}

// Cancel stops the subscription. It is safe to call more than once and from
// inside the subscription's own callback. Once Cancel returns no further
// callback starts.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancelled.Store(true)
		close(s.stop)
		s.unlisten()
		s.manager.remove(s.id)
	})
	// Wait out a callback running on another goroutine. A callback that
	// cancels its own subscription holds deliverMu already.
	if !s.delivering.Load() {
		s.deliverMu.Lock()
		s.deliverMu.Unlock()
	}
}

// Done is closed when the delivery goroutine has exited
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) deliver(fn func()) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.cancelled.Load() {
		return
	}
	s.delivering.Store(true)
	defer s.delivering.Store(false)
	fn()
}

// Subscribe delivers the documents of collection matching query, now and
// after every change. The first query runs before Subscribe returns, so an
// invalid query fails here instead of inside the callback.
func (m *SubscriptionManager) Subscribe(ctx context.Context, collection string, query *entity.Query, onChange func([]entity.Document)) (*Subscription, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	read := func(ctx context.Context) (interface{}, error) {
		return m.repo.Query(ctx, collection, query)
	}
	emit := func(snapshot interface{}) {
		onChange(snapshot.([]entity.Document))
	}
	return m.start(ctx, collection, "", read, emit)
}

// SubscribeDocument delivers a single document, or nil while it does not
// exist, now and after every change to it.
func (m *SubscriptionManager) SubscribeDocument(ctx context.Context, collection, id string, onChange func(*entity.Document)) (*Subscription, error) {
	read := func(ctx context.Context) (interface{}, error) {
		return m.repo.GetByID(ctx, collection, id)
	}
	emit := func(snapshot interface{}) {
		onChange(snapshot.(*entity.Document))
	}
	return m.start(ctx, collection, id, read, emit)
}

// ActiveCount returns the number of live subscriptions
func (m *SubscriptionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close cancels every subscription and rejects new ones
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	m.closed = true
	subs := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
	m.log.Infof("Subscription manager closed, cancelled %d subscriptions", len(subs))
}

func (m *SubscriptionManager) remove(id string) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

type snapshotReader func(ctx context.Context) (interface{}, error)

func (m *SubscriptionManager) start(ctx context.Context, collection, documentID string, read snapshotReader, emit func(interface{})) (*Subscription, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	m.mu.Unlock()

	// Listen before the first read so a change landing in between is not lost.
	changes, unlisten := m.feed.Listen(collection)

	initial, err := read(ctx)
	if err != nil {
		unlisten()
		return nil, err
	}

	label := collection
	if documentID != "" {
		label = collection + "/" + documentID
	}
	sub := &Subscription{
		id:       uuid.NewString(),
		manager:  m,
		label:    label,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		unlisten: unlisten,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unlisten()
		return nil, ErrManagerClosed
	}
	m.subs[sub.id] = sub
	m.mu.Unlock()

	// Reads outlive the caller's request; the subscription ends on Cancel or
	// when ctx is done.
	readCtx, cancelReads := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.stop:
		}
		cancelReads()
	}()

	go m.run(readCtx, sub, changes, documentID, initial, read, emit)

	m.log.Debugf("Subscription %s started on %s", sub.id, label)
	return sub, nil
}

func (m *SubscriptionManager) run(ctx context.Context, sub *Subscription, changes <-chan entity.Change, documentID string, initial interface{}, read snapshotReader, emit func(interface{})) {
	defer close(sub.done)

	last := initial
	sub.deliver(func() { emit(initial) })

	for {
		select {
		case <-sub.stop:
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if !relevant(change, documentID) {
				continue
			}
			drain(changes)

			snapshot, ok := m.readWithRetry(ctx, sub, read)
			if !ok {
				return
			}
			if reflect.DeepEqual(snapshot, last) {
				continue
			}
			last = snapshot
			sub.deliver(func() { emit(snapshot) })
		}
	}
}

func (m *SubscriptionManager) readWithRetry(ctx context.Context, sub *Subscription, read snapshotReader) (interface{}, bool) {
	for {
		snapshot, err := read(ctx)
		if err == nil {
			return snapshot, true
		}
		if sub.cancelled.Load() {
			return nil, false
		}
		m.log.Warnf("Failed to refresh subscription %s on %s, retrying in %v: %+v", sub.id, sub.label, m.retryBackoff, err)

		timer := time.NewTimer(m.retryBackoff)
		select {
		case <-sub.stop:
			timer.Stop()
			return nil, false
		case <-timer.C:
		}
	}
}

// relevant reports whether change can affect a subscription. Document
// subscriptions ignore writes to other documents of the collection.
func relevant(change entity.Change, documentID string) bool {
	if documentID == "" || change.Kind == entity.ChangeResync {
		return true
	}
	return change.DocumentID == documentID
}

// drain discards queued changes; the next read covers all of them
func drain(changes <-chan entity.Change) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
