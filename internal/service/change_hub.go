package service

import (
	"sync"

	"telemed-backend/internal/domain/entity"
)

const defaultListenerBuffer = 16

// changeHub fans changes out to listeners registered per collection. A send
// never blocks: when a listener's buffer is full the change is dropped, which
// is safe because the listener still has an undelivered change queued and will
// re-read after it.
type changeHub struct {
	mu        sync.RWMutex
	listeners map[string]map[*listener]struct{}
	buffer    int
}

type listener struct {
	ch     chan entity.Change
	closed bool
}

func newChangeHub(buffer int) *changeHub {
	if buffer <= 0 {
		buffer = defaultListenerBuffer
	}
	return &changeHub{
		listeners: make(map[string]map[*listener]struct{}),
		buffer:    buffer,
	}
}

func (h *changeHub) listen(collection string) (<-chan entity.Change, func()) {
	l := &listener{ch: make(chan entity.Change, h.buffer)}

	h.mu.Lock()
	if h.listeners[collection] == nil {
		h.listeners[collection] = make(map[*listener]struct{})
	}
	h.listeners[collection][l] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return l.ch, func() {
		once.Do(func() { h.remove(collection, l) })
	}
}

func (h *changeHub) remove(collection string, l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.listeners[collection]; ok {
		delete(set, l)
		if len(set) == 0 {
			delete(h.listeners, collection)
		}
	}
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
}

// broadcast delivers change to the listeners of its collection
func (h *changeHub) broadcast(change entity.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for l := range h.listeners[change.Collection] {
		select {
		case l.ch <- change:
		default:
		}
	}
}

// broadcastAll delivers change to every listener, rewriting the collection
// for each. Used for resyncs.
func (h *changeHub) broadcastAll(kind entity.ChangeKind) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for collection, set := range h.listeners {
		change := entity.Change{Collection: collection, Kind: kind}
		for l := range set {
			select {
			case l.ch <- change:
			default:
			}
		}
	}
}

func (h *changeHub) collections() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.listeners))
	for c := range h.listeners {
		out = append(out, c)
	}
	return out
}

// closeAll closes every listener channel
func (h *changeHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for collection, set := range h.listeners {
		for l := range set {
			if !l.closed {
				l.closed = true
				close(l.ch)
			}
		}
		delete(h.listeners, collection)
	}
}
