package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"telemed-backend/internal/service"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// Streamer upgrades stream requests to websockets and feeds them snapshots
type Streamer struct {
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// NewStreamer accepts upgrades from allowOrigin, the same host, or clients
// that send no Origin header. An empty or "*" origin accepts any.
func NewStreamer(allowOrigin string, log *logrus.Logger) *Streamer {
	return &Streamer{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowOrigin),
		},
	}
}

func originChecker(allowOrigin string) func(r *http.Request) bool {
	allowOrigin = strings.TrimSuffix(strings.TrimSpace(allowOrigin), "/")
	if allowOrigin == "" || allowOrigin == "*" {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || strings.EqualFold(origin, allowOrigin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// latest holds the most recent snapshot not yet written. Snapshots carry the
// full state, so an unsent one is simply replaced.
type latest struct {
	mu      sync.Mutex
	value   interface{}
	pending bool
	ready   chan struct{}
}

func newLatest() *latest {
	return &latest{ready: make(chan struct{}, 1)}
}

func (l *latest) put(v interface{}) {
	l.mu.Lock()
	l.value = v
	l.pending = true
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latest) take() (interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.pending {
		return nil, false
	}
	v := l.value
	l.value = nil
	l.pending = false
	return v, true
}

// subscribeFunc opens a subscription whose snapshots are passed to push
type subscribeFunc func(ctx context.Context, push func(interface{})) (*service.Subscription, error)

// serveSnapshots subscribes, upgrades the connection and writes every snapshot
// as a JSON text frame until the client goes away. Subscription errors are
// answered as plain HTTP errors before the upgrade.
func (s *Streamer) serveSnapshots(w http.ResponseWriter, r *http.Request, subscribe subscribeFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshots := newLatest()
	sub, err := subscribe(ctx, snapshots.put)
	if err != nil {
		writeError(w, err, "Failed to open stream")
		return
	}
	defer sub.Cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("Failed to upgrade stream connection: %+v", err)
		return
	}
	defer conn.Close()

	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(streamWriteWait))
			return
		case <-sub.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-snapshots.ready:
			v, ok := snapshots.take()
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(v); err != nil {
				s.log.Debugf("Stream write failed: %v", err)
				return
			}
		}
	}
}
