package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultChannelPrefix prefixes every change channel: <prefix>:<collection>
	DefaultChannelPrefix = "telemed:changes"

	// Timeout for individual Redis operations
	redisFeedTimeout = 5 * time.Second
)

// RedisChangeFeed carries document changes between processes over Redis
// pub/sub.
//
// Every change is published on "<prefix>:<collection>" as JSON. A single
// PSubscribe connection receives all of them and fans them out to local
// listeners. go-redis reconnects and resubscribes on its own; any
// subscription confirmation after the first means changes may have been
// missed, so a Resync is broadcast to every listener.
type RedisChangeFeed struct {
	redisClient *redis.Client
	log         *logrus.Logger
	prefix      string
	hub         *changeHub
	pubsub      *redis.PubSub

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

var _ repository.ChangeFeed = (*RedisChangeFeed)(nil)

// NewRedisChangeFeed subscribes to the change channels and starts the
// receive loop. Call Stop() during graceful shutdown.
func NewRedisChangeFeed(ctx context.Context, redisClient *redis.Client, log *logrus.Logger, prefix string, buffer int) (*RedisChangeFeed, error) {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}

	pubsub := redisClient.PSubscribe(ctx, prefix+":*")
	// Wait for the subscription confirmation so no change published after
	// this constructor returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis psubscribe %s: %w", prefix, err)
	}

	f := &RedisChangeFeed{
		redisClient: redisClient,
		log:         log,
		prefix:      prefix,
		hub:         newChangeHub(buffer),
		pubsub:      pubsub,
		stopChan:    make(chan struct{}),
	}

	f.wg.Add(1)
	go f.receiveLoop()

	log.Infof("Redis change feed subscribed to %s:*", prefix)
	return f, nil
}

// Stop closes the subscription and every listener channel.
// Safe to call multiple times.
func (f *RedisChangeFeed) Stop() {
	if f.stopped.CompareAndSwap(false, true) {
		close(f.stopChan)
		if err := f.pubsub.Close(); err != nil {
			f.log.Warnf("Failed to close redis subscription: %+v", err)
		}
		f.wg.Wait()
		f.hub.closeAll()
		f.log.Info("RedisChangeFeed stopped")
	}
}

func (f *RedisChangeFeed) Publish(ctx context.Context, change entity.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, redisFeedTimeout)
	defer cancel()

	if err := f.redisClient.Publish(ctx, f.channel(change.Collection), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", change.Collection, err)
	}
	return nil
}

func (f *RedisChangeFeed) Listen(collection string) (<-chan entity.Change, func()) {
	return f.hub.listen(collection)
}

func (f *RedisChangeFeed) channel(collection string) string {
	return f.prefix + ":" + collection
}

func (f *RedisChangeFeed) receiveLoop() {
	defer f.wg.Done()

	msgs := f.pubsub.ChannelWithSubscriptions()
	for {
		select {
		case <-f.stopChan:
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			switch msg := raw.(type) {
			case *redis.Subscription:
				// The initial confirmation was consumed in the constructor.
				f.log.Warnf("Redis change feed resubscribed to %s, resyncing listeners", msg.Channel)
				f.hub.broadcastAll(entity.ChangeResync)
			case *redis.Message:
				f.dispatch(msg)
			}
		}
	}
}

func (f *RedisChangeFeed) dispatch(msg *redis.Message) {
	var change entity.Change
	if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
		f.log.Warnf("Failed to decode change on %s: %+v", msg.Channel, err)
		return
	}
	if change.Collection == "" {
		change.Collection = strings.TrimPrefix(msg.Channel, f.prefix+":")
	}
	f.hub.broadcast(change)
}
