package service

import (
	"context"
	"io"
	"testing"
	"time"

	"telemed-backend/internal/domain/entity"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func receive(t *testing.T, ch <-chan entity.Change) entity.Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
	return entity.Change{}
}

func TestMemoryChangeFeed_DeliversPerCollection(t *testing.T) {
	feed := NewMemoryChangeFeed(4)
	appts, stopAppts := feed.Listen(entity.CollectionAppointments)
	defer stopAppts()
	users, stopUsers := feed.Listen(entity.CollectionUsers)
	defer stopUsers()

	change := entity.Change{Collection: entity.CollectionAppointments, DocumentID: "a1", Kind: entity.ChangeCreated}
	if err := feed.Publish(context.Background(), change); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := receive(t, appts); got != change {
		t.Errorf("got %+v, want %+v", got, change)
	}
	select {
	case c := <-users:
		t.Fatalf("users listener got unrelated change %+v", c)
	default:
	}
}

func TestMemoryChangeFeed_FullBufferDoesNotBlock(t *testing.T) {
	feed := NewMemoryChangeFeed(1)
	ch, stop := feed.Listen(entity.CollectionUsers)
	defer stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			feed.Publish(context.Background(), entity.Change{Collection: entity.CollectionUsers, Kind: entity.ChangeUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow listener")
	}
	receive(t, ch)
}

func TestMemoryChangeFeed_StopListeningClosesChannel(t *testing.T) {
	feed := NewMemoryChangeFeed(1)
	ch, stop := feed.Listen(entity.CollectionUsers)
	stop()
	stop()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if got := feed.hub.collections(); len(got) != 0 {
		t.Errorf("listener not removed: %v", got)
	}
}

func TestMemoryChangeFeed_Resync(t *testing.T) {
	feed := NewMemoryChangeFeed(2)
	a, stopA := feed.Listen(entity.CollectionAppointments)
	defer stopA()
	b, stopB := feed.Listen(entity.CollectionChatRooms)
	defer stopB()

	feed.Resync()

	if got := receive(t, a); got.Kind != entity.ChangeResync || got.Collection != entity.CollectionAppointments {
		t.Errorf("appointments got %+v", got)
	}
	if got := receive(t, b); got.Kind != entity.ChangeResync || got.Collection != entity.CollectionChatRooms {
		t.Errorf("chatRooms got %+v", got)
	}
}

func TestRedisChangeFeed_Dispatch(t *testing.T) {
	f := &RedisChangeFeed{
		log:    quietLogger(),
		prefix: DefaultChannelPrefix,
		hub:    newChangeHub(2),
	}
	room := entity.MessagesCollection("a~b")
	ch, stop := f.Listen(room)
	defer stop()

	f.dispatch(&redis.Message{Channel: f.channel(room), Payload: "not json"})
	f.dispatch(&redis.Message{
		Channel: f.channel(room),
		Payload: `{"collection":"chatRooms/a~b/messages","document_id":"m1","kind":"created"}`,
	})

	got := receive(t, ch)
	if got.DocumentID != "m1" || got.Kind != entity.ChangeCreated {
		t.Errorf("got %+v", got)
	}
}

func TestRedisChangeFeed_DispatchFallsBackToChannelName(t *testing.T) {
	f := &RedisChangeFeed{
		log:    quietLogger(),
		prefix: "test",
		hub:    newChangeHub(2),
	}
	ch, stop := f.Listen(entity.CollectionUsers)
	defer stop()

	f.dispatch(&redis.Message{Channel: "test:users", Payload: `{"kind":"updated"}`})

	if got := receive(t, ch); got.Collection != entity.CollectionUsers {
		t.Errorf("got %+v", got)
	}
}
