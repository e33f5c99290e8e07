package service

import (
	"context"

	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"
)

// MemoryChangeFeed delivers changes inside a single process. It backs the
// "memory" realtime driver and tests.
type MemoryChangeFeed struct {
	hub *changeHub
}

var _ repository.ChangeFeed = (*MemoryChangeFeed)(nil)

func NewMemoryChangeFeed(buffer int) *MemoryChangeFeed {
	return &MemoryChangeFeed{hub: newChangeHub(buffer)}
}

func (f *MemoryChangeFeed) Publish(ctx context.Context, change entity.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.hub.broadcast(change)
	return nil
}

func (f *MemoryChangeFeed) Listen(collection string) (<-chan entity.Change, func()) {
	return f.hub.listen(collection)
}

// Resync asks every listener to re-read
func (f *MemoryChangeFeed) Resync() {
	f.hub.broadcastAll(entity.ChangeResync)
}

// Stop closes all listener channels
func (f *MemoryChangeFeed) Stop() {
	f.hub.closeAll()
}
