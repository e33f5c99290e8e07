package repository

import (
	"context"

	"telemed-backend/internal/domain/entity"
)

// ChangeFeed carries write notifications from stores to live subscriptions
type ChangeFeed interface {
	Publish(ctx context.Context, change entity.Change) error
	// Listen returns a channel of changes for collection and a function that
	// stops listening. Delivery is lossy under back-pressure: a listener that
	// already has a pending change may miss the next one, so listeners must
	// treat any change as "re-read".
	Listen(collection string) (<-chan entity.Change, func())
}
