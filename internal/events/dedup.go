package events

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// markerTTL covers any realistic redelivery window from a consumer group,
// including dead-letter replays.
const markerTTL = 72 * time.Hour

// ProcessedStore records which event-carried identities a consumer has
// already applied. It backs the idempotency of projections that would
// otherwise double-count under at-least-once delivery.
type ProcessedStore struct {
	client *redis.Client
	prefix string
}

// NewProcessedStore creates a marker store namespaced by prefix, e.g.
// "customer-summary:txn:". Each consumer group uses its own prefix so one
// service's markers never suppress another's projection.
func NewProcessedStore(client *redis.Client, prefix string) *ProcessedStore {
	return &ProcessedStore{client: client, prefix: prefix}
}

// Seen reports whether id was already processed.
func (p *ProcessedStore) Seen(ctx context.Context, id string) bool {
	val, err := p.client.Exists(ctx, p.prefix+id).Result()
	return err == nil && val > 0
}

// Mark records id as processed. Failures are logged, not returned: a lost
// marker only means one redundant (idempotent) reapplication later.
func (p *ProcessedStore) Mark(ctx context.Context, id string) {
	if err := p.client.Set(ctx, p.prefix+id, "1", markerTTL).Err(); err != nil {
		log.Printf("Failed to mark %s%s as processed: %v", p.prefix, id, err)
	}
}
