package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
)

// Publisher hands typed payloads to the bus. It knows nothing about event
// semantics; callers publish strictly after their local mutation commits,
// so a publish failure never rolls anything back — it surfaces to the
// caller as a transient fault and downstream reconciliation is expected.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish wraps data in an envelope and appends it to the stream with
// persistent storage semantics (stream entries survive broker restarts).
func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalid, "failed to marshal event payload", err)
	}

	envelope, err := json.Marshal(Envelope{
		Type:          eventType,
		OccurredAt:    time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Data:          payload,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInvalid, "failed to marshal event envelope", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event":        envelope,
			"content-type": "application/json",
		},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return apperr.Wrap(apperr.KindTransient, "failed to publish "+eventType+" event", err)
	}
	return nil
}
