package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
)

// Handler processes one delivered envelope. Returning nil acknowledges the
// message. Returning a Poison-kinded error acknowledges and drops it (a
// malformed message must not block the queue). Any other error leaves the
// message pending so the reclaim loop redelivers it.
type Handler func(ctx context.Context, env Envelope) error

// Subscriber is a long-lived consumer-group reader on one stream. It gives
// at-least-once delivery: entries are acknowledged only after the handler
// succeeds, failed entries are redelivered after minIdle, and entries that
// exhaust maxDeliveries are moved to the paired dead-letter stream.
type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	handler       Handler
	acks          acker
	batchSize     int64
	blockDuration time.Duration
	minIdle       time.Duration
	maxDeliveries int64
}

// acker settles an entry's fate on the broker: acknowledge it, or move it
// to the dead-letter stream. Split out so the dispatch logic can be tested
// without a broker.
type acker interface {
	ack(ctx context.Context, id string)
	deadLetter(ctx context.Context, message redis.XMessage, deliveries int64)
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	// MinIdle is how long a pending (unacked) entry sits before redelivery.
	MinIdle time.Duration
	// MaxDeliveries bounds retries; after that the entry is dead-lettered.
	MaxDeliveries int64
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.MinIdle == 0 {
		config.MinIdle = 30 * time.Second
	}
	if config.MaxDeliveries == 0 {
		config.MaxDeliveries = 5
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		acks:          &streamAcker{client: client, stream: config.Stream, group: config.Group},
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		minIdle:       config.MinIdle,
		maxDeliveries: config.MaxDeliveries,
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Printf("Subscriber started: stream=%s, group=%s, consumer=%s", s.stream, s.group, s.consumer)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Subscriber stopping: %s", s.stream)
			return ctx.Err()
		default:
			if err := s.readNew(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Error reading messages from %s: %v", s.stream, err)
				time.Sleep(time.Second)
			}
			if err := s.reclaimPending(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Error reclaiming pending messages on %s: %v", s.stream, err)
			}
		}
	}
}

// readNew delivers never-before-seen entries to this consumer.
func (s *Subscriber) readNew(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			s.dispatch(ctx, message)
		}
	}
	return nil
}

// reclaimPending redelivers entries another (or this) consumer failed to
// acknowledge within minIdle. Entries over the delivery budget are copied
// to the dead-letter stream and acknowledged so they cannot livelock the
// queue.
func (s *Subscriber) reclaimPending(ctx context.Context) error {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  s.group,
		Idle:   s.minIdle,
		Start:  "-",
		End:    "+",
		Count:  s.batchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to inspect pending entries: %w", err)
	}

	for _, entry := range pending {
		claimed, err := s.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.minIdle,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue // claimed by another replica in the meantime
		}
		s.settleClaimed(ctx, claimed[0], entry.RetryCount)
	}
	return nil
}

// settleClaimed decides what happens to a reclaimed entry: past the
// delivery budget it is dead-lettered, otherwise it gets another attempt.
func (s *Subscriber) settleClaimed(ctx context.Context, message redis.XMessage, deliveries int64) {
	if deliveries >= s.maxDeliveries {
		s.acks.deadLetter(ctx, message, deliveries)
		return
	}
	s.dispatch(ctx, message)
}

// dispatch decodes and runs the handler for one entry, deciding its fate:
// success and poison both acknowledge, anything else stays pending.
func (s *Subscriber) dispatch(ctx context.Context, message redis.XMessage) {
	env, err := decodeEnvelope(message)
	if err != nil {
		// Poison at the envelope level: ack and drop so the queue keeps moving.
		log.Printf("Dropping poison message %s on %s: %v", message.ID, s.stream, err)
		s.acks.ack(ctx, message.ID)
		return
	}

	if err := s.handler(ctx, env); err != nil {
		if apperr.IsPoison(err) {
			log.Printf("Dropping poison %s event %s on %s: %v", env.Type, message.ID, s.stream, err)
			s.acks.ack(ctx, message.ID)
			return
		}
		// Leave pending; the reclaim loop redelivers after minIdle.
		log.Printf("Failed to process message %s (%s) on %s: %v", message.ID, env.Type, s.stream, err)
		return
	}

	s.acks.ack(ctx, message.ID)
}

// streamAcker is the broker-backed acker used outside tests.
type streamAcker struct {
	client *redis.Client
	stream string
	group  string
}

func (a *streamAcker) ack(ctx context.Context, id string) {
	if err := a.client.XAck(ctx, a.stream, a.group, id).Err(); err != nil {
		log.Printf("Failed to ACK message %s on %s: %v", id, a.stream, err)
	}
}

// deadLetter copies an exhausted entry to the dead-letter stream, then acks
// the original. Losing the race between copy and ack only duplicates the
// dead letter, never drops it.
func (a *streamAcker) deadLetter(ctx context.Context, message redis.XMessage, deliveries int64) {
	values := map[string]any{
		"origin-stream": a.stream,
		"origin-id":     message.ID,
		"deliveries":    deliveries,
	}
	for k, v := range message.Values {
		values[k] = v
	}
	if err := a.client.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStream(a.stream),
		Values: values,
	}).Err(); err != nil {
		log.Printf("Failed to dead-letter message %s on %s: %v", message.ID, a.stream, err)
		return // keep it pending rather than losing it
	}
	log.Printf("Dead-lettered message %s on %s after %d deliveries", message.ID, a.stream, deliveries)
	a.ack(ctx, message.ID)
}

// decodeEnvelope extracts and parses the envelope from a stream entry.
func decodeEnvelope(message redis.XMessage) (Envelope, error) {
	raw, ok := message.Values["event"].(string)
	if !ok {
		return Envelope{}, fmt.Errorf("entry has no event field")
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope has no event type")
	}
	return env, nil
}

// DecodePayload unmarshals an envelope's payload into v. Consumers treat a
// failure here as poison: the message is structurally broken for its
// routing key and redelivery cannot fix it.
func DecodePayload(env Envelope, v any) error {
	if err := json.Unmarshal(env.Data, v); err != nil {
		return apperr.Poison("failed to unmarshal "+env.Type+" payload", err)
	}
	return nil
}
