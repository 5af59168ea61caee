package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eaglebank/digibank/shared/logger"
)

type Handler func(ctx context.Context, event Event) error

// StreamClient is the part of the Redis API a Subscriber needs.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
}

// Subscriber consumes one Redis stream through a consumer group. A message is
// acknowledged only after the handler succeeds. Messages left pending for
// longer than MinIdle are claimed and handled again, and a message delivered
// more than MaxDeliveries times is acknowledged and dropped.
type Subscriber struct {
	client        StreamClient
	log           *logger.Logger
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	minIdle       time.Duration
	maxDeliveries int64
	lastClaim     time.Time
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	MinIdle       time.Duration
	MaxDeliveries int64
}

func NewSubscriber(client StreamClient, log *logger.Logger, config SubscriberConfig) *Subscriber {
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
		log:           log.With("component", "Subscriber", "stream", config.Stream),
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		minIdle:       config.MinIdle,
		maxDeliveries: config.MaxDeliveries,
	}
}

// Start blocks until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.log.Info("subscriber started", "group", s.group, "consumer", s.consumer)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("subscriber stopping")
			return ctx.Err()
		default:
			if time.Since(s.lastClaim) >= s.minIdle {
				s.lastClaim = time.Now()
				if err := s.reclaimPending(ctx); err != nil && ctx.Err() == nil {
					s.log.Warn("error reclaiming pending messages", "error", err)
				}
			}
			if err := s.readMessages(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("error reading messages", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (s *Subscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			s.handle(ctx, message)
		}
	}
	return nil
}

// reclaimPending takes over every message of the group that has been pending
// for at least minIdle, including this consumer's own failures.
func (s *Subscriber) reclaimPending(ctx context.Context) error {
	start := "0-0"
	for {
		messages, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.minIdle,
			Start:    start,
			Count:    s.batchSize,
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to claim pending messages: %w", err)
		}

		for _, message := range messages {
			if s.exhausted(ctx, message.ID) {
				s.log.Error("dropping message after repeated failures",
					"id", message.ID, "maxDeliveries", s.maxDeliveries)
				s.ack(ctx, message.ID)
				continue
			}
			s.handle(ctx, message)
		}

		if next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
}

// exhausted reports whether id has been delivered more than maxDeliveries
// times. Lookup errors are treated as not exhausted.
func (s *Subscriber) exhausted(ctx context.Context, id string) bool {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  s.group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return false
	}
	return pending[0].RetryCount > s.maxDeliveries
}

func (s *Subscriber) handle(ctx context.Context, message redis.XMessage) {
	if err := s.processMessage(ctx, message); err != nil {
		s.log.Warn("failed to process message", "id", message.ID, "error", err)
		return
	}
	s.ack(ctx, message.ID)
}

func (s *Subscriber) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		s.log.Warn("failed to ack message", "id", id, "error", err)
	}
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return s.handler(ctx, event)
}

// DecodeRecordChanged extracts the payload of a loan or card change event.
func DecodeRecordChanged(event Event) (RecordChangedEvent, error) {
	var data RecordChangedEvent
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal %s event: %w", event.Type, err)
	}
	if data.MobileNumber == "" {
		return data, fmt.Errorf("%s event without mobileNumber", event.Type)
	}
	return data, nil
}
