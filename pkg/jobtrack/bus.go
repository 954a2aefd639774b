package jobtrack

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NoopBus drops every broadcast. Single-instance deployments use it.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, jobs []ClientJob) error { return nil }
func (NoopBus) Subscribe(ctx context.Context, fn func(jobs []ClientJob)) (func(), error) {
	return func() {}, nil
}

// ProcBus is an in-process broadcast channel connecting registries inside
// one process, used by tests and embedded setups. Delivery is asynchronous
// so a publisher holding its registry lock can never deadlock a subscriber.
type ProcBus struct {
	mu   sync.Mutex
	subs map[int]func([]ClientJob)
	next int
}

// NewProcBus constructs an empty bus.
func NewProcBus() *ProcBus {
	return &ProcBus{subs: make(map[int]func([]ClientJob))}
}

func (b *ProcBus) Publish(ctx context.Context, jobs []ClientJob) error {
	b.mu.Lock()
	handlers := make([]func([]ClientJob), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	payload := append([]ClientJob(nil), jobs...)
	for _, fn := range handlers {
		go fn(payload)
	}
	return nil
}

func (b *ProcBus) Subscribe(ctx context.Context, fn func(jobs []ClientJob)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

type busEnvelope struct {
	Origin string      `json:"origin"`
	Jobs   []ClientJob `json:"jobs"`
}

// RedisBus broadcasts the non-terminal set over a redis pub/sub topic so
// separate client processes converge on the same tracked set. Each bus
// instance tags its messages and ignores its own.
type RedisBus struct {
	client  *redis.Client
	channel string
	origin  string
	logger  zerolog.Logger
}

// NewRedisBus builds a bus on the given channel.
func NewRedisBus(client *redis.Client, channel string, logger zerolog.Logger) *RedisBus {
	if channel == "" {
		channel = "jobtrack:active"
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

func (b *RedisBus) Publish(ctx context.Context, jobs []ClientJob) error {
	payload, err := json.Marshal(busEnvelope{Origin: b.origin, Jobs: jobs})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(jobs []ClientJob)) (func(), error) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		for msg := range sub.Channel() {
			var envelope busEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Warn().Err(err).Msg("jobtrack: malformed broadcast dropped")
				continue
			}
			if envelope.Origin == b.origin {
				continue
			}
			fn(envelope.Jobs)
		}
	}()

	return func() { _ = sub.Close() }, nil
}
