package propagation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"planwise/internal/domain/models/planning"
	planningSvc "planwise/internal/domain/services/planning"
)

// DefaultChannel is the Redis pub/sub channel document events travel on.
const DefaultChannel = "planwise:document-events"

const (
	publishTimeout = 2 * time.Second

	// PublishQueueSize bounds the events waiting for Redis
	PublishQueueSize = 256
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// RedisPublisher forwards events to other processes over Redis pub/sub.
// Publish only queues; Run sends in order. Failures and overflow are logged,
// not returned: observers reconcile on their next read.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	queue   chan []byte
	logger  *slog.Logger
}

// NewRedisPublisher creates a publisher on channel (DefaultChannel when empty)
func NewRedisPublisher(client *redis.Client, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		queue:   make(chan []byte, PublishQueueSize),
		logger:  logger,
	}
}

var _ planningSvc.EventPublisher = (*RedisPublisher)(nil)

// Publish serializes the event and queues it without waiting on Redis.
// The event is dropped when the queue is full.
func (p *RedisPublisher) Publish(_ context.Context, event *planning.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", "event_type", event.Type, "error", err)
		return
	}

	select {
	case p.queue <- payload:
	default:
		p.logger.Warn("redis publish queue full, dropping event",
			"channel", p.channel,
			"event_type", event.Type,
			"document_id", event.DocumentID,
		)
	}
}

// Run sends queued events until ctx is done, then flushes what is already
// queued within publishTimeout. Events queued after Run returns are not sent.
func (p *RedisPublisher) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			p.flush()
			return nil
		}
		select {
		case <-ctx.Done():
		case payload := <-p.queue:
			sendCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			p.send(sendCtx, payload)
			cancel()
		}
	}
}

func (p *RedisPublisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	for {
		select {
		case payload := <-p.queue:
			if ctx.Err() != nil {
				p.logger.Warn("dropping queued events on shutdown", "channel", p.channel, "dropped", len(p.queue)+1)
				for len(p.queue) > 0 {
					<-p.queue
				}
				return
			}
			p.send(ctx, payload)
		default:
			return
		}
	}
}

func (p *RedisPublisher) send(ctx context.Context, payload []byte) {
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("failed to publish event to redis", "channel", p.channel, "error", err)
	}
}

// Relay re-publishes events from other processes into the local registry.
// Events carrying this process's origin are skipped; the registry already
// saw them.
type Relay struct {
	client   *redis.Client
	channel  string
	origin   string
	registry *Registry
	logger   *slog.Logger
}

// NewRelay creates a relay feeding registry from channel (DefaultChannel when empty)
func NewRelay(client *redis.Client, channel, origin string, registry *Registry, logger *slog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		client:   client,
		channel:  channel,
		origin:   origin,
		registry: registry,
		logger:   logger,
	}
}

// Listen subscribes to the channel and waits for Redis to confirm
func (r *Relay) Listen(ctx context.Context) (*redis.PubSub, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	return sub, nil
}

// Serve relays messages from sub until ctx is done or the subscription closes
func (r *Relay) Serve(ctx context.Context, sub *redis.PubSub) error {
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

// Run listens and serves until ctx is done
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.Listen(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	r.logger.Info("event relay listening", "channel", r.channel, "origin", r.origin)
	return r.Serve(ctx, sub)
}

func (r *Relay) handle(ctx context.Context, payload string) {
	var event planning.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		r.logger.Warn("discarding malformed event", "channel", r.channel, "error", err)
		return
	}
	if event.Origin == r.origin {
		return
	}
	r.registry.Publish(ctx, &event)
}
