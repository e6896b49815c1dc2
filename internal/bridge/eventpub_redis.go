package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisPublishTimeout = 2 * time.Second
	redisQueueSize      = 256
)

// RedisPublisher fans lifecycle events out on a Redis pub/sub channel.
// Publish never blocks: events are queued and sent by a single worker; when
// the queue is full the event is dropped and counted.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewRedisPublisher starts the publishing worker. Call Close to flush and stop it.
func NewRedisPublisher(client redis.UniversalClient, channel string, log zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = "modelbridge.events"
	}
	p := &RedisPublisher{
		client:  client,
		channel: channel,
		log:     log,
		queue:   make(chan Event, redisQueueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

type redisEvent struct {
	Name      string         `json:"name"`
	SessionID string         `json:"session_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	TS        int64          `json:"ts_unix_ms"`
}

func encodeEvent(e Event, now time.Time) ([]byte, error) {
	return json.Marshal(redisEvent{Name: e.Name, SessionID: e.SessionID, Fields: e.Fields, TS: now.UnixMilli()})
}

func (p *RedisPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		eventsDroppedTotal.Inc()
	}
}

func (p *RedisPublisher) run() {
	defer p.wg.Done()
	for e := range p.queue {
		payload, err := encodeEvent(e, time.Now())
		if err != nil {
			p.log.Error().Err(err).Str("event", e.Name).Msg("encode event")
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
		err = p.client.Publish(ctx, p.channel, payload).Err()
		cancel()
		if err != nil {
			eventsDroppedTotal.Inc()
			p.log.Warn().Err(err).Str("event", e.Name).Msg("redis publish failed")
		}
	}
}

// Close stops accepting events, drains the queue and waits for the worker.
func (p *RedisPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
