package realtime

import (
	"log"

	"github.com/noteduco342/LectureQA-backend/internal/cache"
)

// Transport carries events between processes. The bus works without one
// (events then stay in-process), which is also how tests run.
type Transport interface {
	Publish(channel string, payload []byte) error
	Subscribe(channel string, handler func(payload []byte)) (CancelFunc, error)
}

// RedisTransport backs the bus with Redis pub/sub.
type RedisTransport struct {
	redis *cache.RedisCache
}

func NewRedisTransport(redis *cache.RedisCache) *RedisTransport {
	return &RedisTransport{redis: redis}
}

func (t *RedisTransport) Publish(channel string, payload []byte) error {
	return t.redis.Publish(channel, payload)
}

func (t *RedisTransport) Subscribe(channel string, handler func(payload []byte)) (CancelFunc, error) {
	sub := t.redis.Subscribe(channel)
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(t.redis.Context()); err != nil {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		for msg := range sub.Channel() {
			handler([]byte(msg.Payload))
		}
	}()

	return func() {
		if err := sub.Close(); err != nil {
			log.Printf("Error closing subscription on %s: %v", channel, err)
		}
	}, nil
}
