// Package queue moves render job messages through a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one render job on the wire. JobID may be empty when an external
// producer enqueues directly; ingress assigns one before processing.
type Message struct {
	JobID      string         `json:"job_id,omitempty"`
	TemplateID string         `json:"template_id"`
	Data       map[string]any `json:"data"`
}

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

// Push enqueues one job message.
func (q *RedisQueue) Push(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.queueName, payload).Err()
}

// Pop blocks until an element exists (BRPOP) or the timeout expires.
// A zero timeout blocks indefinitely. Returns the raw payload; decoding is
// the consumer's concern so a malformed message can be skipped, not fatal.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// TryPop returns the next payload without blocking. ok is false when the
// queue is empty.
func (q *RedisQueue) TryPop(ctx context.Context) (payload string, ok bool, err error) {
	res, err := q.rdb.RPop(ctx, q.queueName).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res, true, nil
}

// Len reports the number of queued messages.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.queueName).Result()
}
