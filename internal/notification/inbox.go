package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "payflow:inbox:"

// Inbox keeps the most recent notifications per recipient, newest first.
type Inbox interface {
	Push(ctx context.Context, recipient string, n Notification) error
	List(ctx context.Context, recipient string, limit int64) ([]Notification, error)
}

type RedisInbox struct {
	client *redis.Client
	size   int64
	ttl    time.Duration
}

func NewRedisInbox(client *redis.Client, size int64, ttl time.Duration) *RedisInbox {
	if size <= 0 {
		size = 50
	}
	return &RedisInbox{client: client, size: size, ttl: ttl}
}

// Connect parses the redis url and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (i *RedisInbox) Push(ctx context.Context, recipient string, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}

	key := keyPrefix + recipient
	pipe := i.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, i.size-1)
	if i.ttl > 0 {
		pipe.Expire(ctx, key, i.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (i *RedisInbox) List(ctx context.Context, recipient string, limit int64) ([]Notification, error) {
	if limit <= 0 || limit > i.size {
		limit = i.size
	}
	items, err := i.client.LRange(ctx, keyPrefix+recipient, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(items))
	for _, item := range items {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MemoryInbox is the process-local inbox used when redis is disabled.
type MemoryInbox struct {
	mu    sync.Mutex
	size  int
	items map[string][]Notification
}

func NewMemoryInbox(size int) *MemoryInbox {
	if size <= 0 {
		size = 50
	}
	return &MemoryInbox{size: size, items: make(map[string][]Notification)}
}

func (i *MemoryInbox) Push(ctx context.Context, recipient string, n Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	list := append([]Notification{n}, i.items[recipient]...)
	if len(list) > i.size {
		list = list[:i.size]
	}
	i.items[recipient] = list
	return nil
}

func (i *MemoryInbox) List(ctx context.Context, recipient string, limit int64) ([]Notification, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	list := i.items[recipient]
	if limit > 0 && int(limit) < len(list) {
		list = list[:limit]
	}
	out := make([]Notification, len(list))
	copy(out, list)
	return out, nil
}
