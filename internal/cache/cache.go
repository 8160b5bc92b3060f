package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Record Cache Operations

// SetRecord caches a record
func (c *Cache) SetRecord(ctx context.Context, record *models.Record, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := fmt.Sprintf("record:%s", record.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetRecord retrieves a record from cache. A miss returns nil, nil.
func (c *Cache) GetRecord(ctx context.Context, recordID string) (*models.Record, error) {
	key := fmt.Sprintf("record:%s", recordID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheAccess("record", false)
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get record from cache: %w", err)
	}
	metrics.RecordCacheAccess("record", true)

	var record models.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &record, nil
}

// DeleteRecord removes a record from cache
func (c *Cache) DeleteRecord(ctx context.Context, recordID string) error {
	key := fmt.Sprintf("record:%s", recordID)
	return c.client.Del(ctx, key).Err()
}

// Audio Session Operations

// GetMuted reads the shared muted flag of an audio session and whether it
// has been set
func (c *Cache) GetMuted(ctx context.Context, sessionID string) (bool, bool, error) {
	key := fmt.Sprintf("session:muted:%s", sessionID)
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheAccess("session", false)
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get muted flag: %w", err)
	}
	metrics.RecordCacheAccess("session", true)

	muted, err := strconv.ParseBool(val)
	if err != nil {
		return false, false, fmt.Errorf("failed to parse muted flag: %w", err)
	}
	return muted, true, nil
}

// SetMuted writes the shared muted flag of an audio session
func (c *Cache) SetMuted(ctx context.Context, sessionID string, muted bool) error {
	key := fmt.Sprintf("session:muted:%s", sessionID)
	if err := c.client.Set(ctx, key, strconv.FormatBool(muted), 0).Err(); err != nil {
		return fmt.Errorf("failed to set muted flag: %w", err)
	}
	return nil
}

// Locking Operations for Distributed Systems

// AcquireLock attempts to acquire a distributed lock
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.Del(ctx, key).Err()
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
