// Package cache provides a tiny Redis client wrapper for caching predictions.
// The model is deterministic, so a prediction for a given model artifact and
// feature vector never goes stale; the TTL only bounds memory use.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client for prediction storage
type Cache struct {
	client *redis.Client
}

// New creates a new Cache instance connected to the specified Redis address
// If addr is empty, defaults to localhost:6379
func New(addr string) (*Cache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password by default
		DB:       0,  // Default DB
	})

	// Test connection
	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Cache{client: client}, nil
}

// Key derives a stable cache key from the model path and the exact feature
// vector. Float bits go into the hash directly so 1.0 and 1.0000001 never
// collide.
func Key(modelPath string, values []float32) string {
	h := sha256.New()
	h.Write([]byte(modelPath))
	var buf [4]byte
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	return "prediction:" + hex.EncodeToString(h.Sum(nil))
}

// GetPrediction retrieves a cached prediction. The second return value
// reports whether the key was present.
func (c *Cache) GetPrediction(ctx context.Context, key string) (float32, bool, error) {
	if c.client == nil {
		return 0, false, fmt.Errorf("cache client is nil")
	}

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil // Key does not exist
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get prediction for %s: %w", key, err)
	}

	value, err := strconv.ParseFloat(data, 32)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached prediction for %s: %w", key, err)
	}
	return float32(value), true, nil
}

// SetPrediction stores a prediction with the specified TTL
func (c *Cache) SetPrediction(ctx context.Context, key string, value float32, ttl time.Duration) error {
	if c.client == nil {
		return fmt.Errorf("cache client is nil")
	}

	data := strconv.FormatFloat(float64(value), 'g', -1, 32)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set prediction for %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
