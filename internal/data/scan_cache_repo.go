package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coachmart/preview-worker/internal/domain/model"
)

const scanCacheKeyPrefix = "preview:scan:"

// ScanCacheRepo stores scanner verdicts in Redis. Keys combine the scanner backend
// namespace with the file's SHA-256 digest.
type ScanCacheRepo struct {
	client redis.UniversalClient
}

// NewScanCacheRepo creates a new ScanCacheRepo with the given Redis client.
func NewScanCacheRepo(client redis.UniversalClient) *ScanCacheRepo {
	return &ScanCacheRepo{client: client}
}

// Get returns the cached verdict, or nil when the digest was never scanned or has expired.
func (r *ScanCacheRepo) Get(ctx context.Context, digest string) (*model.ScanResult, error) {
	if digest == "" {
		return nil, errors.New("digest cannot be empty")
	}

	raw, err := r.client.Get(ctx, scanCacheKeyPrefix+digest).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var result model.ScanResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode cached scan result: %w", err)
	}
	return &result, nil
}

// Set stores a verdict. A zero TTL keeps the key forever.
func (r *ScanCacheRepo) Set(ctx context.Context, digest string, result model.ScanResult, ttl time.Duration) error {
	if digest == "" {
		return errors.New("digest cannot be empty")
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode scan result: %w", err)
	}
	if err := r.client.Set(ctx, scanCacheKeyPrefix+digest, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Health checks the health of the Redis connection.
func (r *ScanCacheRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
