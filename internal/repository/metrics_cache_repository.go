package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"postcraft-go/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

// MetricsCacheRepository 缓存外部平台数据，每个 (user, platform, resource) 一条。
// 除 TTL 缓存外还保留一份 last-known-good 副本，供实时调用失败时兜底。
type MetricsCacheRepository interface {
	// Get 只在 now <= expiresAt 时返回缓存，过期时删除并返回 nil。
	Get(ctx context.Context, userID uint, platform model.Platform, resource string) (*model.CachedMetrics, error)
	Set(ctx context.Context, userID uint, platform model.Platform, resource string, payload json.RawMessage, ttl time.Duration) error
	// GetLastKnown 返回最近一次写入的数据，不论是否过期。
	GetLastKnown(ctx context.Context, userID uint, platform model.Platform, resource string) (*model.CachedMetrics, error)
	Invalidate(ctx context.Context, userID uint, platform model.Platform, resource string) error
}

type redisMetricsCacheRepository struct {
	redisClient    *redis.Client
	staleRetention time.Duration
	now            func() time.Time
}

// NewMetricsCacheRepository 创建 Redis 实现；staleRetention 决定 last-known-good 副本保留多久。
func NewMetricsCacheRepository(redisClient *redis.Client, staleRetention time.Duration) MetricsCacheRepository {
	if staleRetention <= 0 {
		staleRetention = 7 * 24 * time.Hour
	}
	return &redisMetricsCacheRepository{redisClient: redisClient, staleRetention: staleRetention, now: time.Now}
}

func metricsKey(userID uint, platform model.Platform, resource string) string {
	return fmt.Sprintf("metrics:%d:%s:%s", userID, platform, resource)
}

func lastKnownKey(userID uint, platform model.Platform, resource string) string {
	return fmt.Sprintf("metrics:lkg:%d:%s:%s", userID, platform, resource)
}

func (r *redisMetricsCacheRepository) Get(ctx context.Context, userID uint, platform model.Platform, resource string) (*model.CachedMetrics, error) {
	key := metricsKey(userID, platform, resource)
	entry, err := r.load(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}
	if entry.Expired(r.now()) {
		if err := r.redisClient.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("failed to evict expired metrics: %w", err)
		}
		return nil, nil
	}
	return entry, nil
}

func (r *redisMetricsCacheRepository) Set(ctx context.Context, userID uint, platform model.Platform, resource string, payload json.RawMessage, ttl time.Duration) error {
	now := r.now()
	entry := model.CachedMetrics{
		Platform:       platform,
		Resource:       resource,
		MetricsPayload: payload,
		CachedAt:       now,
		ExpiresAt:      now.Add(ttl),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cached metrics: %w", err)
	}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, metricsKey(userID, platform, resource), data, ttl)
		pipe.Set(ctx, lastKnownKey(userID, platform, resource), data, r.staleRetention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store cached metrics: %w", err)
	}
	return nil
}

func (r *redisMetricsCacheRepository) GetLastKnown(ctx context.Context, userID uint, platform model.Platform, resource string) (*model.CachedMetrics, error) {
	return r.load(ctx, lastKnownKey(userID, platform, resource))
}

// Invalidate 删除缓存与 last-known-good 副本，例如账号断开连接时。
func (r *redisMetricsCacheRepository) Invalidate(ctx context.Context, userID uint, platform model.Platform, resource string) error {
	return r.redisClient.Del(ctx, metricsKey(userID, platform, resource), lastKnownKey(userID, platform, resource)).Err()
}

func (r *redisMetricsCacheRepository) load(ctx context.Context, key string) (*model.CachedMetrics, error) {
	data, err := r.redisClient.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached metrics: %w", err)
	}
	var entry model.CachedMetrics
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached metrics: %w", err)
	}
	return &entry, nil
}
