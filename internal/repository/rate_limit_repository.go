package repository

import (
	"context"
	"fmt"
	"postcraft-go/internal/model"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitRepository 保存 (user, platform, endpoint) 的请求计数窗口。
type RateLimitRepository interface {
	// GetWindow 返回当前窗口，不存在时返回 nil。
	GetWindow(ctx context.Context, userID uint, platform model.Platform, endpoint string) (*model.RateLimitWindow, error)
	// RecordRequest 原子地记录一次请求：窗口过期则以 count=1 开启新窗口，否则计数 +1。
	RecordRequest(ctx context.Context, userID uint, platform model.Platform, endpoint string, now time.Time, window time.Duration) (*model.RateLimitWindow, error)
}

// KEYS[1]=窗口键 ARGV[1]=now(ms) ARGV[2]=window(ms)
var recordRequestScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local reset = tonumber(redis.call('HGET', KEYS[1], 'reset_at'))
if (not reset) or now > reset then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'window_start', now, 'reset_at', reset)
  redis.call('PEXPIRE', KEYS[1], window * 2)
  return {1, now, reset}
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
local start = tonumber(redis.call('HGET', KEYS[1], 'window_start'))
return {count, start, reset}
`)

type redisRateLimitRepository struct {
	redisClient *redis.Client
}

// NewRateLimitRepository 创建 Redis 实现，窗口更新通过 Lua 脚本保证原子性。
func NewRateLimitRepository(redisClient *redis.Client) RateLimitRepository {
	return &redisRateLimitRepository{redisClient: redisClient}
}

func rateLimitKey(userID uint, platform model.Platform, endpoint string) string {
	return fmt.Sprintf("ratelimit:%d:%s:%s", userID, platform, endpoint)
}

func (r *redisRateLimitRepository) GetWindow(ctx context.Context, userID uint, platform model.Platform, endpoint string) (*model.RateLimitWindow, error) {
	fields, err := r.redisClient.HGetAll(ctx, rateLimitKey(userID, platform, endpoint)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit window: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	count, _ := strconv.ParseInt(fields["count"], 10, 64)
	start, _ := strconv.ParseInt(fields["window_start"], 10, 64)
	reset, _ := strconv.ParseInt(fields["reset_at"], 10, 64)
	return &model.RateLimitWindow{
		Platform:     platform,
		Endpoint:     endpoint,
		RequestCount: count,
		WindowStart:  time.UnixMilli(start),
		ResetAt:      time.UnixMilli(reset),
	}, nil
}

func (r *redisRateLimitRepository) RecordRequest(ctx context.Context, userID uint, platform model.Platform, endpoint string, now time.Time, window time.Duration) (*model.RateLimitWindow, error) {
	res, err := recordRequestScript.Run(ctx, r.redisClient,
		[]string{rateLimitKey(userID, platform, endpoint)},
		now.UnixMilli(), window.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to record request: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", res)
	}
	nums := make([]int64, 3)
	for i, v := range vals {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected rate limit script value: %v", v)
		}
		nums[i] = n
	}
	return &model.RateLimitWindow{
		Platform:     platform,
		Endpoint:     endpoint,
		RequestCount: nums[0],
		WindowStart:  time.UnixMilli(nums[1]),
		ResetAt:      time.UnixMilli(nums[2]),
	}, nil
}
