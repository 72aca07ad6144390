package service

import (
	"context"
	"fmt"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/log"
	"postcraft-go/pkg/social"
	"time"
)

// 外部平台 API 的端点分类
const (
	EndpointUser     = social.EndpointUser
	EndpointTimeline = social.EndpointTimeline
	EndpointMetrics  = social.EndpointMetrics
)

// RateLimit 是一个窗口内允许的请求数。
type RateLimit struct {
	Requests int64
	Window   time.Duration
}

// DefaultRateLimit 用于未知的 (platform, endpoint) 组合。
var DefaultRateLimit = RateLimit{Requests: 10, Window: 15 * time.Minute}

// DefaultRateLimits 对应各平台公开文档中的限流档位。
var DefaultRateLimits = map[model.Platform]map[string]RateLimit{
	model.PlatformTwitter: {
		EndpointUser:     {Requests: 75, Window: 15 * time.Minute},
		EndpointTimeline: {Requests: 180, Window: 15 * time.Minute},
		EndpointMetrics:  {Requests: 300, Window: 15 * time.Minute},
	},
	model.PlatformInstagram: {
		EndpointUser:     {Requests: 200, Window: time.Hour},
		EndpointTimeline: {Requests: 200, Window: time.Hour},
		EndpointMetrics:  {Requests: 100, Window: time.Hour},
	},
	model.PlatformLinkedIn: {
		EndpointUser:     {Requests: 500, Window: 24 * time.Hour},
		EndpointTimeline: {Requests: 100, Window: 24 * time.Hour},
		EndpointMetrics:  {Requests: 100, Window: 24 * time.Hour},
	},
}

// RateLimitFor 查表，未知组合返回 DefaultRateLimit。
func RateLimitFor(platform model.Platform, endpoint string) RateLimit {
	if byEndpoint, ok := DefaultRateLimits[platform]; ok {
		if limit, ok := byEndpoint[endpoint]; ok {
			return limit
		}
	}
	return DefaultRateLimit
}

// RateLimiter 在调用外部 API 之前判断是否允许，调用之后记录一次请求。
type RateLimiter interface {
	CanRequest(ctx context.Context, userID uint, platform model.Platform, endpoint string) (bool, error)
	RecordRequest(ctx context.Context, userID uint, platform model.Platform, endpoint string) error
}

type rateLimiter struct {
	repo repository.RateLimitRepository
	now  func() time.Time
}

// NewRateLimiter 创建一个新的 RateLimiter 实例。
func NewRateLimiter(repo repository.RateLimitRepository) RateLimiter {
	return &rateLimiter{repo: repo, now: time.Now}
}

// CanRequest 在窗口过期 (now > resetAt) 时视为新窗口直接放行。
func (l *rateLimiter) CanRequest(ctx context.Context, userID uint, platform model.Platform, endpoint string) (bool, error) {
	w, err := l.repo.GetWindow(ctx, userID, platform, endpoint)
	if err != nil {
		return false, err
	}
	if w == nil || w.Expired(l.now()) {
		return true, nil
	}
	return w.RequestCount < RateLimitFor(platform, endpoint).Requests, nil
}

func (l *rateLimiter) RecordRequest(ctx context.Context, userID uint, platform model.Platform, endpoint string) error {
	limit := RateLimitFor(platform, endpoint)
	_, err := l.repo.RecordRequest(ctx, userID, platform, endpoint, l.now(), limit.Window)
	return err
}

// requestGuard 把 RateLimiter 绑定到某个用户和平台，供社交平台客户端在每次上游请求时调用。
type requestGuard struct {
	limiter  RateLimiter
	userID   uint
	platform model.Platform
}

// NewRequestGuard 创建按 (user, platform, endpoint) 计数的 social.RequestGuard。
func NewRequestGuard(limiter RateLimiter, userID uint, platform model.Platform) social.RequestGuard {
	return &requestGuard{limiter: limiter, userID: userID, platform: platform}
}

func (g *requestGuard) Allow(ctx context.Context, endpoint string) error {
	allowed, err := g.limiter.CanRequest(ctx, g.userID, g.platform, endpoint)
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		return social.ErrLocalRateLimited
	}
	return nil
}

func (g *requestGuard) Record(ctx context.Context, endpoint string) {
	if err := g.limiter.RecordRequest(ctx, g.userID, g.platform, endpoint); err != nil {
		log.Warnf("[RateLimiter] 记录请求失败: user=%d platform=%s endpoint=%s err=%v", g.userID, g.platform, endpoint, err)
	}
}
