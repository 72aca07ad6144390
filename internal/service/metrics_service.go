package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/log"
	"postcraft-go/pkg/social"
	"time"
)

// MetricsSource 说明结果来自哪里。
type MetricsSource string

const (
	SourceCache   MetricsSource = "cache"
	SourceLive    MetricsSource = "live"
	SourceStale   MetricsSource = "stale"
	SourceDefault MetricsSource = "default"
)

// 缓存中的资源类型
const (
	resourceMetrics = "metrics"
	resourceProfile = "profile"
	resourcePosts   = "posts"
)

// count 未指定时取的帖子数
const defaultPostCount = 10

// MetricsResult 是展示用的外部平台数据。Source 为 default 时 Data 是零值。
type MetricsResult[T any] struct {
	Platform          model.Platform `json:"platform"`
	Data              T              `json:"data"`
	Source            MetricsSource  `json:"source"`
	CachedAt          *time.Time     `json:"cachedAt,omitempty"`
	ReconnectRequired bool           `json:"reconnectRequired"`
}

// ClientFactory 用访问令牌为某个平台创建客户端，guard 对客户端发出的每个上游请求限流。
type ClientFactory func(platform model.Platform, accessToken string, guard social.RequestGuard) (social.Client, error)

// MetricsService 读取外部平台数据：先读缓存，再按限流调用实时接口，失败时回落到旧缓存，最后返回零值。
// 这些方法从不返回错误，外部数据只用于展示。
type MetricsService interface {
	GetMetrics(ctx context.Context, userID uint, platform model.Platform, forceRefresh bool) MetricsResult[social.Metrics]
	GetProfile(ctx context.Context, userID uint, platform model.Platform, forceRefresh bool) MetricsResult[social.Profile]
	GetRecentPosts(ctx context.Context, userID uint, platform model.Platform, count int, forceRefresh bool) MetricsResult[[]social.Post]
}

type metricsService struct {
	cache    repository.MetricsCacheRepository
	accounts repository.SocialAccountRepository
	limiter  RateLimiter
	clients  ClientFactory
	ttl      time.Duration
}

// NewMetricsService 创建一个新的 MetricsService 实例。
func NewMetricsService(cache repository.MetricsCacheRepository, accounts repository.SocialAccountRepository, limiter RateLimiter, clients ClientFactory, ttl time.Duration) MetricsService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &metricsService{cache: cache, accounts: accounts, limiter: limiter, clients: clients, ttl: ttl}
}

func (s *metricsService) GetMetrics(ctx context.Context, userID uint, platform model.Platform, forceRefresh bool) MetricsResult[social.Metrics] {
	return fetchThroughCache(ctx, s, userID, platform, resourceMetrics, forceRefresh, social.Metrics{},
		func(ctx context.Context, c social.Client) (social.Metrics, error) {
			m, err := c.GetMetrics(ctx)
			if err != nil {
				return social.Metrics{}, err
			}
			return *m, nil
		})
}

func (s *metricsService) GetProfile(ctx context.Context, userID uint, platform model.Platform, forceRefresh bool) MetricsResult[social.Profile] {
	return fetchThroughCache(ctx, s, userID, platform, resourceProfile, forceRefresh, social.Profile{},
		func(ctx context.Context, c social.Client) (social.Profile, error) {
			p, err := c.GetUserData(ctx)
			if err != nil {
				return social.Profile{}, err
			}
			return *p, nil
		})
}

func (s *metricsService) GetRecentPosts(ctx context.Context, userID uint, platform model.Platform, count int, forceRefresh bool) MetricsResult[[]social.Post] {
	if count <= 0 {
		count = defaultPostCount
	}
	// 不同 count 的结果分开缓存
	resource := fmt.Sprintf("%s:%d", resourcePosts, count)
	res := fetchThroughCache(ctx, s, userID, platform, resource, forceRefresh, []social.Post{},
		func(ctx context.Context, c social.Client) ([]social.Post, error) {
			return c.GetRecentPosts(ctx, count)
		})
	if res.Data == nil {
		res.Data = []social.Post{}
	}
	if len(res.Data) > count {
		res.Data = res.Data[:count]
	}
	return res
}

// fetchThroughCache 是三个读取方法共用的缓存-实时-旧缓存-零值流程。
func fetchThroughCache[T any](
	ctx context.Context,
	s *metricsService,
	userID uint,
	platform model.Platform,
	resource string,
	forceRefresh bool,
	zero T,
	live func(context.Context, social.Client) (T, error),
) MetricsResult[T] {
	result := MetricsResult[T]{Platform: platform, Data: zero, Source: SourceDefault}

	if !forceRefresh {
		cached, err := s.cache.Get(ctx, userID, platform, resource)
		if err != nil {
			log.Warnf("[MetricsService] 读取缓存失败: user=%d platform=%s resource=%s err=%v", userID, platform, resource, err)
		} else if cached != nil && decodeInto(cached, &result) {
			result.Source = SourceCache
			return result
		}
	}

	data, err := fetchLive(ctx, s, userID, platform, live)
	if err == nil {
		payload, marshalErr := json.Marshal(data)
		if marshalErr == nil {
			if err := s.cache.Set(ctx, userID, platform, resource, payload, s.ttl); err != nil {
				log.Warnf("[MetricsService] 写入缓存失败: user=%d platform=%s err=%v", userID, platform, err)
			}
		}
		now := time.Now().UTC()
		result.Data = data
		result.Source = SourceLive
		result.CachedAt = &now
		return result
	}
	if errors.Is(err, social.ErrAuthInvalid) {
		result.ReconnectRequired = true
	}
	log.Infof("[MetricsService] 实时数据不可用，尝试旧缓存: user=%d platform=%s resource=%s reason=%v", userID, platform, resource, err)

	stale, lkgErr := s.cache.GetLastKnown(ctx, userID, platform, resource)
	if lkgErr != nil {
		log.Warnf("[MetricsService] 读取旧缓存失败: user=%d platform=%s err=%v", userID, platform, lkgErr)
	}
	if stale != nil && decodeInto(stale, &result) {
		result.Source = SourceStale
		return result
	}
	return result
}

var errNoAccount = errors.New("no connected account")

// fetchLive 只在账号已连接时调用实时接口。客户端的每个上游请求都单独经过限流：
// 发出前检查窗口，发出后立即记录一次。
func fetchLive[T any](
	ctx context.Context,
	s *metricsService,
	userID uint,
	platform model.Platform,
	live func(context.Context, social.Client) (T, error),
) (T, error) {
	var zero T
	if s.accounts == nil || s.clients == nil {
		return zero, errNoAccount
	}
	account, err := s.accounts.FindActive(ctx, userID, platform)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", errNoAccount, err)
	}

	var guard social.RequestGuard
	if s.limiter != nil {
		guard = NewRequestGuard(s.limiter, userID, platform)
	}
	client, err := s.clients(platform, account.AccessToken, guard)
	if err != nil {
		return zero, err
	}
	data, liveErr := live(ctx, client)
	if liveErr != nil {
		if errors.Is(liveErr, social.ErrAuthInvalid) {
			if err := s.accounts.MarkRevoked(ctx, userID, platform); err != nil {
				log.Warnf("[MetricsService] 标记账号失效失败: user=%d platform=%s err=%v", userID, platform, err)
			}
		}
		return zero, liveErr
	}
	return data, nil
}

func decodeInto[T any](cached *model.CachedMetrics, result *MetricsResult[T]) bool {
	var data T
	if err := json.Unmarshal(cached.MetricsPayload, &data); err != nil {
		log.Warnf("[MetricsService] 缓存数据损坏: platform=%s resource=%s err=%v", cached.Platform, cached.Resource, err)
		return false
	}
	cachedAt := cached.CachedAt
	result.Data = data
	result.CachedAt = &cachedAt
	return true
}
