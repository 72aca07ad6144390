package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/social"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeAccounts struct {
	missing bool
	revoked []model.Platform
}

func (f *fakeAccounts) FindActive(ctx context.Context, userID uint, platform model.Platform) (*model.SocialAccount, error) {
	if f.missing {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.SocialAccount{UserID: userID, Platform: string(platform), AccessToken: "tok"}, nil
}

func (f *fakeAccounts) MarkRevoked(ctx context.Context, userID uint, platform model.Platform) error {
	f.revoked = append(f.revoked, platform)
	return nil
}

// fakeSocialClient 模拟真实客户端的请求次数：GetMetrics 和 GetRecentPosts 各发两次上游请求。
type fakeSocialClient struct {
	platform model.Platform
	metrics  social.Metrics
	posts    []social.Post
	err      error
	calls    int
	guard    social.RequestGuard
}

func (c *fakeSocialClient) request(ctx context.Context, endpoint string) error {
	if c.guard != nil {
		if err := c.guard.Allow(ctx, endpoint); err != nil {
			return err
		}
		defer c.guard.Record(ctx, endpoint)
	}
	c.calls++
	return c.err
}

func (c *fakeSocialClient) Platform() model.Platform { return c.platform }

func (c *fakeSocialClient) GetUserData(ctx context.Context) (*social.Profile, error) {
	if err := c.request(ctx, social.EndpointUser); err != nil {
		return nil, err
	}
	return &social.Profile{ID: "1", Username: "jane", Followers: c.metrics.Followers}, nil
}

func (c *fakeSocialClient) GetMetrics(ctx context.Context) (*social.Metrics, error) {
	if _, err := c.GetUserData(ctx); err != nil {
		return nil, err
	}
	if err := c.request(ctx, social.EndpointTimeline); err != nil {
		return nil, err
	}
	m := c.metrics
	return &m, nil
}

func (c *fakeSocialClient) GetRecentPosts(ctx context.Context, count int) ([]social.Post, error) {
	if _, err := c.GetUserData(ctx); err != nil {
		return nil, err
	}
	if err := c.request(ctx, social.EndpointTimeline); err != nil {
		return nil, err
	}
	posts := c.posts
	if len(posts) > count {
		posts = posts[:count]
	}
	return posts, nil
}

type fakeLimiter struct {
	mu      sync.Mutex
	allow   bool
	records int
	byPoint map[string]int
}

func (l *fakeLimiter) CanRequest(ctx context.Context, userID uint, platform model.Platform, endpoint string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allow, nil
}

func (l *fakeLimiter) RecordRequest(ctx context.Context, userID uint, platform model.Platform, endpoint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records++
	if l.byPoint == nil {
		l.byPoint = map[string]int{}
	}
	l.byPoint[endpoint]++
	return nil
}

type metricsFixture struct {
	svc      MetricsService
	client   *fakeSocialClient
	accounts *fakeAccounts
	limiter  *fakeLimiter
}

func newMetricsFixture(t *testing.T) *metricsFixture {
	t.Helper()
	f := &metricsFixture{
		client:   &fakeSocialClient{platform: model.PlatformTwitter, metrics: social.Metrics{Followers: 1200, PostCount: 40}},
		accounts: &fakeAccounts{},
		limiter:  &fakeLimiter{allow: true},
	}
	cache := repository.NewMetricsCacheRepository(newTestRedis(t), time.Hour)
	factory := func(p model.Platform, token string, guard social.RequestGuard) (social.Client, error) {
		if token != "tok" {
			return nil, fmt.Errorf("unexpected token %q", token)
		}
		f.client.guard = guard
		return f.client, nil
	}
	f.svc = NewMetricsService(cache, f.accounts, f.limiter, factory, 30*time.Minute)
	return f
}

func TestMetricsLiveThenCache(t *testing.T) {
	f := newMetricsFixture(t)
	ctx := context.Background()

	first := f.svc.GetMetrics(ctx, 1, model.PlatformTwitter, false)
	if first.Source != SourceLive || first.Data.Followers != 1200 {
		t.Fatalf("expected live data, got %+v", first)
	}
	if f.limiter.records != 2 || f.limiter.byPoint[EndpointUser] != 1 || f.limiter.byPoint[EndpointTimeline] != 1 {
		t.Errorf("each upstream request should be recorded once, got %v", f.limiter.byPoint)
	}

	second := f.svc.GetMetrics(ctx, 1, model.PlatformTwitter, false)
	if second.Source != SourceCache || second.Data.Followers != 1200 || second.CachedAt == nil {
		t.Errorf("expected cached data, got %+v", second)
	}
	if f.client.calls != 2 {
		t.Errorf("cache hit should not call the platform, calls=%d", f.client.calls)
	}

	f.client.metrics.Followers = 1300
	forced := f.svc.GetMetrics(ctx, 1, model.PlatformTwitter, true)
	if forced.Source != SourceLive || forced.Data.Followers != 1300 {
		t.Errorf("forced refresh should go live, got %+v", forced)
	}
}

func TestMetricsStaleOnLiveFailure(t *testing.T) {
	f := newMetricsFixture(t)
	ctx := context.Background()
	_ = f.svc.GetMetrics(ctx, 1, model.PlatformTwitter, false)

	f.client.err = &social.APIError{Platform: model.PlatformTwitter, StatusCode: 500, Kind: social.ErrUpstream}
	got := f.svc.GetMetrics(ctx, 1, model.PlatformTwitter, true)
	if got.Source != SourceStale || got.Data.Followers != 1200 {
		t.Errorf("expected stale data, got %+v", got)
	}
	if got.ReconnectRequired {
		t.Errorf("upstream failure should not require reconnect")
	}
}

func TestMetricsRateLimitedServesStale(t *testing.T) {
	f := newMetricsFixture(t)
	ctx := context.Background()
	_ = f.svc.GetMetrics(ctx, 1, model.PlatformTwitter, false)

	f.limiter.allow = false
	got := f.svc.GetMetrics(ctx, 1, model.PlatformTwitter, true)
	if got.Source != SourceStale {
		t.Errorf("expected stale data when throttled, got %+v", got)
	}
	if f.client.calls != 2 {
		t.Errorf("throttled request must not reach the platform, calls=%d", f.client.calls)
	}
}

func TestMetricsAuthInvalid(t *testing.T) {
	f := newMetricsFixture(t)
	f.client.err = &social.APIError{Platform: model.PlatformTwitter, StatusCode: 401, Kind: social.ErrAuthInvalid}
	got := f.svc.GetMetrics(context.Background(), 1, model.PlatformTwitter, false)
	if !got.ReconnectRequired || got.Source != SourceDefault {
		t.Errorf("expected reconnect prompt with default data, got %+v", got)
	}
	if len(f.accounts.revoked) != 1 {
		t.Errorf("account should be marked revoked")
	}
}

func TestMetricsDefaultWhenNothingAvailable(t *testing.T) {
	f := newMetricsFixture(t)
	f.accounts.missing = true
	got := f.svc.GetMetrics(context.Background(), 1, model.PlatformLinkedIn, false)
	if got.Source != SourceDefault || got.Data != (social.Metrics{}) {
		t.Errorf("expected zero default, got %+v", got)
	}
	if f.client.calls != 0 || f.limiter.records != 0 {
		t.Errorf("no live call expected without an account")
	}
}

func TestRecentPostsTrimAndDefault(t *testing.T) {
	f := newMetricsFixture(t)
	ctx := context.Background()
	f.client.posts = []social.Post{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	got := f.svc.GetRecentPosts(ctx, 1, model.PlatformTwitter, 2, false)
	if got.Source != SourceLive || len(got.Data) != 2 {
		t.Errorf("expected 2 live posts, got %+v", got)
	}

	f.accounts.missing = true
	empty := f.svc.GetRecentPosts(ctx, 2, model.PlatformTwitter, 5, false)
	if empty.Data == nil || len(empty.Data) != 0 || empty.Source != SourceDefault {
		t.Errorf("expected empty default list, got %+v", empty)
	}
}

func TestProfileUsesSeparateCacheEntry(t *testing.T) {
	f := newMetricsFixture(t)
	ctx := context.Background()
	_ = f.svc.GetMetrics(ctx, 1, model.PlatformTwitter, false)
	p := f.svc.GetProfile(ctx, 1, model.PlatformTwitter, false)
	if p.Source != SourceLive || p.Data.Username != "jane" {
		t.Errorf("profile should be fetched separately, got %+v", p)
	}
}

func TestRecentPostsCachedPerCount(t *testing.T) {
	f := newMetricsFixture(t)
	ctx := context.Background()
	f.client.posts = []social.Post{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	small := f.svc.GetRecentPosts(ctx, 1, model.PlatformTwitter, 1, false)
	if small.Source != SourceLive || len(small.Data) != 1 {
		t.Fatalf("expected 1 live post, got %+v", small)
	}
	larger := f.svc.GetRecentPosts(ctx, 1, model.PlatformTwitter, 3, false)
	if larger.Source != SourceLive || len(larger.Data) != 3 {
		t.Errorf("a larger count must not be served from the smaller cached list, got %+v", larger)
	}
	again := f.svc.GetRecentPosts(ctx, 1, model.PlatformTwitter, 1, false)
	if again.Source != SourceCache || len(again.Data) != 1 {
		t.Errorf("same count should hit the cache, got %+v", again)
	}
}

func TestLiveRequestsMatchRecordedWindowCounts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/2/users/me":
			_, _ = w.Write([]byte(`{"data":{"id":"42","username":"jane","public_metrics":{"followers_count":500}}}`))
		case "/2/users/42/tweets":
			_, _ = w.Write([]byte(`{"data":[{"id":"1","text":"hi"},{"id":"2","text":"yo"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	limiter := &fakeLimiter{allow: true}
	factory := func(p model.Platform, token string, guard social.RequestGuard) (social.Client, error) {
		return social.NewClient(p, srv.URL, token, time.Second, guard)
	}
	cache := repository.NewMetricsCacheRepository(newTestRedis(t), time.Hour)
	svc := NewMetricsService(cache, &fakeAccounts{}, limiter, factory, 30*time.Minute)
	ctx := context.Background()

	if got := svc.GetMetrics(ctx, 1, model.PlatformTwitter, true); got.Source != SourceLive {
		t.Fatalf("expected live metrics, got %+v", got)
	}
	if got := svc.GetProfile(ctx, 1, model.PlatformTwitter, true); got.Source != SourceLive {
		t.Fatalf("expected live profile, got %+v", got)
	}
	if got := svc.GetRecentPosts(ctx, 1, model.PlatformTwitter, 2, true); got.Source != SourceLive {
		t.Fatalf("expected live posts, got %+v", got)
	}

	if n := atomic.LoadInt32(&hits); int(n) != limiter.records || n != 5 {
		t.Errorf("upstream hits=%d, recorded=%d", n, limiter.records)
	}
	if limiter.byPoint[EndpointUser] != 3 || limiter.byPoint[EndpointTimeline] != 2 {
		t.Errorf("unexpected per-endpoint records %v", limiter.byPoint)
	}
}
