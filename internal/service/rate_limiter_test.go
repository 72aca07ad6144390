package service

import (
	"context"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"testing"
	"time"
)

func TestRateLimitTable(t *testing.T) {
	cases := []struct {
		platform model.Platform
		endpoint string
		want     RateLimit
	}{
		{model.PlatformTwitter, EndpointUser, RateLimit{75, 15 * time.Minute}},
		{model.PlatformTwitter, EndpointMetrics, RateLimit{300, 15 * time.Minute}},
		{model.PlatformInstagram, EndpointMetrics, RateLimit{100, time.Hour}},
		{model.PlatformLinkedIn, EndpointUser, RateLimit{500, 24 * time.Hour}},
		{model.PlatformLinkedIn, "search", DefaultRateLimit},
		{"myspace", EndpointUser, DefaultRateLimit},
	}
	for _, tc := range cases {
		if got := RateLimitFor(tc.platform, tc.endpoint); got != tc.want {
			t.Errorf("%s/%s = %+v, want %+v", tc.platform, tc.endpoint, got, tc.want)
		}
	}
}

func TestWindowExhaustionAndReset(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(repository.NewRateLimitRepository(newTestRedis(t))).(*rateLimiter)
	l.now = func() time.Time { return now }

	for i := 0; i < 75; i++ {
		ok, err := l.CanRequest(ctx, 1, model.PlatformTwitter, EndpointUser)
		if err != nil || !ok {
			t.Fatalf("request %d should be allowed: %v", i, err)
		}
		if err := l.RecordRequest(ctx, 1, model.PlatformTwitter, EndpointUser); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if ok, _ := l.CanRequest(ctx, 1, model.PlatformTwitter, EndpointUser); ok {
		t.Fatalf("76th request should be refused")
	}
	// 其它端点与其它用户不受影响
	if ok, _ := l.CanRequest(ctx, 1, model.PlatformTwitter, EndpointTimeline); !ok {
		t.Errorf("timeline window should be independent")
	}
	if ok, _ := l.CanRequest(ctx, 2, model.PlatformTwitter, EndpointUser); !ok {
		t.Errorf("other users should be independent")
	}

	now = now.Add(15*time.Minute + time.Second)
	if ok, _ := l.CanRequest(ctx, 1, model.PlatformTwitter, EndpointUser); !ok {
		t.Fatalf("expired window should allow requests")
	}
	_ = l.RecordRequest(ctx, 1, model.PlatformTwitter, EndpointUser)
	w, _ := l.repo.GetWindow(ctx, 1, model.PlatformTwitter, EndpointUser)
	if w == nil || w.RequestCount != 1 || !w.ResetAt.Equal(now.Add(15*time.Minute)) {
		t.Errorf("expected a fresh window, got %+v", w)
	}
}

func TestUnknownEndpointUsesDefault(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter(repository.NewRateLimitRepository(newTestRedis(t)))
	for i := 0; i < 10; i++ {
		_ = l.RecordRequest(ctx, 1, model.PlatformInstagram, "stories")
	}
	if ok, _ := l.CanRequest(ctx, 1, model.PlatformInstagram, "stories"); ok {
		t.Errorf("default limit of 10 should be enforced")
	}
}
