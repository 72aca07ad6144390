package model

import (
	"encoding/json"
	"time"
)

// CachedMetrics 是一条带过期时间的外部指标缓存。
type CachedMetrics struct {
	Platform       Platform        `json:"platform"`
	Resource       string          `json:"resource"`
	MetricsPayload json.RawMessage `json:"metricsPayload"`
	CachedAt       time.Time       `json:"cachedAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
}

// Expired 判断在 now 时刻缓存是否已经失效。
func (c CachedMetrics) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// RateLimitWindow 是 (user, platform, endpoint) 的请求计数窗口。
type RateLimitWindow struct {
	Platform     Platform  `json:"platform"`
	Endpoint     string    `json:"endpoint"`
	RequestCount int64     `json:"requestCount"`
	WindowStart  time.Time `json:"windowStart"`
	ResetAt      time.Time `json:"resetAt"`
}

// Expired 判断窗口是否已过期（now > resetAt）。
func (w RateLimitWindow) Expired(now time.Time) bool {
	return now.After(w.ResetAt)
}
