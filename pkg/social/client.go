// Package social 封装了对外部社交平台 API 的只读访问。
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"postcraft-go/internal/model"
	"strings"
	"time"
)

var (
	// ErrRateLimited 表示平台返回了限流响应，令牌本身仍然有效。
	ErrRateLimited = errors.New("social api rate limited")
	// ErrAuthInvalid 表示访问令牌被拒绝，需要用户重新连接账号。
	ErrAuthInvalid = errors.New("social api rejected access token")
	// ErrUpstream 覆盖其它所有失败。
	ErrUpstream = errors.New("social api request failed")
	// ErrLocalRateLimited 表示本地限流窗口已用完，请求没有发出。
	ErrLocalRateLimited = errors.New("local rate limit reached")
)

// 上游端点的限流分类
const (
	EndpointUser     = "user"
	EndpointTimeline = "timeline"
	EndpointMetrics  = "metrics"
)

// RequestGuard 在每次上游请求之前放行，请求发出之后记账。
// Allow 不放行时返回 ErrLocalRateLimited。
type RequestGuard interface {
	Allow(ctx context.Context, endpoint string) error
	Record(ctx context.Context, endpoint string)
}

// APIError 携带平台和 HTTP 状态码，Kind 是上面的哨兵错误之一。
type APIError struct {
	Platform   model.Platform
	StatusCode int
	Kind       error
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api returned %d: %v", e.Platform, e.StatusCode, e.Kind)
}

func (e *APIError) Unwrap() error { return e.Kind }

// Profile 是账号的基础资料。
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Followers   int64  `json:"followers"`
	Following   int64  `json:"following"`
	PostCount   int64  `json:"postCount"`
}

// Post 是一条已发布的帖子及其互动数据。
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Shares    int64     `json:"shares"`
}

// Metrics 是展示用的汇总指标。
type Metrics struct {
	Followers      int64   `json:"followers"`
	Following      int64   `json:"following"`
	PostCount      int64   `json:"postCount"`
	EngagementRate float64 `json:"engagementRate"`
	GrowthRate     float64 `json:"growthRate"`
}

// Client 是单个平台、单个访问令牌的客户端。
type Client interface {
	Platform() model.Platform
	GetUserData(ctx context.Context) (*Profile, error)
	GetMetrics(ctx context.Context) (*Metrics, error)
	GetRecentPosts(ctx context.Context, count int) ([]Post, error)
}

// NewClient 按平台创建客户端。guard 为 nil 时不做本地限流。
func NewClient(platform model.Platform, baseURL, accessToken string, timeout time.Duration, guard RequestGuard) (Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	t := transport{
		platform:    platform,
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
		guard:       guard,
	}
	switch platform {
	case model.PlatformTwitter:
		return &twitterClient{t: t}, nil
	case model.PlatformInstagram:
		return &instagramClient{t: t}, nil
	case model.PlatformLinkedIn:
		return &linkedInClient{t: t}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}

// 统计互动率时最多取的帖子数
const engagementSampleSize = 10

// EstimateGrowthRate 按粉丝量分档给出的月增长率估计（百分比）。
// 这是占位的启发式，不是基于历史数据的真实增量。
func EstimateGrowthRate(followers int64) float64 {
	switch {
	case followers <= 0:
		return 0
	case followers < 1000:
		return 5.0
	case followers < 10000:
		return 3.5
	case followers < 100000:
		return 2.0
	default:
		return 1.0
	}
}

// EngagementRate 计算平均每帖互动数占粉丝数的百分比。
func EngagementRate(followers int64, posts []Post) float64 {
	if followers <= 0 || len(posts) == 0 {
		return 0
	}
	var total int64
	for _, p := range posts {
		total += p.Likes + p.Comments + p.Shares
	}
	avg := float64(total) / float64(len(posts))
	return avg / float64(followers) * 100
}

func summarize(profile *Profile, posts []Post) *Metrics {
	return &Metrics{
		Followers:      profile.Followers,
		Following:      profile.Following,
		PostCount:      profile.PostCount,
		EngagementRate: EngagementRate(profile.Followers, posts),
		GrowthRate:     EstimateGrowthRate(profile.Followers),
	}
}

type transport struct {
	platform    model.Platform
	baseURL     string
	accessToken string
	client      *http.Client
	guard       RequestGuard
}

// getJSON 发起 GET 请求并把 200 响应解码到 out，其它状态码映射为 *APIError。
// 每次请求都单独过 guard：发出之前 Allow，发出之后 Record，无论结果如何。
func (t transport) getJSON(ctx context.Context, endpoint, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", t.platform, err)
	}
	req.Header.Set("Authorization", "Bearer "+t.accessToken)
	req.Header.Set("Accept", "application/json")

	if t.guard != nil {
		if err := t.guard.Allow(ctx, endpoint); err != nil {
			return err
		}
	}
	resp, err := t.client.Do(req)
	if t.guard != nil {
		t.guard.Record(ctx, endpoint)
	}
	if err != nil {
		return &APIError{Platform: t.platform, Kind: ErrUpstream, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Platform: t.platform, StatusCode: resp.StatusCode, Kind: kindForStatus(resp.StatusCode), Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", t.platform, err)
	}
	return nil
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthInvalid
	default:
		return ErrUpstream
	}
}

func clampCount(count, max int) int {
	if count <= 0 {
		return engagementSampleSize
	}
	if count > max {
		return max
	}
	return count
}
