package social

import (
	"context"
	"fmt"
	"postcraft-go/internal/model"
	"time"
)

type instagramClient struct {
	t transport
}

type instagramMedia struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
}

// Graph API 的时间戳格式，例如 2026-10-15T09:00:00+0000
const instagramTimeLayout = "2006-01-02T15:04:05-0700"

func (c *instagramClient) Platform() model.Platform { return model.PlatformInstagram }

func (c *instagramClient) GetUserData(ctx context.Context) (*Profile, error) {
	var resp struct {
		ID             string `json:"id"`
		Username       string `json:"username"`
		Name           string `json:"name"`
		FollowersCount int64  `json:"followers_count"`
		FollowsCount   int64  `json:"follows_count"`
		MediaCount     int64  `json:"media_count"`
	}
	if err := c.t.getJSON(ctx, EndpointUser, "/me?fields=id,username,name,followers_count,follows_count,media_count", &resp); err != nil {
		return nil, err
	}
	return &Profile{
		ID:          resp.ID,
		Username:    resp.Username,
		DisplayName: resp.Name,
		Followers:   resp.FollowersCount,
		Following:   resp.FollowsCount,
		PostCount:   resp.MediaCount,
	}, nil
}

func (c *instagramClient) GetMetrics(ctx context.Context) (*Metrics, error) {
	profile, err := c.GetUserData(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := c.GetRecentPosts(ctx, engagementSampleSize)
	if err != nil {
		return nil, err
	}
	return summarize(profile, posts), nil
}

func (c *instagramClient) GetRecentPosts(ctx context.Context, count int) ([]Post, error) {
	path := fmt.Sprintf("/me/media?fields=id,caption,timestamp,like_count,comments_count&limit=%d", clampCount(count, 100))
	var resp struct {
		Data []instagramMedia `json:"data"`
	}
	if err := c.t.getJSON(ctx, EndpointTimeline, path, &resp); err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(resp.Data))
	for _, m := range resp.Data {
		created, _ := time.Parse(instagramTimeLayout, m.Timestamp)
		posts = append(posts, Post{
			ID:        m.ID,
			Text:      m.Caption,
			CreatedAt: created,
			Likes:     m.LikeCount,
			Comments:  m.CommentsCount,
		})
	}
	return posts, nil
}
