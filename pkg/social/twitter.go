package social

import (
	"context"
	"fmt"
	"net/url"
	"postcraft-go/internal/model"
	"time"
)

type twitterClient struct {
	t transport
}

type twitterUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	PublicMetrics struct {
		FollowersCount int64 `json:"followers_count"`
		FollowingCount int64 `json:"following_count"`
		TweetCount     int64 `json:"tweet_count"`
	} `json:"public_metrics"`
}

type twitterTweet struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int64 `json:"like_count"`
		ReplyCount   int64 `json:"reply_count"`
		RetweetCount int64 `json:"retweet_count"`
	} `json:"public_metrics"`
}

func (c *twitterClient) Platform() model.Platform { return model.PlatformTwitter }

func (c *twitterClient) GetUserData(ctx context.Context) (*Profile, error) {
	var resp struct {
		Data twitterUser `json:"data"`
	}
	if err := c.t.getJSON(ctx, EndpointUser, "/2/users/me?user.fields=public_metrics", &resp); err != nil {
		return nil, err
	}
	u := resp.Data
	return &Profile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.Name,
		Followers:   u.PublicMetrics.FollowersCount,
		Following:   u.PublicMetrics.FollowingCount,
		PostCount:   u.PublicMetrics.TweetCount,
	}, nil
}

func (c *twitterClient) GetMetrics(ctx context.Context) (*Metrics, error) {
	profile, err := c.GetUserData(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := c.recentPosts(ctx, profile.ID, engagementSampleSize)
	if err != nil {
		return nil, err
	}
	return summarize(profile, posts), nil
}

func (c *twitterClient) GetRecentPosts(ctx context.Context, count int) ([]Post, error) {
	profile, err := c.GetUserData(ctx)
	if err != nil {
		return nil, err
	}
	return c.recentPosts(ctx, profile.ID, count)
}

func (c *twitterClient) recentPosts(ctx context.Context, userID string, count int) ([]Post, error) {
	// v2 接口要求 max_results 在 5 到 100 之间
	n := clampCount(count, 100)
	if n < 5 {
		n = 5
	}
	path := fmt.Sprintf("/2/users/%s/tweets?max_results=%d&tweet.fields=created_at,public_metrics", url.PathEscape(userID), n)
	var resp struct {
		Data []twitterTweet `json:"data"`
	}
	if err := c.t.getJSON(ctx, EndpointTimeline, path, &resp); err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(resp.Data))
	for _, tw := range resp.Data {
		posts = append(posts, Post{
			ID:        tw.ID,
			Text:      tw.Text,
			CreatedAt: tw.CreatedAt,
			Likes:     tw.PublicMetrics.LikeCount,
			Comments:  tw.PublicMetrics.ReplyCount,
			Shares:    tw.PublicMetrics.RetweetCount,
		})
	}
	if count > 0 && len(posts) > count {
		posts = posts[:count]
	}
	return posts, nil
}
