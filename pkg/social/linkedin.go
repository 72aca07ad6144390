package social

import (
	"context"
	"fmt"
	"net/url"
	"postcraft-go/internal/model"
	"time"
)

type linkedInClient struct {
	t transport
}

type linkedInPost struct {
	ID      string `json:"id"`
	Created struct {
		Time int64 `json:"time"`
	} `json:"created"`
	SpecificContent struct {
		ShareContent struct {
			ShareCommentary struct {
				Text string `json:"text"`
			} `json:"shareCommentary"`
		} `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
}

func (c *linkedInClient) Platform() model.Platform { return model.PlatformLinkedIn }

func (c *linkedInClient) GetUserData(ctx context.Context) (*Profile, error) {
	var info struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.t.getJSON(ctx, EndpointUser, "/v2/userinfo", &info); err != nil {
		return nil, err
	}
	var network struct {
		FirstDegreeSize int64 `json:"firstDegreeSize"`
	}
	path := "/v2/networkSizes/" + url.PathEscape(personURN(info.Sub)) + "?edgeType=CompanyFollowedByMember"
	if err := c.t.getJSON(ctx, EndpointMetrics, path, &network); err != nil {
		return nil, err
	}
	return &Profile{
		ID:          info.Sub,
		Username:    info.Email,
		DisplayName: info.Name,
		Followers:   network.FirstDegreeSize,
	}, nil
}

func (c *linkedInClient) GetMetrics(ctx context.Context) (*Metrics, error) {
	profile, err := c.GetUserData(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := c.recentPosts(ctx, profile.ID, engagementSampleSize)
	if err != nil {
		return nil, err
	}
	profile.PostCount = int64(len(posts))
	return summarize(profile, posts), nil
}

func (c *linkedInClient) GetRecentPosts(ctx context.Context, count int) ([]Post, error) {
	profile, err := c.GetUserData(ctx)
	if err != nil {
		return nil, err
	}
	return c.recentPosts(ctx, profile.ID, count)
}

func (c *linkedInClient) recentPosts(ctx context.Context, personID string, count int) ([]Post, error) {
	path := fmt.Sprintf("/v2/ugcPosts?q=authors&authors=List(%s)&count=%d",
		url.QueryEscape(personURN(personID)), clampCount(count, 50))
	var resp struct {
		Elements []linkedInPost `json:"elements"`
	}
	if err := c.t.getJSON(ctx, EndpointTimeline, path, &resp); err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(resp.Elements))
	for _, e := range resp.Elements {
		posts = append(posts, Post{
			ID:        e.ID,
			Text:      e.SpecificContent.ShareContent.ShareCommentary.Text,
			CreatedAt: time.UnixMilli(e.Created.Time).UTC(),
		})
	}
	return posts, nil
}

func personURN(id string) string {
	return "urn:li:person:" + id
}
