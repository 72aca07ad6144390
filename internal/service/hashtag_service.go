package service

import (
	"context"
	"fmt"
	"postcraft-go/internal/model"
	"strings"
)

// HashtagRanker 合并模型建议与内置词表并排序。
type HashtagRanker interface {
	Generate(ctx context.Context, text, industry string, maxTags int) []model.HashtagSuggestion
}

// HashtagRequest 是一次话题标签建议请求。MaxTags 为 0 时使用平台推荐上限。
type HashtagRequest struct {
	Text     string
	Industry string
	Platform model.Platform
	MaxTags  int
}

// HashtagResult 是排序后的建议及扣减后的配额。
type HashtagResult struct {
	Suggestions []model.HashtagSuggestion `json:"suggestions"`
	Quota       model.UsageQuota          `json:"quota"`
}

// HashtagService 接口定义了话题标签建议。
type HashtagService interface {
	Suggest(ctx context.Context, userID uint, tier model.Tier, req HashtagRequest) (*HashtagResult, error)
}

type hashtagService struct {
	ranker HashtagRanker
	quota  QuotaService
}

// NewHashtagService 创建一个新的 HashtagService 实例。
func NewHashtagService(ranker HashtagRanker, quota QuotaService) HashtagService {
	return &hashtagService{ranker: ranker, quota: quota}
}

func (s *hashtagService) Suggest(ctx context.Context, userID uint, tier model.Tier, req HashtagRequest) (*HashtagResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text must not be empty")
	}
	reservation, err := s.quota.Reserve(ctx, userID, model.FeatureHashtagGeneration, tier, 1)
	if err != nil {
		return nil, err
	}

	// 默认取推荐上限，显式指定时最多到平台硬上限
	spec := model.SpecFor(req.Platform)
	limit := spec.RecommendedMaxTags
	if req.MaxTags > 0 {
		limit = req.MaxTags
		if limit > spec.MaxHashtags {
			limit = spec.MaxHashtags
		}
	}
	suggestions := s.ranker.Generate(ctx, req.Text, req.Industry, limit)
	if suggestions == nil {
		suggestions = []model.HashtagSuggestion{}
	}

	return &HashtagResult{Suggestions: suggestions, Quota: reservation.Commit(ctx)}, nil
}
