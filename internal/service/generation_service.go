package service

import (
	"context"
	"encoding/json"
	"fmt"
	"postcraft-go/internal/content"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/es"
	"postcraft-go/pkg/events"
	"postcraft-go/pkg/kafka"
	"postcraft-go/pkg/log"
	"strings"

	"gorm.io/datatypes"
)

// PostIndexer 把生成结果写入全文索引。
type PostIndexer interface {
	IndexPost(ctx context.Context, doc es.PostDocument) error
}

// GenerateInput 是一次生成请求。
type GenerateInput struct {
	Prompt     string
	Platform   model.Platform
	Tone       string
	VoiceStyle string
	Priority   bool
}

// GenerationResult 是生成结果以及扣减后的配额。
type GenerationResult struct {
	PostID  uint                   `json:"postId,omitempty"`
	Content model.GeneratedContent `json:"content"`
	Quota   model.UsageQuota       `json:"quota"`
}

// GenerationService 接口定义了单平台内容生成。
type GenerationService interface {
	Generate(ctx context.Context, userID uint, tier model.Tier, in GenerateInput) (*GenerationResult, error)
}

type generationService struct {
	generator content.Generator
	quota     QuotaService
	posts     repository.ContentRepository
	indexer   PostIndexer
	publisher kafka.Publisher
}

// NewGenerationService 创建一个新的 GenerationService 实例。posts、indexer、publisher 都可以为 nil。
func NewGenerationService(generator content.Generator, quota QuotaService, posts repository.ContentRepository, indexer PostIndexer, publisher kafka.Publisher) GenerationService {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &generationService{generator: generator, quota: quota, posts: posts, indexer: indexer, publisher: publisher}
}

// Generate 先占用配额再调用引擎，生成失败时归还占用。
// 生成失败以 content.ErrGenerationFailed 返回，不做兜底。
func (s *generationService) Generate(ctx context.Context, userID uint, tier model.Tier, in GenerateInput) (*GenerationResult, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}
	reservation, err := s.quota.Reserve(ctx, userID, model.FeatureContentGeneration, tier, 1)
	if err != nil {
		return nil, err
	}

	generated, err := s.generator.Generate(ctx, content.GenerateRequest{
		Prompt:     in.Prompt,
		Platform:   in.Platform,
		Tone:       in.Tone,
		VoiceStyle: in.VoiceStyle,
		Tier:       tier,
		Priority:   in.Priority,
	})
	if err != nil {
		reservation.Release(ctx)
		log.Warnf("[GenerationService] 生成失败: user=%d platform=%s err=%v", userID, in.Platform, err)
		return nil, err
	}
	quota := reservation.Commit(ctx)

	result := &GenerationResult{Content: generated, Quota: quota}
	result.PostID = s.persist(ctx, userID, tier, in, generated)
	return result, nil
}

// persist 依次写库、写索引、发事件，任何一步失败都不影响返回结果。
func (s *generationService) persist(ctx context.Context, userID uint, tier model.Tier, in GenerateInput, generated model.GeneratedContent) uint {
	var postID uint
	if s.posts != nil {
		tags, _ := json.Marshal(generated.Hashtags)
		level, _ := content.SelectModel(tier, in.Priority)
		post := &model.GeneratedPost{
			UserID:          userID,
			Platform:        string(in.Platform),
			Prompt:          in.Prompt,
			Content:         generated.Text,
			Hashtags:        datatypes.JSON(tags),
			EngagementScore: generated.EngagementScore,
			Model:           level.String(),
		}
		if err := s.posts.SavePost(ctx, post); err != nil {
			log.Warnf("[GenerationService] 保存生成记录失败: user=%d err=%v", userID, err)
		} else {
			postID = post.ID
			if s.indexer != nil {
				doc := es.PostDocument{
					PostID:          post.ID,
					UserID:          userID,
					Platform:        post.Platform,
					Content:         post.Content,
					Hashtags:        generated.Hashtags,
					EngagementScore: post.EngagementScore,
					CreatedAt:       post.CreatedAt,
				}
				if err := s.indexer.IndexPost(ctx, doc); err != nil {
					log.Warnf("[GenerationService] 索引生成记录失败: post=%d err=%v", post.ID, err)
				}
			}
		}
	}

	e := events.New(events.ContentGenerated, userID, events.Payload{Platform: string(in.Platform), PostID: postID})
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Warnf("[GenerationService] 发布事件失败: user=%d err=%v", userID, err)
	}
	return postID
}
