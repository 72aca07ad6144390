package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"postcraft-go/internal/adapter"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/events"
	"postcraft-go/pkg/kafka"
	"postcraft-go/pkg/log"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ErrArchiveUnavailable 表示改写记录没有可下载的归档。
var ErrArchiveUnavailable = errors.New("adaptation archive unavailable")

const exportURLExpiry = 15 * time.Minute

// CrossPlatformAdapter 是 adapter.Adapter 的流式改写能力。
type CrossPlatformAdapter interface {
	AdaptAllStream(ctx context.Context, text, style string, tier model.Tier, onResult func(model.PlatformContent)) model.CrossPlatformContent
}

// Archiver 把改写结果归档到对象存储并生成下载链接。
type Archiver interface {
	ArchiveAdaptation(ctx context.Context, userID uint, id string, v interface{}) (string, error)
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// AdaptationResult 是一次跨平台改写及扣减后的配额。
type AdaptationResult struct {
	Content model.CrossPlatformContent `json:"content"`
	Quota   model.UsageQuota           `json:"quota"`
}

// AdaptationService 接口定义了跨平台改写相关的业务操作。
type AdaptationService interface {
	AdaptAll(ctx context.Context, userID uint, tier model.Tier, text, style string) (*AdaptationResult, error)
	// AdaptAllStream 每完成一个平台回调一次，回调是串行的。
	AdaptAllStream(ctx context.Context, userID uint, tier model.Tier, text, style string, onResult func(model.PlatformContent)) (*AdaptationResult, error)
	Validate(platform model.Platform, text string, hashtags []string) model.ValidationResult
	ExportURL(ctx context.Context, userID uint, id string) (string, error)
}

type adaptationService struct {
	adapter   CrossPlatformAdapter
	quota     QuotaService
	records   repository.ContentRepository
	archiver  Archiver
	publisher kafka.Publisher
}

// NewAdaptationService 创建一个新的 AdaptationService 实例。records、archiver、publisher 都可以为 nil。
func NewAdaptationService(a CrossPlatformAdapter, quota QuotaService, records repository.ContentRepository, archiver Archiver, publisher kafka.Publisher) AdaptationService {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &adaptationService{adapter: a, quota: quota, records: records, archiver: archiver, publisher: publisher}
}

func (s *adaptationService) AdaptAll(ctx context.Context, userID uint, tier model.Tier, text, style string) (*AdaptationResult, error) {
	return s.AdaptAllStream(ctx, userID, tier, text, style, nil)
}

// AdaptAllStream 只在配额不足或输入为空时返回错误。改写本身总是返回三个平台的完整结果。
func (s *adaptationService) AdaptAllStream(ctx context.Context, userID uint, tier model.Tier, text, style string, onResult func(model.PlatformContent)) (*AdaptationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text must not be empty")
	}
	reservation, err := s.quota.Reserve(ctx, userID, model.FeatureCrossPlatformAdaptation, tier, 1)
	if err != nil {
		return nil, err
	}

	if onResult == nil {
		onResult = func(model.PlatformContent) {}
	}
	cpc := s.adapter.AdaptAllStream(ctx, text, style, tier, onResult)

	fallbacks := 0
	for _, pc := range cpc.Adaptations {
		if !pc.Optimized {
			fallbacks++
		}
	}
	log.Infof("[AdaptationService] 改写完成: user=%d id=%s fallbacks=%d", userID, cpc.ID, fallbacks)

	quota := reservation.Commit(ctx)
	s.persist(ctx, userID, cpc, fallbacks)
	return &AdaptationResult{Content: cpc, Quota: quota}, nil
}

// persist 保存记录、归档、发事件，全部是尽力而为。
func (s *adaptationService) persist(ctx context.Context, userID uint, cpc model.CrossPlatformContent, fallbacks int) {
	if s.records != nil {
		payload, _ := json.Marshal(cpc.Adaptations)
		record := &model.AdaptationRecord{
			ID:            cpc.ID,
			UserID:        userID,
			OriginalText:  cpc.OriginalText,
			Adaptations:   datatypes.JSON(payload),
			FallbackCount: fallbacks,
		}
		if err := s.records.SaveAdaptation(ctx, record); err != nil {
			log.Warnf("[AdaptationService] 保存改写记录失败: id=%s err=%v", cpc.ID, err)
		} else if s.archiver != nil {
			objectName, err := s.archiver.ArchiveAdaptation(ctx, userID, cpc.ID, cpc)
			if err != nil {
				log.Warnf("[AdaptationService] 归档失败: id=%s err=%v", cpc.ID, err)
			} else if err := s.records.UpdateArchiveObject(ctx, cpc.ID, objectName); err != nil {
				log.Warnf("[AdaptationService] 更新归档路径失败: id=%s err=%v", cpc.ID, err)
			}
		}
	}

	e := events.New(events.ContentAdapted, userID, events.Payload{AdaptationID: cpc.ID, FallbackCount: fallbacks})
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Warnf("[AdaptationService] 发布事件失败: user=%d err=%v", userID, err)
	}
}

func (s *adaptationService) Validate(platform model.Platform, text string, hashtags []string) model.ValidationResult {
	return adapter.ValidateText(platform, text, hashtags)
}

// ExportURL 返回归档 JSON 的临时下载链接。
func (s *adaptationService) ExportURL(ctx context.Context, userID uint, id string) (string, error) {
	if s.records == nil || s.archiver == nil {
		return "", ErrArchiveUnavailable
	}
	record, err := s.records.FindAdaptation(ctx, id, userID)
	if err != nil {
		return "", err
	}
	if record.ArchiveObject == "" {
		return "", ErrArchiveUnavailable
	}
	return s.archiver.GetPresignedURL(ctx, record.ArchiveObject, exportURLExpiry)
}
