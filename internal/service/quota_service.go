// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/events"
	"postcraft-go/pkg/kafka"
	"postcraft-go/pkg/log"
	"time"
)

// ErrQuotaExceeded 是配额耗尽的哨兵错误。
var ErrQuotaExceeded = errors.New("quota exceeded")

// QuotaExceededError 携带当前用量与上限，便于前端展示升级提示。
type QuotaExceededError struct {
	Quota model.UsageQuota
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: used %d of %d", e.Quota.FeatureType, e.Quota.Used, e.Quota.Limit)
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// TierLimits 是某个档位下各功能的每日上限，-1 表示不限量。
type TierLimits map[model.FeatureType]int64

// DefaultTierLimits 是按 UTC 自然日计算的配额表。
var DefaultTierLimits = map[model.Tier]TierLimits{
	model.TierFree: {
		model.FeatureContentGeneration:       5,
		model.FeatureCrossPlatformAdaptation: 2,
		model.FeatureHashtagGeneration:       10,
	},
	model.TierPro: {
		model.FeatureContentGeneration:       100,
		model.FeatureCrossPlatformAdaptation: 50,
		model.FeatureHashtagGeneration:       200,
	},
	model.TierAgency: {
		model.FeatureContentGeneration:       model.UnlimitedQuota,
		model.FeatureCrossPlatformAdaptation: model.UnlimitedQuota,
		model.FeatureHashtagGeneration:       model.UnlimitedQuota,
	},
}

// QuotaLimit 查表得到上限，未知档位按 free 处理，未知功能上限为 0。
func QuotaLimit(tier model.Tier, feature model.FeatureType) int64 {
	limits, ok := DefaultTierLimits[tier]
	if !ok {
		limits = DefaultTierLimits[model.TierFree]
	}
	return limits[feature]
}

// QuotaCheck 是 CheckQuota 的结果。
type QuotaCheck struct {
	Allowed bool             `json:"allowed"`
	Quota   model.UsageQuota `json:"quota"`
}

// QuotaService 接口定义了配额相关的业务操作。
type QuotaService interface {
	CheckQuota(ctx context.Context, userID uint, feature model.FeatureType, tier model.Tier) (QuotaCheck, error)
	// Require 在不允许时返回 *QuotaExceededError。
	Require(ctx context.Context, userID uint, feature model.FeatureType, tier model.Tier) error
	IncrementUsage(ctx context.Context, userID uint, feature model.FeatureType, tier model.Tier, amount int64) (model.UsageQuota, error)
	// Reserve 先原子占用 amount，超出上限时立即归还并返回 *QuotaExceededError。
	// 调用方在工作成功后 Commit，失败时 Release。
	Reserve(ctx context.Context, userID uint, feature model.FeatureType, tier model.Tier, amount int64) (*Reservation, error)
	Overview(ctx context.Context, userID uint, tier model.Tier) ([]model.UsageQuota, error)
}

type quotaService struct {
	usageRepo repository.UsageRepository
	publisher kafka.Publisher
	now       func() time.Time
}

// NewQuotaService 创建一个新的 QuotaService 实例。publisher 可以为 nil。
func NewQuotaService(usageRepo repository.UsageRepository, publisher kafka.Publisher) QuotaService {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &quotaService{usageRepo: usageRepo, publisher: publisher, now: time.Now}
}

// nextUTCMidnight 返回 now 之后的下一个 UTC 零点。
func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func usageDay(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

func buildQuota(feature model.FeatureType, used, limit int64, resetsAt time.Time) model.UsageQuota {
	remaining := int64(model.UnlimitedQuota)
	if limit != model.UnlimitedQuota {
		remaining = limit - used
		if remaining < 0 {
			remaining = 0
		}
	}
	return model.UsageQuota{
		FeatureType: feature,
		Used:        used,
		Limit:       limit,
		Remaining:   remaining,
		ResetsAt:    resetsAt,
	}
}

func (s *quotaService) CheckQuota(ctx context.Context, userID uint, feature model.FeatureType, tier model.Tier) (QuotaCheck, error) {
	now := s.now()
	limit := QuotaLimit(tier, feature)
	used, err := s.usageRepo.GetUsage(ctx, userID, feature, usageDay(now))
	if err != nil {
		if limit == model.UnlimitedQuota {
			log.Warnf("[QuotaService] 读取用量失败，不限量功能直接放行: user=%d feature=%s err=%v", userID, feature, err)
			return QuotaCheck{Allowed: true, Quota: buildQuota(feature, 0, limit, nextUTCMidnight(now))}, nil
		}
		return QuotaCheck{}, fmt.Errorf("failed to read usage: %w", err)
	}
	quota := buildQuota(feature, used, limit, nextUTCMidnight(now))
	allowed := limit == model.UnlimitedQuota || used < limit
	return QuotaCheck{Allowed: allowed, Quota: quota}, nil
}

func (s *quotaService) Require(ctx context.Context, userID uint, feature model.FeatureType, tier model.Tier) error {
	check, err := s.CheckQuota(ctx, userID, feature, tier)
	if err != nil {
		return err
	}
	if !check.Allowed {
		return &QuotaExceededError{Quota: check.Quota}
	}
	return nil
}

// IncrementUsage 原子递增当天计数，并在跨过上限时发布 quota.exhausted 事件。
func (s *quotaService) IncrementUsage(ctx context.Context, userID uint, feature model.FeatureType, tier model.Tier, amount int64) (model.UsageQuota, error) {
	if amount <= 0 {
		return model.UsageQuota{}, fmt.Errorf("invalid usage amount: %d", amount)
	}
	now := s.now()
	used, err := s.usageRepo.IncrementUsage(ctx, userID, feature, usageDay(now), amount)
	if err != nil {
		return model.UsageQuota{}, err
	}
	limit := QuotaLimit(tier, feature)
	quota := buildQuota(feature, used, limit, nextUTCMidnight(now))

	payload := events.Payload{Feature: string(feature), Used: used, Limit: limit}
	s.publish(ctx, events.New(events.UsageIncremented, userID, payload))
	if limit != model.UnlimitedQuota && used >= limit && used-amount < limit {
		s.publish(ctx, events.New(events.QuotaExhausted, userID, payload))
	}
	return quota, nil
}

// Reservation 是一次已经计入计数器的占用。
type Reservation struct {
	svc     *quotaService
	userID  uint
	feature model.FeatureType
	day     string
	amount  int64
	quota   model.UsageQuota
	done    bool
}

// Reserve 先原子递增计数再判断上限，超出时立即回滚并返回 *QuotaExceededError。
// 并发请求因此不会超额。调用方在工作失败时 Release，成功时 Commit。
func (s *quotaService) Reserve(ctx context.Context, userID uint, feature model.FeatureType, tier model.Tier, amount int64) (*Reservation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid usage amount: %d", amount)
	}
	now := s.now()
	day := usageDay(now)
	limit := QuotaLimit(tier, feature)
	used, err := s.usageRepo.IncrementUsage(ctx, userID, feature, day, amount)
	if err != nil {
		if limit == model.UnlimitedQuota {
			log.Warnf("[QuotaService] 占用配额失败，不限量功能直接放行: user=%d feature=%s err=%v", userID, feature, err)
			return &Reservation{feature: feature, quota: buildQuota(feature, 0, limit, nextUTCMidnight(now)), done: true}, nil
		}
		return nil, err
	}

	if limit != model.UnlimitedQuota && used > limit {
		if _, err := s.usageRepo.IncrementUsage(ctx, userID, feature, day, -amount); err != nil {
			log.Errorf("[QuotaService] 归还超额占用失败: user=%d feature=%s err=%v", userID, feature, err)
		}
		return nil, &QuotaExceededError{Quota: buildQuota(feature, used-amount, limit, nextUTCMidnight(now))}
	}
	return &Reservation{
		svc:     s,
		userID:  userID,
		feature: feature,
		day:     day,
		amount:  amount,
		quota:   buildQuota(feature, used, limit, nextUTCMidnight(now)),
	}, nil
}

// Quota 返回占用之后的用量。
func (r *Reservation) Quota() model.UsageQuota {
	return r.quota
}

// Commit 确认占用并发布用量事件，跨过上限时额外发布 quota.exhausted。
func (r *Reservation) Commit(ctx context.Context) model.UsageQuota {
	if r.done {
		return r.quota
	}
	r.done = true
	q := r.quota
	payload := events.Payload{Feature: string(q.FeatureType), Used: q.Used, Limit: q.Limit}
	r.svc.publish(ctx, events.New(events.UsageIncremented, r.userID, payload))
	if q.Limit != model.UnlimitedQuota && q.Used >= q.Limit && q.Used-r.amount < q.Limit {
		r.svc.publish(ctx, events.New(events.QuotaExhausted, r.userID, payload))
	}
	return q
}

// Release 归还占用，已 Commit 或已 Release 时什么也不做。
func (r *Reservation) Release(ctx context.Context) {
	if r.done {
		return
	}
	r.done = true
	if _, err := r.svc.usageRepo.IncrementUsage(ctx, r.userID, r.feature, r.day, -r.amount); err != nil {
		log.Errorf("[QuotaService] 归还配额失败: user=%d feature=%s err=%v", r.userID, r.feature, err)
	}
}

func (s *quotaService) Overview(ctx context.Context, userID uint, tier model.Tier) ([]model.UsageQuota, error) {
	out := make([]model.UsageQuota, 0, len(model.AllFeatures))
	for _, f := range model.AllFeatures {
		check, err := s.CheckQuota(ctx, userID, f, tier)
		if err != nil {
			return nil, err
		}
		out = append(out, check.Quota)
	}
	return out, nil
}

func (s *quotaService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Warnf("[QuotaService] 发布事件失败: type=%s user=%d err=%v", e.Type, e.UserID, err)
	}
}
