// Package pipeline 消费领域事件并生成用户通知。
package pipeline

import (
	"context"
	"fmt"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/events"
	"postcraft-go/pkg/log"
	"strings"
	"time"
)

// 达到这些当日用量时发送庆祝通知
var usageMilestones = map[int64]bool{1: true, 10: true, 25: true, 50: true, 100: true}

// Processor 把事件转换为通知写入用户收件箱。
type Processor struct {
	notifications repository.NotificationRepository
	now           func() time.Time
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(notifications repository.NotificationRepository) *Processor {
	return &Processor{notifications: notifications, now: time.Now}
}

// Process 处理一条事件。不产生通知的事件直接返回 nil。
func (p *Processor) Process(ctx context.Context, event events.Event) error {
	n, ok := p.notificationFor(event)
	if !ok {
		return nil
	}
	log.Debugf("[Processor] 生成通知: user=%d type=%s", event.UserID, n.Type)
	if err := p.notifications.Push(ctx, event.UserID, n); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

func (p *Processor) notificationFor(event events.Event) (model.Notification, bool) {
	payload := event.Payload
	feature := featureLabel(payload.Feature)
	var msg, kind string

	switch event.Type {
	case events.QuotaExhausted:
		kind = "quota_exhausted"
		msg = fmt.Sprintf("You've used all %d of today's %s. Upgrade your plan or come back after midnight UTC.", payload.Limit, feature)
	case events.UsageIncremented:
		switch {
		case payload.Limit > 1 && payload.Used == payload.Limit-1:
			kind = "quota_warning"
			msg = fmt.Sprintf("Only 1 %s left for today.", strings.TrimSuffix(feature, "s"))
		case payload.Feature == string(model.FeatureContentGeneration) && usageMilestones[payload.Used]:
			kind = "milestone"
			if payload.Used == 1 {
				msg = "🎉 First post of the day generated. Keep it going!"
			} else {
				msg = fmt.Sprintf("🎉 %d posts generated today!", payload.Used)
			}
		default:
			return model.Notification{}, false
		}
	case events.ContentAdapted:
		if payload.FallbackCount == 0 {
			return model.Notification{}, false
		}
		kind = "adaptation_degraded"
		msg = fmt.Sprintf("%d of your platform versions were created without AI optimization. Try adapting again later.", payload.FallbackCount)
	default:
		return model.Notification{}, false
	}

	return model.Notification{Type: kind, Message: msg, CreatedAt: p.now().UTC()}, true
}

func featureLabel(feature string) string {
	switch model.FeatureType(feature) {
	case model.FeatureContentGeneration:
		return "content generations"
	case model.FeatureCrossPlatformAdaptation:
		return "cross-platform adaptations"
	case model.FeatureHashtagGeneration:
		return "hashtag suggestions"
	default:
		return strings.ReplaceAll(feature, "_", " ")
	}
}
