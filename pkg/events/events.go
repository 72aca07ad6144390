// Package events 定义了通过 Kafka 传递的领域事件。
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type 是事件类型，同时用作 Kafka 消息的 key 前缀。
type Type string

const (
	ContentGenerated Type = "content.generated"
	ContentAdapted   Type = "content.adapted"
	UsageIncremented Type = "usage.incremented"
	QuotaExhausted   Type = "quota.exhausted"
)

// Event 是所有事件共用的信封，Payload 中只放与事件类型相关的字段。
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	UserID     uint      `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    Payload   `json:"payload"`
}

// Payload 是扁平的事件数据，未使用的字段省略。
type Payload struct {
	Platform      string `json:"platform,omitempty"`
	Feature       string `json:"feature,omitempty"`
	Used          int64  `json:"used,omitempty"`
	Limit         int64  `json:"limit,omitempty"`
	AdaptationID  string `json:"adaptationId,omitempty"`
	FallbackCount int    `json:"fallbackCount,omitempty"`
	PostID        uint   `json:"postId,omitempty"`
}

// New 创建一个带新 ID 和当前时间的事件。
func New(t Type, userID uint, payload Payload) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
