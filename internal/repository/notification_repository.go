package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"postcraft-go/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	notificationInboxSize = 50
	notificationInboxTTL  = 7 * 24 * time.Hour
)

// NotificationRepository 是每个用户一个的 Redis 通知收件箱。
type NotificationRepository interface {
	Push(ctx context.Context, userID uint, n model.Notification) error
	// Drain 取出并清空收件箱，按推送顺序返回。
	Drain(ctx context.Context, userID uint) ([]model.Notification, error)
}

type redisNotificationRepository struct {
	redisClient *redis.Client
}

// NewNotificationRepository 创建一个新的 NotificationRepository 实例。
func NewNotificationRepository(redisClient *redis.Client) NotificationRepository {
	return &redisNotificationRepository{redisClient: redisClient}
}

func notificationKey(userID uint) string {
	return fmt.Sprintf("user:%d:notifications", userID)
}

func (r *redisNotificationRepository) Push(ctx context.Context, userID uint, n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	key := notificationKey(userID)
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		// 只保留最近 50 条
		pipe.LTrim(ctx, key, -notificationInboxSize, -1)
		pipe.Expire(ctx, key, notificationInboxTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

func (r *redisNotificationRepository) Drain(ctx context.Context, userID uint) ([]model.Notification, error) {
	key := notificationKey(userID)
	var items *redis.StringSliceCmd
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		items = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain notifications: %w", err)
	}
	out := make([]model.Notification, 0, len(items.Val()))
	for _, raw := range items.Val() {
		var n model.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
