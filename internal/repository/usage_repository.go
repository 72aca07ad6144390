// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"postcraft-go/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 计数键保留两天，跨过 UTC 零点后旧键自然过期。
const usageKeyTTL = 48 * time.Hour

// UsageRepository 定义了按 (user, feature, day) 计数的用量存储。
// IncrementUsage 必须是原子操作，并发调用不能丢失更新。
type UsageRepository interface {
	GetUsage(ctx context.Context, userID uint, feature model.FeatureType, day string) (int64, error)
	IncrementUsage(ctx context.Context, userID uint, feature model.FeatureType, day string, amount int64) (int64, error)
}

type redisUsageRepository struct {
	redisClient *redis.Client
}

// NewRedisUsageRepository 创建基于 Redis INCRBY 的用量仓库。
func NewRedisUsageRepository(redisClient *redis.Client) UsageRepository {
	return &redisUsageRepository{redisClient: redisClient}
}

func usageKey(userID uint, feature model.FeatureType, day string) string {
	return fmt.Sprintf("quota:%d:%s:%s", userID, feature, day)
}

// GetUsage 读取当天用量，键不存在时为 0。
func (r *redisUsageRepository) GetUsage(ctx context.Context, userID uint, feature model.FeatureType, day string) (int64, error) {
	n, err := r.redisClient.Get(ctx, usageKey(userID, feature, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get usage counter: %w", err)
	}
	return n, nil
}

// IncrementUsage 使用 INCRBY 原子递增并返回递增后的值。
func (r *redisUsageRepository) IncrementUsage(ctx context.Context, userID uint, feature model.FeatureType, day string, amount int64) (int64, error) {
	key := usageKey(userID, feature, day)
	var incr *redis.IntCmd
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.IncrBy(ctx, key, amount)
		pipe.Expire(ctx, key, usageKeyTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return incr.Val(), nil
}

type gormUsageRepository struct {
	db *gorm.DB
}

// NewGormUsageRepository 创建基于 usage_counters 表的用量仓库。
func NewGormUsageRepository(db *gorm.DB) UsageRepository {
	return &gormUsageRepository{db: db}
}

func (r *gormUsageRepository) GetUsage(ctx context.Context, userID uint, feature model.FeatureType, day string) (int64, error) {
	var row model.UsageCounter
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND feature_type = ? AND day = ?", userID, string(feature), day).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Used, nil
}

// IncrementUsage 用一条 INSERT ... ON DUPLICATE KEY UPDATE used = used + ? 完成原子递增。
// 返回值是递增之后读到的值，可能已包含其它并发请求的递增。
func (r *gormUsageRepository) IncrementUsage(ctx context.Context, userID uint, feature model.FeatureType, day string, amount int64) (int64, error) {
	row := model.UsageCounter{
		UserID:      userID,
		FeatureType: string(feature),
		Day:         day,
		Used:        amount,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "feature_type"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"used": gorm.Expr("used + ?", amount)}),
	}).Create(&row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert usage counter: %w", err)
	}
	return r.GetUsage(ctx, userID, feature, day)
}
