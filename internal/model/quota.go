package model

import "time"

// FeatureType 是计量配额的功能类型。
type FeatureType string

const (
	FeatureContentGeneration       FeatureType = "content_generation"
	FeatureCrossPlatformAdaptation FeatureType = "cross_platform_adaptation"
	FeatureHashtagGeneration       FeatureType = "hashtag_generation"
)

// AllFeatures 列出所有计量功能。
var AllFeatures = []FeatureType{FeatureContentGeneration, FeatureCrossPlatformAdaptation, FeatureHashtagGeneration}

// ParseFeature 校验功能类型。
func ParseFeature(s string) (FeatureType, bool) {
	for _, f := range AllFeatures {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// UnlimitedQuota 表示该功能不限量。
const UnlimitedQuota = -1

// UsageQuota 描述某用户某功能当天的用量。
type UsageQuota struct {
	FeatureType FeatureType `json:"featureType"`
	Used        int64       `json:"used"`
	Limit       int64       `json:"limit"`
	Remaining   int64       `json:"remaining"`
	ResetsAt    time.Time   `json:"resetsAt"`
}

// UsageCounter 对应 usage_counters 表，每个 (user, feature, day) 一行。
type UsageCounter struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_usage_user_feature_day,priority:1" json:"userId"`
	FeatureType string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_usage_user_feature_day,priority:2" json:"featureType"`
	Day         string    `gorm:"type:char(10);not null;uniqueIndex:idx_usage_user_feature_day,priority:3" json:"day"`
	Used        int64     `gorm:"not null;default:0" json:"used"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UsageCounter) TableName() string {
	return "usage_counters"
}
