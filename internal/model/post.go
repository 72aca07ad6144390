package model

import (
	"time"

	"gorm.io/datatypes"
)

// GeneratedPost 对应 generated_posts 表，记录每次成功的生成结果。
type GeneratedPost struct {
	ID              uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint           `gorm:"index;not null" json:"userId"`
	Platform        string         `gorm:"type:varchar(32);not null" json:"platform"`
	Prompt          string         `gorm:"type:text;not null" json:"prompt"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	Hashtags        datatypes.JSON `gorm:"type:json" json:"hashtags"`
	EngagementScore int            `gorm:"not null" json:"engagementScore"`
	Model           string         `gorm:"type:varchar(64)" json:"model"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (GeneratedPost) TableName() string {
	return "generated_posts"
}

// AdaptationRecord 对应 adaptation_records 表，保存一次跨平台改写的完整结果。
type AdaptationRecord struct {
	ID            string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        uint           `gorm:"index;not null" json:"userId"`
	OriginalText  string         `gorm:"type:text;not null" json:"originalText"`
	Adaptations   datatypes.JSON `gorm:"type:json" json:"adaptations"`
	FallbackCount int            `gorm:"not null;default:0" json:"fallbackCount"`
	ArchiveObject string         `gorm:"type:varchar(255)" json:"archiveObject"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (AdaptationRecord) TableName() string {
	return "adaptation_records"
}

// SocialAccount 保存用户已连接平台的访问令牌。OAuth 握手由外部完成。
type SocialAccount struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_social_user_platform,priority:1" json:"userId"`
	Platform    string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_social_user_platform,priority:2" json:"platform"`
	ExternalID  string    `gorm:"type:varchar(128)" json:"externalId"`
	AccessToken string    `gorm:"type:text;not null" json:"-"`
	Revoked     bool      `gorm:"not null;default:false" json:"revoked"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (SocialAccount) TableName() string {
	return "social_accounts"
}

// Notification 是推送到用户收件箱的一条通知，由事件处理器生成。
type Notification struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
