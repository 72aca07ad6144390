package repository

import (
	"context"
	"postcraft-go/internal/model"

	"gorm.io/gorm"
)

// SocialAccountRepository 读取用户已连接的平台账号。
type SocialAccountRepository interface {
	// FindActive 返回未被吊销的账号，不存在时返回 gorm.ErrRecordNotFound。
	FindActive(ctx context.Context, userID uint, platform model.Platform) (*model.SocialAccount, error)
	MarkRevoked(ctx context.Context, userID uint, platform model.Platform) error
}

type socialAccountRepository struct {
	db *gorm.DB
}

// NewSocialAccountRepository 创建一个新的 SocialAccountRepository 实例。
func NewSocialAccountRepository(db *gorm.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

func (r *socialAccountRepository) FindActive(ctx context.Context, userID uint, platform model.Platform) (*model.SocialAccount, error) {
	var account model.SocialAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND revoked = ?", userID, string(platform), false).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// MarkRevoked 在平台拒绝令牌后标记账号需要重新连接。
func (r *socialAccountRepository) MarkRevoked(ctx context.Context, userID uint, platform model.Platform) error {
	return r.db.WithContext(ctx).Model(&model.SocialAccount{}).
		Where("user_id = ? AND platform = ?", userID, string(platform)).
		Update("revoked", true).Error
}
