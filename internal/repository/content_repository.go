package repository

import (
	"context"
	"postcraft-go/internal/model"

	"gorm.io/gorm"
)

// ContentRepository 持久化生成结果和跨平台改写历史。
type ContentRepository interface {
	SavePost(ctx context.Context, post *model.GeneratedPost) error
	SaveAdaptation(ctx context.Context, record *model.AdaptationRecord) error
	FindAdaptation(ctx context.Context, id string, userID uint) (*model.AdaptationRecord, error)
	UpdateArchiveObject(ctx context.Context, id, objectName string) error
	ListPosts(ctx context.Context, userID uint, offset, limit int) ([]model.GeneratedPost, int64, error)
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository 创建一个新的 ContentRepository 实例。
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) SavePost(ctx context.Context, post *model.GeneratedPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *contentRepository) SaveAdaptation(ctx context.Context, record *model.AdaptationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindAdaptation 只返回属于该用户的记录。
func (r *contentRepository) FindAdaptation(ctx context.Context, id string, userID uint) (*model.AdaptationRecord, error) {
	var record model.AdaptationRecord
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *contentRepository) UpdateArchiveObject(ctx context.Context, id, objectName string) error {
	return r.db.WithContext(ctx).Model(&model.AdaptationRecord{}).
		Where("id = ?", id).
		Update("archive_object", objectName).Error
}

// ListPosts 按创建时间倒序分页返回用户的生成历史。
func (r *contentRepository) ListPosts(ctx context.Context, userID uint, offset, limit int) ([]model.GeneratedPost, int64, error) {
	var posts []model.GeneratedPost
	var total int64

	db := r.db.WithContext(ctx).Model(&model.GeneratedPost{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
