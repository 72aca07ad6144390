package service

import (
	"context"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
)

// NotificationService 读取事件处理器写入的用户通知。
type NotificationService interface {
	Drain(ctx context.Context, userID uint) ([]model.Notification, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService 创建一个新的 NotificationService 实例。
func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) Drain(ctx context.Context, userID uint) ([]model.Notification, error) {
	return s.repo.Drain(ctx, userID)
}
