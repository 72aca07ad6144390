package handler

import (
	"postcraft-go/internal/service"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 负责用户通知。
type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler 创建一个新的 NotificationHandler。
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List 取出并清空当前用户的通知。
func (h *NotificationHandler) List(c *gin.Context) {
	userID, _, found := identity(c)
	if !found {
		return
	}
	items, err := h.notificationService.Drain(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "ListNotifications", err)
		return
	}
	ok(c, items)
}
