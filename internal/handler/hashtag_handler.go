package handler

import (
	"postcraft-go/internal/model"
	"postcraft-go/internal/service"

	"github.com/gin-gonic/gin"
)

// HashtagHandler 负责话题标签建议。
type HashtagHandler struct {
	hashtagService service.HashtagService
}

// NewHashtagHandler 创建一个新的 HashtagHandler。
func NewHashtagHandler(hashtagService service.HashtagService) *HashtagHandler {
	return &HashtagHandler{hashtagService: hashtagService}
}

// SuggestRequest 定义了话题标签建议接口的请求体结构。platform 缺省为 linkedin。
type SuggestRequest struct {
	Text     string `json:"text" binding:"required"`
	Industry string `json:"industry"`
	Platform string `json:"platform"`
	MaxTags  int    `json:"maxTags"`
}

// Suggest 返回排序后的话题标签建议。
func (h *HashtagHandler) Suggest(c *gin.Context) {
	userID, tier, found := identity(c)
	if !found {
		return
	}
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载：text 不能为空")
		return
	}
	platform := model.PlatformLinkedIn
	if req.Platform != "" {
		p, valid := platformParam(c, req.Platform)
		if !valid {
			return
		}
		platform = p
	}

	res, err := h.hashtagService.Suggest(c.Request.Context(), userID, tier, service.HashtagRequest{
		Text:     req.Text,
		Industry: req.Industry,
		Platform: platform,
		MaxTags:  req.MaxTags,
	})
	if err != nil {
		respondError(c, "SuggestHashtags", err)
		return
	}
	ok(c, res)
}
