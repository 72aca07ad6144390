package handler

import (
	"postcraft-go/internal/model"
	"postcraft-go/internal/service"

	"github.com/gin-gonic/gin"
)

// QuotaHandler 负责配额查询。
type QuotaHandler struct {
	quotaService service.QuotaService
}

// NewQuotaHandler 创建一个新的 QuotaHandler。
func NewQuotaHandler(quotaService service.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotaService: quotaService}
}

// Overview 返回所有功能当天的用量。
func (h *QuotaHandler) Overview(c *gin.Context) {
	userID, tier, found := identity(c)
	if !found {
		return
	}
	quotas, err := h.quotaService.Overview(c.Request.Context(), userID, tier)
	if err != nil {
		respondError(c, "QuotaOverview", err)
		return
	}
	ok(c, gin.H{"tier": tier, "quotas": quotas})
}

// Check 返回单个功能是否还能使用。
func (h *QuotaHandler) Check(c *gin.Context) {
	userID, tier, found := identity(c)
	if !found {
		return
	}
	feature, valid := model.ParseFeature(c.Param("feature"))
	if !valid {
		badRequest(c, "未知的功能类型: "+c.Param("feature"))
		return
	}
	check, err := h.quotaService.CheckQuota(c.Request.Context(), userID, feature, tier)
	if err != nil {
		respondError(c, "QuotaCheck", err)
		return
	}
	ok(c, check)
}
