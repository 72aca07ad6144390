package handler

import (
	"postcraft-go/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

// MetricsHandler 负责外部平台数据的展示接口。这些接口从不因外部 API 失败而报错。
type MetricsHandler struct {
	metricsService service.MetricsService
}

// NewMetricsHandler 创建一个新的 MetricsHandler。
func NewMetricsHandler(metricsService service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metricsService: metricsService}
}

// Metrics 返回平台汇总指标，refresh=true 时跳过缓存。
func (h *MetricsHandler) Metrics(c *gin.Context) {
	userID, _, found := identity(c)
	if !found {
		return
	}
	platform, valid := platformParam(c, c.Param("platform"))
	if !valid {
		return
	}
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	ok(c, h.metricsService.GetMetrics(c.Request.Context(), userID, platform, refresh))
}

// Profile 返回平台账号资料。
func (h *MetricsHandler) Profile(c *gin.Context) {
	userID, _, found := identity(c)
	if !found {
		return
	}
	platform, valid := platformParam(c, c.Param("platform"))
	if !valid {
		return
	}
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	ok(c, h.metricsService.GetProfile(c.Request.Context(), userID, platform, refresh))
}

// Posts 返回最近发布的帖子。
func (h *MetricsHandler) Posts(c *gin.Context) {
	userID, _, found := identity(c)
	if !found {
		return
	}
	platform, valid := platformParam(c, c.Param("platform"))
	if !valid {
		return
	}
	count, _ := strconv.Atoi(c.DefaultQuery("count", "10"))
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	ok(c, h.metricsService.GetRecentPosts(c.Request.Context(), userID, platform, count, refresh))
}
