// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"postcraft-go/internal/content"
	"postcraft-go/internal/middleware"
	"postcraft-go/internal/model"
	"postcraft-go/internal/service"
	"postcraft-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondError 把服务层错误映射为统一的 {code, message, data} 响应。
func respondError(c *gin.Context, scope string, err error) {
	var quotaErr *service.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    http.StatusTooManyRequests,
			"message": "今日配额已用完",
			"data":    quotaErr.Quota,
		})
	case errors.Is(err, content.ErrGenerationFailed):
		log.Warnf("%s: generation failed: %v", scope, err)
		c.JSON(http.StatusBadGateway, gin.H{"code": http.StatusBadGateway, "message": "内容生成服务暂时不可用，请稍后重试", "data": nil})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "记录不存在", "data": nil})
	case errors.Is(err, service.ErrArchiveUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "归档不存在", "data": nil})
	default:
		log.Errorf("%s: %v", scope, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "服务器内部错误", "data": nil})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": message, "data": nil})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

// identity 读取认证信息，缺失时直接写 401。
func identity(c *gin.Context) (uint, model.Tier, bool) {
	userID, tier, found := middleware.Identity(c)
	if !found {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "未认证", "data": nil})
	}
	return userID, tier, found
}

// platformParam 解析平台参数，失败时直接写 400。
func platformParam(c *gin.Context, raw string) (model.Platform, bool) {
	p, err := model.ParsePlatform(raw)
	if err != nil {
		badRequest(c, "不支持的平台: "+raw)
		return "", false
	}
	return p, true
}
