// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"postcraft-go/internal/model"
	"postcraft-go/pkg/token"
	"strings"

	"github.com/gin-gonic/gin"
)

// 上下文中保存认证信息的键
const (
	ContextUserID = "userID"
	ContextTier   = "tier"
	ContextClaims = "claims"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 认证通过后把用户 ID 与订阅档位写入上下文。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "请求未包含授权头", "data": nil})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的授权头格式", "data": nil})
			return
		}

		claims, err := jwtManager.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效或已过期的 token", "data": nil})
			return
		}

		SetIdentity(c, claims)
		c.Next()
	}
}

// SetIdentity 把 claims 写入上下文，WebSocket 路由在校验路径中的 token 后也会调用。
func SetIdentity(c *gin.Context, claims *token.CustomClaims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextTier, claims.Tier)
	c.Set(ContextClaims, claims)
}

// Identity 读取认证中间件写入的用户 ID 与档位。
func Identity(c *gin.Context) (uint, model.Tier, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		return 0, "", false
	}
	tier, _ := c.Get(ContextTier)
	t, _ := tier.(model.Tier)
	id, ok := userID.(uint)
	return id, model.ParseTier(string(t)), ok
}
