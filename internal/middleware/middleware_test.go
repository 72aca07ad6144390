package middleware

import (
	"net/http"
	"net/http/httptest"
	"postcraft-go/internal/model"
	"postcraft-go/pkg/token"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter(m *token.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(), AuthMiddleware(m))
	r.GET("/me", func(c *gin.Context) {
		id, tier, ok := Identity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "tier": tier})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	m := token.NewJWTManager("secret", 1)
	r := newRouter(m)

	tok, _ := m.GenerateToken(5, model.TierAgency)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != `{"id":5,"tier":"agency"}` {
		t.Errorf("unexpected response %d %s", w.Code, w.Body.String())
	}

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, w.Code)
		}
	}
}
