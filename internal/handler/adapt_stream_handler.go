package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"postcraft-go/internal/middleware"
	"postcraft-go/internal/model"
	"postcraft-go/internal/service"
	"postcraft-go/pkg/log"
	"postcraft-go/pkg/token"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// streamMessage 是推送给客户端的一帧。
type streamMessage struct {
	Type      string      `json:"type"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// AdaptStreamHandler 通过 WebSocket 逐个平台推送改写结果。
type AdaptStreamHandler struct {
	adaptationService service.AdaptationService
	jwtManager        *token.JWTManager
}

// NewAdaptStreamHandler 创建一个新的 AdaptStreamHandler。
func NewAdaptStreamHandler(adaptationService service.AdaptationService, jwtManager *token.JWTManager) *AdaptStreamHandler {
	return &AdaptStreamHandler{adaptationService: adaptationService, jwtManager: jwtManager}
}

// Handle 处理一个 WebSocket 连接。浏览器无法设置请求头，token 放在路径中。
// 客户端每发送一个 {"text","style"} 请求，服务端依次推送三条 adaptation 帧和一条 completion 帧。
func (h *AdaptStreamHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}
	middleware.SetIdentity(c, claims)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("[AdaptStream] WebSocket 连接已建立，用户: %d", claims.UserID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("[AdaptStream] 读取消息失败: %v", err)
			}
			return
		}

		var req AdaptRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Text == "" {
			if writeErr := writeFrame(conn, streamMessage{Type: "error", Message: "无效的请求：text 不能为空"}); writeErr != nil {
				return
			}
			continue
		}

		var writeErr error
		res, err := h.adaptationService.AdaptAllStream(c.Request.Context(), claims.UserID, claims.Tier, req.Text, req.Style, func(pc model.PlatformContent) {
			if writeErr == nil {
				writeErr = writeFrame(conn, streamMessage{Type: "adaptation", Data: pc})
			}
		})
		if writeErr != nil {
			log.Warnf("[AdaptStream] 推送结果失败: %v", writeErr)
			return
		}
		if err != nil {
			frame := streamMessage{Type: "error", Message: "改写失败，请稍后重试"}
			var quotaErr *service.QuotaExceededError
			if errors.As(err, &quotaErr) {
				frame = streamMessage{Type: "quota_exceeded", Message: "今日配额已用完", Data: quotaErr.Quota}
			} else {
				log.Errorf("[AdaptStream] 改写失败: %v", err)
			}
			if writeFrame(conn, frame) != nil {
				return
			}
			continue
		}
		if writeFrame(conn, streamMessage{Type: "completion", Data: res}) != nil {
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, msg streamMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
