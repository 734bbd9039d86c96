package notifyserver

import (
	"log"
	"net/http"

	"bookclub/internal/auth"
	"bookclub/internal/config"
	ws "bookclub/internal/websocket"
)

// WebSocketHandler 负责处理通知 WebSocket 连接请求。
type WebSocketHandler struct {
	hub       *ws.Hub
	authCfg   config.AuthConfig
	wsCfg     config.WebSocketConfig
	blacklist auth.TokenBlacklist
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。blacklist 可以为 nil。
func NewWebSocketHandler(hub *ws.Hub, cfg config.Config, blacklist auth.TokenBlacklist) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		authCfg:   cfg.Auth,
		wsCfg:     cfg.WebSocket,
		blacklist: blacklist,
	}
}

// ServeWS 校验 ?token= 后将连接升级为 WebSocket。浏览器无法为 WebSocket 设置 Authorization 头。
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "缺少认证令牌", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(r.Context(), token, h.authCfg.JWTSecretKey, h.blacklist)
	if err != nil {
		log.Printf("WebSocket 连接尝试失败：令牌无效: %v", err)
		http.Error(w, "令牌无效", http.StatusUnauthorized)
		return
	}
	log.Printf("用户 %s (ID: %d) 连接通知 WebSocket", claims.Username, claims.UserID)

	ws.ServeWsPerConnection(h.hub, claims.UserID, w, r, h.wsCfg)
}
