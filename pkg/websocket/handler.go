package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fpiersk/config"
	"fpiersk/internal/session"
	"fpiersk/pkg/jwt"
	"fpiersk/pkg/redis"
	"fpiersk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// WsHandler Gin路由处理函数
// 建立连接后把该连接注册为会话的推送出口：每个同步tick
// 重渲染的会话内容经此连接送达客户端
func WsHandler(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Sec-WebSocket-Protocol"), "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "缺少token")
		return
	}

	jwtCfg := c.MustGet("jwt_config").(config.JWTConfig) // 需在main.go注入
	jwtSvc := jwt.NewJWTService(jwtCfg)
	claims, err := jwtSvc.ValidateToken(token)
	if err != nil {
		response.Unauthorized(c, "token无效或已过期")
		return
	}
	email := claims.Subject
	if email == "" {
		response.Unauthorized(c, "token无效")
		return
	}
	nick := ""
	if claims.Data != nil {
		if n, ok := claims.Data["nick"].(string); ok {
			nick = n
		}
	}

	sessions := c.MustGet("session_manager").(*session.Manager) // 需在main.go注入
	sess, err := sessions.Attach(email)
	if err != nil {
		response.Unauthorized(c, "用户不存在")
		return
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		return
	}

	client := NewClient(email, conn)
	GetManager().AddClient(email, client)
	notifier := NewNotifier(client)
	_ = sess.SetNotifier(notifier)

	// 连接建立后标记在线（Redis不可用时静默降级）
	_ = redis.SetUserPresence(email, nick, "online")

	defer func() {
		client.Close()
		// 仅解除本连接绑定的出口：本连接若已被同邮箱的重连替换，
		// 新连接的出口与在线状态不受影响
		_ = sess.ClearNotifier(notifier)
		if GetManager().RemoveClient(email, client) {
			_ = redis.SetUserPresence(email, nick, "offline")
		}
	}()

	wsCfg := c.MustGet("ws_config").(config.WebSocketConfig)

	// 写协程 + 定时发送ping心跳
	go func() {
		ticker := time.NewTicker(wsCfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg := <-client.Send:
				_ = conn.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-client.Done():
				return
			}
		}
	}()

	// 读协程（接收心跳/客户端指令）。若超时未收到任何读事件则断开
	_ = conn.SetReadDeadline(time.Now().Add(wsCfg.ReadTimeout))
	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(wsCfg.ReadTimeout))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsCfg.ReadTimeout))
		var msg map[string]interface{}
		if err := json.Unmarshal(payload, &msg); err == nil {
			if t, ok := msg["type"].(string); ok {
				switch t {
				case "open_conversation":
					// 客户端切换当前会话，之后每个tick推送该会话的重渲染
					if friend, ok := msg["friend"].(string); ok && friend != "" {
						_, _ = sess.OpenConversation(friend)
					}
				case "close_conversation":
					_ = sess.CloseConversation()
				case "heartbeat":
					_ = redis.SetUserPresence(email, nick, "online")
				}
			}
		}
	}
}
