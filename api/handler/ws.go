package handler

import (
	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/vibesocial/backend/internal/middleware"
	"github.com/vibesocial/backend/internal/services/hub"
)

// WSHandler upgrades push subscriptions. The handshake authenticates with a
// token query parameter because browser websocket clients cannot set an
// Authorization header.
type WSHandler struct {
	hub       *hub.Hub
	jwtSecret string
	upgrader  websocket.FastHTTPUpgrader
	logger    *zap.Logger
}

func NewWSHandler(h *hub.Hub, jwtSecret string, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		hub:       h,
		jwtSecret: jwtSecret,
		upgrader: websocket.FastHTTPUpgrader{
			CheckOrigin: func(ctx *fasthttp.RequestCtx) bool { return true },
		},
		logger: logger,
	}
}

// @Summary Subscribe to push notifications
// @Tags notifications
// @Router /ws/{user_id} [get]
func (h *WSHandler) Subscribe(ctx *fasthttp.RequestCtx) {
	pathUserID, _ := ctx.UserValue("user_id").(string)
	token := string(ctx.QueryArgs().Peek("token"))
	if token == "" {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		return
	}

	userID, err := middleware.VerifyToken(token, h.jwtSecret)
	if err != nil || userID != pathUserID {
		h.logger.Warn("push handshake rejected",
			zap.String("path_user_id", pathUserID), zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		return
	}

	err = h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		h.hub.Register(userID, conn)
		defer func() {
			h.hub.Unregister(userID, conn)
			conn.Close()
		}()
		// Clients never send application frames; the read pump only
		// notices disconnects and answers pings.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}
