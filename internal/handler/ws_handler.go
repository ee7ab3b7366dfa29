package handler

import (
	"net/http"

	ws "github.com/dushixiang/pika-alert/internal/websocket"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WSHandler 实时推送处理器
type WSHandler struct {
	logger   *zap.Logger
	manager  *ws.Manager
	upgrader websocket.Upgrader
}

// NewWSHandler 创建处理器
func NewWSHandler(logger *zap.Logger, manager *ws.Manager) *WSHandler {
	return &WSHandler{
		logger:  logger,
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve 建立 websocket 连接
// GET /api/ws?token=
func (h *WSHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket 升级失败", zap.Error(err))
		return nil
	}
	h.manager.ServeConn(conn)
	return nil
}
