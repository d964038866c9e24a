package controller

import (
	"helpmarket_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type LiveController struct {
	Hub *service.LiveHub
}

func NewLiveController(hub *service.LiveHub) *LiveController {
	return &LiveController{Hub: hub}
}

// HandleWS godoc
// @Summary WebSocket 连接
// @Description 建立实时连接：自动加入个人房间，通过 JOIN_REQUEST/LEAVE_REQUEST 订阅求助房间
// @Tags 实时
// @Security ApiKeyAuth
// @Param   token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/live/ws [get]
func (c *LiveController) HandleWS(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, p)
}
