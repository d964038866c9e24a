package controller

import (
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MessageController struct {
	MessageService *service.MessageService
}

func NewMessageController(messageService *service.MessageService) *MessageController {
	return &MessageController{MessageService: messageService}
}

// swagger:model SendMessageBody
type SendMessageBody struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage godoc
// @Summary 在求助会话中发送消息
// @Tags 消息
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Param body body SendMessageBody true "消息"
// @Success 201 {object} util.Response{data=model.Message}
// @Failure 403 {object} util.Response "不是会话参与者"
// @Router /api/requests/{id}/messages [post]
func (c *MessageController) SendMessage(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req SendMessageBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	msg, err := c.MessageService.SendMessage(ctx.Request.Context(), p, ctx.Param("id"), req.Text)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}

// ListMessages godoc
// @Summary 会话消息（按时间升序）
// @Tags 消息
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/requests/{id}/messages [get]
func (c *MessageController) ListMessages(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	pageNum, limit := pageQuery(ctx)
	list, total, err := c.MessageService.ListMessages(ctx.Request.Context(), p, ctx.Param("id"), pageNum, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, pageNum, limit))
}
