package controller

import (
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
}

func NewNotificationController(notificationService *service.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: notificationService}
}

// swagger:model MarkReadBody
type MarkReadBody struct {
	Read *bool `json:"read"`
}

// ListNotifications godoc
// @Summary 我的通知
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Param unread query bool false "仅未读"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	unread, ok := optionalBool(ctx, "unread")
	if !ok {
		return
	}
	pageNum, limit := pageQuery(ctx)

	list, total, err := c.NotificationService.ListNotifications(ctx.Request.Context(), p, unread != nil && *unread, pageNum, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, pageNum, limit))
}

// UnreadCount godoc
// @Summary 未读通知数
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	count, err := c.NotificationService.UnreadCount(ctx.Request.Context(), p)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"count": count})
}

// MarkRead godoc
// @Summary 标记已读/未读
// @Tags 通知
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "通知ID"
// @Param body body MarkReadBody false "默认标记为已读"
// @Success 200 {object} util.Response{data=model.Notification}
// @Router /api/notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req MarkReadBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	read := req.Read == nil || *req.Read

	n, err := c.NotificationService.MarkRead(ctx.Request.Context(), p, ctx.Param("id"), read)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, n)
}

// MarkAllRead godoc
// @Summary 全部标记已读
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/notifications/read-all [post]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	updated, err := c.NotificationService.MarkAllRead(ctx.Request.Context(), p)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": updated})
}

// DeleteNotification godoc
// @Summary 删除通知
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "通知ID"
// @Success 200 {object} util.Response
// @Router /api/notifications/{id} [delete]
func (c *NotificationController) DeleteNotification(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	if err := c.NotificationService.DeleteNotification(ctx.Request.Context(), p, ctx.Param("id")); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
