package controller

import (
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ApplicationController struct {
	ApplicationService *service.ApplicationService
}

func NewApplicationController(applicationService *service.ApplicationService) *ApplicationController {
	return &ApplicationController{ApplicationService: applicationService}
}

// swagger:model ApplyBody
type ApplyBody struct {
	Message string `json:"message" binding:"max=1000"`
}

// ApplyToRequest godoc
// @Summary 申请帮助
// @Tags 申请
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Param body body ApplyBody false "留言"
// @Success 201 {object} util.Response{data=model.Application}
// @Failure 400 {object} util.Response "求助已关闭或申请自己的求助"
// @Failure 409 {object} util.Response "重复申请"
// @Router /api/requests/{id}/applications [post]
func (c *ApplicationController) ApplyToRequest(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req ApplyBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	app, err := c.ApplicationService.ApplyToRequest(ctx.Request.Context(), p, ctx.Param("id"), req.Message)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, app)
}

// AcceptApplication godoc
// @Summary 接受申请
// @Description 原子操作：接受该申请、拒绝其余待处理申请、求助进入 IN_PROGRESS
// @Tags 申请
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "申请ID"
// @Success 200 {object} util.Response{data=model.Application}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/applications/{id}/accept [post]
func (c *ApplicationController) AcceptApplication(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	app, err := c.ApplicationService.AcceptApplication(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, app)
}

// RemoveApplication godoc
// @Summary 撤回申请（仅限待处理）
// @Tags 申请
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "申请ID"
// @Success 200 {object} util.Response
// @Router /api/applications/{id} [delete]
func (c *ApplicationController) RemoveApplication(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	if err := c.ApplicationService.RemoveApplication(ctx.Request.Context(), p, ctx.Param("id")); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"removed": true})
}

// ListApplications godoc
// @Summary 求助的申请列表
// @Tags 申请
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Success 200 {object} util.Response{data=[]model.Application}
// @Router /api/requests/{id}/applications [get]
func (c *ApplicationController) ListApplications(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	apps, err := c.ApplicationService.ListApplications(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, apps)
}

// ListMyApplications godoc
// @Summary 我的申请
// @Tags 申请
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "APPLIED/ACCEPTED/REJECTED"
// @Success 200 {object} util.Response{data=[]model.Application}
// @Router /api/me/applications [get]
func (c *ApplicationController) ListMyApplications(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	apps, err := c.ApplicationService.ListMyApplications(ctx.Request.Context(), p, model.ApplicationStatus(ctx.Query("status")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, apps)
}
