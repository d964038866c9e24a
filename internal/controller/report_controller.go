package controller

import (
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	ReportService *service.ReportService
}

func NewReportController(reportService *service.ReportService) *ReportController {
	return &ReportController{ReportService: reportService}
}

// swagger:model ReportBody
type ReportBody struct {
	Reason  string `json:"reason" binding:"required,max=100"`
	Details string `json:"details" binding:"max=5000"`
}

// swagger:model ResolveReportBody
type ResolveReportBody struct {
	Action string `json:"action" binding:"required"`
	Notes  string `json:"notes" binding:"max=5000"`
}

// swagger:model DismissReportBody
type DismissReportBody struct {
	Notes string `json:"notes" binding:"max=5000"`
}

// ReportUser godoc
// @Summary 举报用户
// @Tags 举报
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param body body ReportBody true "举报原因"
// @Success 201 {object} util.Response{data=model.Report}
// @Router /api/users/{id}/reports [post]
func (c *ReportController) ReportUser(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	userID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req ReportBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	report, err := c.ReportService.ReportUser(ctx.Request.Context(), p, userID, req.Reason, req.Details)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, report)
}

// ReportRequest godoc
// @Summary 举报求助
// @Tags 举报
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Param body body ReportBody true "举报原因"
// @Success 201 {object} util.Response{data=model.Report}
// @Router /api/requests/{id}/reports [post]
func (c *ReportController) ReportRequest(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req ReportBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	report, err := c.ReportService.ReportRequest(ctx.Request.Context(), p, ctx.Param("id"), req.Reason, req.Details)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, report)
}

// ListReports godoc
// @Summary 举报列表（管理员）
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "PENDING/RESOLVED/DISMISSED"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/reports [get]
func (c *ReportController) ListReports(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	pageNum, limit := pageQuery(ctx)
	list, total, err := c.ReportService.ListReports(ctx.Request.Context(), p, model.ReportStatus(ctx.Query("status")), pageNum, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, pageNum, limit))
}

// GetReport godoc
// @Summary 举报详情（管理员或举报人）
// @Tags 举报
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "举报ID"
// @Success 200 {object} util.Response{data=model.Report}
// @Router /api/reports/{id} [get]
func (c *ReportController) GetReport(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	report, err := c.ReportService.GetReport(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// ResolveReport godoc
// @Summary 处理举报
// @Description action: NO_ACTION / WARNING / BLOCK_USER / REMOVE_REQUEST
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "举报ID"
// @Param body body ResolveReportBody true "处理动作"
// @Success 200 {object} util.Response{data=model.Report}
// @Failure 400 {object} util.Response "举报已处理或动作无效"
// @Router /api/admin/reports/{id}/resolve [post]
func (c *ReportController) ResolveReport(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req ResolveReportBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	report, err := c.ReportService.ResolveReport(ctx.Request.Context(), p, ctx.Param("id"), req.Action, req.Notes)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// DismissReport godoc
// @Summary 驳回举报
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "举报ID"
// @Param body body DismissReportBody false "备注"
// @Success 200 {object} util.Response{data=model.Report}
// @Router /api/admin/reports/{id}/dismiss [post]
func (c *ReportController) DismissReport(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req DismissReportBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	report, err := c.ReportService.DismissReport(ctx.Request.Context(), p, ctx.Param("id"), req.Notes)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
