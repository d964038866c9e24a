package controller

import (
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 管理端账号操作
type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// swagger:model SetActiveRequest
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// swagger:model SetRoleRequest
type SetRoleRequest struct {
	Role model.UserRole `json:"role" binding:"required,oneof=resident admin"`
}

// ListUsers godoc
// @Summary 获取用户列表
// @Description 获取用户列表，支持分页和筛选
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Param   q query string false "按姓名或邮箱搜索"
// @Param   active query bool false "是否启用"
// @Param   role query string false "角色筛选"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 403 {object} util.Response "非管理员"
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	active, ok := optionalBool(ctx, "active")
	if !ok {
		return
	}
	pageNum, limit := pageQuery(ctx)

	users, total, err := c.UserService.ListUsers(ctx.Request.Context(), p, service.UserListFilter{
		Query:  ctx.Query("q"),
		Active: active,
		Role:   model.UserRole(ctx.Query("role")),
	}, pageNum, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page(users, total, pageNum, limit))
}

// SetUserActive godoc
// @Summary 启用/封禁账号
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body SetActiveRequest true "是否启用"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/admin/users/{id}/active [patch]
func (c *UserController) SetUserActive(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.SetUserActive(ctx.Request.Context(), p, id, *req.Active)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// SetUserRole godoc
// @Summary 修改账号角色
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body SetRoleRequest true "角色"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/admin/users/{id}/role [patch]
func (c *UserController) SetUserRole(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req SetRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.SetUserRole(ctx.Request.Context(), p, id, req.Role)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
