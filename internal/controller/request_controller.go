package controller

import (
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type RequestController struct {
	RequestService *service.RequestService
}

func NewRequestController(requestService *service.RequestService) *RequestController {
	return &RequestController{RequestService: requestService}
}

// swagger:model CreateRequestBody
type CreateRequestBody struct {
	Title       string           `json:"title" binding:"required,max=120"`
	Description string           `json:"description" binding:"max=5000"`
	Category    string           `json:"category" binding:"required"`
	Paid        bool             `json:"paid"`
	Budget      *decimal.Decimal `json:"budget" swaggertype:"string"`
	Lat         float64          `json:"lat" binding:"required"`
	Lng         float64          `json:"lng" binding:"required"`
	City        string           `json:"city" binding:"required"`
	ImageURL    string           `json:"imageUrl" binding:"max=255"`
}

// swagger:model UpdateRequestBody
type UpdateRequestBody struct {
	Title       *string          `json:"title" binding:"omitempty,max=120"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Category    *string          `json:"category"`
	Paid        *bool            `json:"paid"`
	Budget      *decimal.Decimal `json:"budget" swaggertype:"string"`
	ClearBudget bool             `json:"clearBudget"`
	Lat         *float64         `json:"lat"`
	Lng         *float64         `json:"lng"`
	City        *string          `json:"city"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,max=255"`
}

// swagger:model UpdateStatusBody
type UpdateStatusBody struct {
	Status model.RequestStatus `json:"status" binding:"required"`
}

// CreateRequest godoc
// @Summary 发布求助
// @Tags 求助
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateRequestBody true "求助内容"
// @Success 201 {object} util.Response{data=model.HelpRequest}
// @Failure 400 {object} util.Response "位置不在服务区域内或参数错误"
// @Router /api/requests [post]
func (c *RequestController) CreateRequest(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req CreateRequestBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	created, err := c.RequestService.CreateRequest(ctx.Request.Context(), p, service.CreateRequestInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Paid:        req.Paid,
		Budget:      req.Budget,
		Lat:         req.Lat,
		Lng:         req.Lng,
		City:        req.City,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, created)
}

// GetRequest godoc
// @Summary 求助详情
// @Tags 求助
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Success 200 {object} util.Response{data=model.HelpRequest}
// @Failure 404 {object} util.Response
// @Router /api/requests/{id} [get]
func (c *RequestController) GetRequest(ctx *gin.Context) {
	req, err := c.RequestService.GetRequest(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, req)
}

// UpdateRequest godoc
// @Summary 修改求助（仅发布者，且求助仍处于 OPEN）
// @Tags 求助
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Param body body UpdateRequestBody true "修改字段"
// @Success 200 {object} util.Response{data=model.HelpRequest}
// @Router /api/requests/{id} [put]
func (c *RequestController) UpdateRequest(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req UpdateRequestBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	updated, err := c.RequestService.UpdateRequest(ctx.Request.Context(), p, ctx.Param("id"), service.UpdateRequestInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Paid:        req.Paid,
		Budget:      req.Budget,
		ClearBudget: req.ClearBudget,
		Lat:         req.Lat,
		Lng:         req.Lng,
		City:        req.City,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, updated)
}

// SearchRequests godoc
// @Summary 搜索求助
// @Description 传入 lat/lng/radiusKm 时按距离由近到远排序，否则按发布时间倒序
// @Tags 求助
// @Produce json
// @Security ApiKeyAuth
// @Param category query string false "分类"
// @Param status query string false "状态"
// @Param paid query bool false "是否有偿"
// @Param lat query number false "中心纬度"
// @Param lng query number false "中心经度"
// @Param radiusKm query number false "半径(km)"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/requests [get]
func (c *RequestController) SearchRequests(ctx *gin.Context) {
	paid, ok := optionalBool(ctx, "paid")
	if !ok {
		return
	}
	pageNum, limit := pageQuery(ctx)

	in := service.SearchRequestsInput{
		Category: ctx.Query("category"),
		Status:   model.RequestStatus(ctx.Query("status")),
		Paid:     paid,
		Page:     pageNum,
		Limit:    limit,
	}

	latRaw, lngRaw := ctx.Query("lat"), ctx.Query("lng")
	if latRaw != "" || lngRaw != "" {
		lat, err1 := strconv.ParseFloat(latRaw, 64)
		lng, err2 := strconv.ParseFloat(lngRaw, 64)
		if err1 != nil || err2 != nil {
			util.BadRequest(ctx, "coordenadas inválidas")
			return
		}
		in.Center = &util.GeoPoint{Lat: lat, Lng: lng}
		if raw := ctx.Query("radiusKm"); raw != "" {
			radius, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				util.BadRequest(ctx, "raio inválido")
				return
			}
			in.RadiusKm = radius
		}
	}

	list, total, err := c.RequestService.SearchRequests(ctx.Request.Context(), in)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, pageNum, limit))
}

// ListMyRequests godoc
// @Summary 我发布的求助
// @Tags 求助
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/me/requests [get]
func (c *RequestController) ListMyRequests(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	pageNum, limit := pageQuery(ctx)
	list, total, err := c.RequestService.ListMyRequests(ctx.Request.Context(), p, model.RequestStatus(ctx.Query("status")), pageNum, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, pageNum, limit))
}

// UpdateRequestStatus godoc
// @Summary 变更求助状态
// @Tags 求助
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Param body body UpdateStatusBody true "目标状态"
// @Success 200 {object} util.Response{data=model.HelpRequest}
// @Failure 400 {object} util.Response "非法的状态流转"
// @Failure 403 {object} util.Response
// @Router /api/requests/{id}/status [patch]
func (c *RequestController) UpdateRequestStatus(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req UpdateStatusBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	updated, err := c.RequestService.UpdateRequestStatus(ctx.Request.Context(), p, ctx.Param("id"), req.Status)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, updated)
}
