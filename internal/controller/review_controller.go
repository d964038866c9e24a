package controller

import (
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// swagger:model CreateReviewBody
type CreateReviewBody struct {
	RevieweeID uint   `json:"revieweeId"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment" binding:"max=1000"`
}

// CreateReview godoc
// @Summary 评价对方
// @Description 求助完成后，发布者与被接受的帮助者可以互评一次
// @Tags 评价
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Param body body CreateReviewBody true "评分 1-5"
// @Success 201 {object} util.Response{data=model.Review}
// @Failure 409 {object} util.Response "已评价"
// @Router /api/requests/{id}/reviews [post]
func (c *ReviewController) CreateReview(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req CreateReviewBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	review, err := c.ReviewService.CreateReview(ctx.Request.Context(), p, ctx.Param("id"), req.RevieweeID, req.Rating, req.Comment)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, review)
}

// CanReview godoc
// @Summary 是否可以评价
// @Tags 评价
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/requests/{id}/can-review [get]
func (c *ReviewController) CanReview(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	e, err := c.ReviewService.CanReview(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	resp := gin.H{"canReview": e.Allowed()}
	if e.Allowed() {
		resp["revieweeId"] = e.RevieweeID
	} else {
		resp["reason"] = e.Reason.Error()
	}
	util.Success(ctx, resp)
}

// ListUserReviews godoc
// @Summary 用户收到的评价
// @Tags 评价
// @Produce json
// @Param id path int true "用户ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/users/{id}/reviews [get]
func (c *ReviewController) ListUserReviews(ctx *gin.Context) {
	userID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	pageNum, limit := pageQuery(ctx)
	list, total, err := c.ReviewService.ListUserReviews(ctx.Request.Context(), userID, pageNum, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, pageNum, limit))
}

// ListRequestReviews godoc
// @Summary 求助下的评价
// @Tags 评价
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "求助ID"
// @Success 200 {object} util.Response{data=[]model.Review}
// @Router /api/requests/{id}/reviews [get]
func (c *ReviewController) ListRequestReviews(ctx *gin.Context) {
	list, err := c.ReviewService.ListRequestReviews(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
