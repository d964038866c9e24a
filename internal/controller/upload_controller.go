package controller

import (
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UploadController struct {
	StorageService *service.StorageService
}

func NewUploadController(storageService *service.StorageService) *UploadController {
	return &UploadController{StorageService: storageService}
}

// UploadImage godoc
// @Summary 上传图片
// @Description 用于求助配图或头像，超宽图片会被缩放，返回文件URL
// @Tags 上传
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "图片"
// @Success 201 {object} util.Response{data=map[string]string} "成功，返回文件URL"
// @Failure 400 {object} util.Response "文件为空、过大或类型不支持"
// @Router /api/uploads/images [post]
func (c *UploadController) UploadImage(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "o ficheiro é obrigatório")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	url, err := c.StorageService.UploadImage(ctx.Request.Context(), p.UserID, file.Filename, src, file.Size)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}
