package controller

import (
	"helpmarket_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// principal 取当前调用方，缺失时直接返回 401
func principal(ctx *gin.Context) (util.Principal, bool) {
	p, ok := util.GetPrincipal(ctx)
	if !ok {
		util.Unauthorized(ctx)
	}
	return p, ok
}

func pageQuery(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(util.DefaultPageSize)))
	return util.NormalizePage(page, limit)
}

func uintParam(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		util.BadRequest(ctx, "id inválido")
		return 0, false
	}
	return id, true
}

// optionalBool 解析 true/false 查询参数，缺省返回 nil
func optionalBool(ctx *gin.Context, name string) (*bool, bool) {
	raw, exists := ctx.GetQuery(name)
	if !exists || raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		util.BadRequest(ctx, "parâmetro inválido: "+name)
		return nil, false
	}
	return &v, true
}

func page(list interface{}, total int64, page, limit int) util.PageResponse {
	return util.PageResponse{List: list, Total: total, Page: page, Limit: limit}
}
