package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"borgcache-go/internal/api/handler"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, catalogHandler *handler.CatalogHandler) {
	api := h.Group("/api/v1")

	api.GET("/autocomp", catalogHandler.HandleAutocomplete)
	api.GET("/search", catalogHandler.HandleFullTextSearch)
	api.GET("/animals/:id", catalogHandler.HandleGetAnimal)
	api.POST("/sightings", catalogHandler.HandleCreateSighting)

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
