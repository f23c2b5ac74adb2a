package server

import (
	"wing-analyzer/internal/config"
	"wing-analyzer/internal/server/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router 路由管理器
type Router struct {
	router       *gin.Engine
	config       *config.ServerConfig
	logger       *zap.Logger
	dependencies *Dependencies
}

// NewRouter 创建路由管理器
func NewRouter(router *gin.Engine, cfg *config.ServerConfig, logger *zap.Logger, deps *Dependencies) *Router {
	return &Router{
		router:       router,
		config:       cfg,
		logger:       logger,
		dependencies: deps,
	}
}

// SetupRoutes 设置所有路由
func (r *Router) SetupRoutes() {
	if r.dependencies == nil || r.dependencies.Relay == nil {
		return
	}

	h := handlers.NewMessageHandler(r.dependencies.Relay, r.logger)

	api := r.router.Group("/api/v1")
	{
		api.GET("/status", h.Status)

		// 内部入口：页面覆盖层、CLI
		internal := api.Group("/internal")
		internal.Use(handlers.InternalGuard(r.config.InternalToken))
		{
			internal.POST("/messages", h.HandleInternal)
		}

		// 外部入口：独立仪表盘，允许跨域
		external := api.Group("/external")
		external.Use(handlers.ExternalCORS(r.config.AllowedOrigins))
		{
			external.POST("/messages", h.HandleExternal)
			external.OPTIONS("/messages", func(c *gin.Context) {})
		}
	}
}
