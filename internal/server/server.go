// Package server 中继的 HTTP 传输层
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"wing-analyzer/internal/config"
	"wing-analyzer/internal/server/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 服务器依赖
type Dependencies struct {
	Relay  handlers.Relay
	Logger *zap.Logger
}

// Server HTTP 服务器
type Server struct {
	config       *config.ServerConfig
	router       *gin.Engine
	logger       *zap.Logger
	httpServer   *http.Server
	dependencies *Dependencies
}

// NewServer 创建新的 HTTP 服务器
func NewServer(cfg *config.ServerConfig, logger *zap.Logger, deps *Dependencies) *Server {
	gin.SetMode(cfg.Mode)

	router := gin.New()
	router.Use(ginLogger(logger))
	router.Use(gin.Recovery())

	server := &Server{
		config:       cfg,
		router:       router,
		logger:       logger,
		dependencies: deps,
	}

	NewRouter(router, cfg, logger, deps).SetupRoutes()

	// 外部分析请求可能要等用户完成登录，WriteTimeout 默认不限制
	server.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.WriteTimeoutDuration,
		IdleTimeout:       60 * time.Second,
	}

	return server
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动服务器
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.logger.Info("HTTP server is disabled, skipping startup")
		return nil
	}

	s.logger.Info("starting HTTP server",
		zap.String("host", s.config.Host),
		zap.Int("port", s.config.Port),
		zap.String("mode", s.config.Mode),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	return nil
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down HTTP server", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// ginLogger 自定义 gin 日志中间件
func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("error", c.Errors.ByType(gin.ErrorTypePrivate).String()),
		)
	}
}
