package handlers

import (
	"crypto/subtle"
	"net"
	"net/http"

	"wing-analyzer/internal/model"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// TokenHeader 内部入口令牌请求头
const TokenHeader = "X-Relay-Token"

// InternalGuard 内部入口鉴权：配置了令牌时校验请求头，否则只允许本机访问
func InternalGuard(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token != "" {
			got := c.GetHeader(TokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1 {
				c.Next()
				return
			}
		} else if isLoopback(c.Request.RemoteAddr) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorReply{
			Success: false,
			Error:   "internal surface is not reachable from this caller",
			Code:    model.CodeForbidden,
		})
	}
}

// isLoopback 只看 TCP 对端地址，不信任转发头
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ExternalCORS 外部入口跨域配置，"*" 表示允许任意来源
func ExternalCORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			break
		}
	}
	if !cfg.AllowAllOrigins {
		if len(origins) == 0 {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = origins
		}
	}

	return cors.New(cfg)
}
