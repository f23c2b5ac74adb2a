// Package wing Coupang Wing 卖家后台与商城接口客户端
package wing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"wing-analyzer/internal/logger"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL Wing 卖家后台地址
	DefaultBaseURL = "https://wing.coupang.com"
	// DefaultStorefrontURL 商城地址
	DefaultStorefrontURL = "https://www.coupang.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// CookieSource 返回浏览器请求 rawURL 时会携带的全部 cookie（含父域 cookie）
type CookieSource interface {
	CookiesForURL(ctx context.Context, rawURL string) ([]*http.Cookie, error)
}

// Client Wing 客户端
type Client struct {
	baseURL       string
	storefrontURL string
	cookies       CookieSource
	httpClient    *http.Client
	logger        *zap.Logger
}

// Config 客户端配置，Timeout 为 0 表示不限时
type Config struct {
	BaseURL       string
	StorefrontURL string
	Timeout       time.Duration
	Cookies       CookieSource
	Logger        *zap.Logger
}

// response 原始 HTTP 响应
type response struct {
	status   int
	location string
	body     []byte
}

// NewClient 创建新的 Wing 客户端
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.StorefrontURL == "" {
		cfg.StorefrontURL = DefaultStorefrontURL
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		storefrontURL: cfg.StorefrontURL,
		cookies:       cfg.Cookies,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// 重定向说明会话失效，交给调用方判断
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.OrNop(cfg.Logger),
	}
}

// attachCookies 附加浏览器对该 URL 会发送的 cookie，读取失败时不带 cookie 继续
func (c *Client) attachCookies(ctx context.Context, req *http.Request) {
	if c.cookies == nil {
		return
	}
	rawURL := req.URL.String()
	cookies, err := c.cookies.CookiesForURL(ctx, rawURL)
	if err != nil {
		c.logger.Warn("failed to load cookies for request",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return
	}
	for _, ck := range cookies {
		if ck == nil {
			continue
		}
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
}

// do 执行 HTTP 请求并读取完整响应体，不跟随重定向
func (c *Client) do(ctx context.Context, method, rawURL string, jsonBody interface{}) (*response, error) {
	var reader io.Reader
	if jsonBody != nil {
		bodyBytes, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON body: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		c.logger.Error("failed to create request",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachCookies(ctx, req)

	c.logger.Debug("sending HTTP request",
		zap.String("method", method),
		zap.String("url", rawURL),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("HTTP request failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("HTTP response received",
		zap.String("url", rawURL),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("body_size", len(body)),
	)

	return &response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		body:     body,
	}, nil
}

// joinURL 拼接基础地址与路径
func joinURL(base string, elem ...string) (string, error) {
	full, err := url.JoinPath(base, elem...)
	if err != nil {
		return "", fmt.Errorf("failed to build URL: %w", err)
	}
	return full, nil
}
