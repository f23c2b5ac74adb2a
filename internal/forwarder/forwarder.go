// Package forwarder 把分析结果推送到调用方指定的服务端
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/model"

	"go.uber.org/zap"
)

// Forwarder 结果转发器
type Forwarder struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// Config 转发器配置，Timeout 为 0 表示不限时
type Config struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// New 创建转发器
func New(cfg Config) *Forwarder {
	return &Forwarder{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.OrNop(cfg.Logger),
	}
}

// Forward 以 JSON POST 推送结果，传输失败或非 2xx 返回错误
func (f *Forwarder) Forward(ctx context.Context, serverURL string, result model.AnalysisResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn("failed to forward result",
			zap.String("server_url", serverURL),
			zap.Error(err),
		)
		return fmt.Errorf("failed to forward result: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn("server rejected forwarded result",
			zap.String("server_url", serverURL),
			zap.Int("status_code", resp.StatusCode),
		)
		return fmt.Errorf("server responded with %d", resp.StatusCode)
	}

	f.logger.Info("result forwarded",
		zap.String("server_url", serverURL),
		zap.String("product_id", result.ProductID),
	)
	return nil
}
