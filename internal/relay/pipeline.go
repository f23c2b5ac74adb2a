package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wing-analyzer/internal/aggregate"
	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/model"
	"wing-analyzer/internal/wing"

	"go.uber.org/zap"
)

// SalesClient Wing 查询
type SalesClient interface {
	SearchSales(ctx context.Context, productID string) ([]model.ProductRecord, error)
	SearchSalesRaw(ctx context.Context, productID string) ([]json.RawMessage, error)
	DeliveryBadge(ctx context.Context, productID, vendorItemID string) (string, bool, error)
}

// ResultForwarder 结果转发
type ResultForwarder interface {
	Forward(ctx context.Context, serverURL string, result model.AnalysisResult) error
}

// Pipeline 查询、聚合、补充配送标签、转发
type Pipeline struct {
	client    SalesClient
	forwarder ResultForwarder
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipeline 创建分析流水线
func NewPipeline(client SalesClient, forwarder ResultForwarder, log *zap.Logger) *Pipeline {
	return &Pipeline{
		client:    client,
		forwarder: forwarder,
		logger:    logger.OrNop(log),
		now:       time.Now,
	}
}

// Run 执行一次完整分析，错误都体现在结果中
func (p *Pipeline) Run(ctx context.Context, req model.AnalyzeRequest) model.AnalysisResult {
	records, err := p.client.SearchSales(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, wing.ErrNoData) {
			p.logger.Info("no sales data",
				zap.String("request_id", req.RequestID),
				zap.String("product_id", req.ProductID),
			)
			return model.Failure(req.URL, model.CodeNoData, model.MessageNoData, p.now())
		}
		p.logger.Info("wing query requires login",
			zap.String("request_id", req.RequestID),
			zap.String("product_id", req.ProductID),
			zap.Error(err),
		)
		return model.Failure(req.URL, model.CodeLoginRequired, model.MessageLoginRequired, p.now())
	}

	agg := aggregate.Aggregate(records)
	result := model.AnalysisResult{
		Success:      true,
		URL:          req.URL,
		ProductID:    req.ProductID,
		VendorItemID: req.VendorItemID,
		Thumbnail:    agg.Thumbnail,
		Timestamp:    p.now().UnixMilli(),
		Summary:      agg.Summary,
		Products:     agg.Products,
	}

	if req.VendorItemID != "" {
		label, found, err := p.client.DeliveryBadge(ctx, req.ProductID, req.VendorItemID)
		switch {
		case err != nil:
			p.logger.Debug("delivery badge lookup failed",
				zap.String("request_id", req.RequestID),
				zap.Error(err),
			)
		case found:
			result.DeliveryBadgeLabel = label
		}
	}

	if req.ServerURL != "" {
		sent := true
		if err := p.forwarder.Forward(ctx, req.ServerURL, result); err != nil {
			sent = false
			result.ServerError = err.Error()
		}
		result.ServerSent = &sent
	}

	p.logger.Info("analysis completed",
		zap.String("request_id", req.RequestID),
		zap.String("product_id", req.ProductID),
		zap.Int("products", result.Summary.TotalProducts),
	)
	return result
}
