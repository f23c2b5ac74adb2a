// Package relay 中继入口：内部入口直接查询，外部入口负责 URL 解析、会话检查和登录协调
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/model"
	"wing-analyzer/internal/wing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PingMessage PING 响应文本
const PingMessage = "Extension connected"

// SessionChecker 会话探测
type SessionChecker interface {
	HasSession(ctx context.Context) bool
	Status() model.SessionStatus
}

// LoginCoordinator 会话缺失时接管分析请求
type LoginCoordinator interface {
	Submit(ctx context.Context, req model.AnalyzeRequest) <-chan model.AnalysisResult
	Status() model.LoginStatus
}

// Runner 已登录时执行分析
type Runner interface {
	Run(ctx context.Context, req model.AnalyzeRequest) model.AnalysisResult
}

// Config 中继依赖
type Config struct {
	Client      SalesClient
	Prober      SessionChecker
	Runner      Runner
	Coordinator LoginCoordinator
	Logger      *zap.Logger
}

// Relay 请求中继
type Relay struct {
	client      SalesClient
	prober      SessionChecker
	runner      Runner
	coordinator LoginCoordinator
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// New 创建中继
func New(cfg Config) *Relay {
	return &Relay{
		client:      cfg.Client,
		prober:      cfg.Prober,
		runner:      cfg.Runner,
		coordinator: cfg.Coordinator,
		validate:    validator.New(),
		logger:      logger.OrNop(cfg.Logger),
		now:         time.Now,
	}
}

// Ping 连接探测
func (r *Relay) Ping() model.PingReply {
	return model.PingReply{Success: true, Message: PingMessage}
}

// AnalyzeURL 外部分析入口，返回的通道恰好收到一个结果
func (r *Relay) AnalyzeURL(ctx context.Context, rawURL, serverURL string) <-chan model.AnalysisResult {
	productID, vendorItemID, err := ParseProductURL(rawURL)
	if err != nil {
		r.logger.Info("rejecting non-product url", zap.String("url", rawURL))
		reply := make(chan model.AnalysisResult, 1)
		reply <- model.Failure(rawURL, model.CodeInvalidURL, model.MessageInvalidURL, r.now())
		return reply
	}

	req := model.AnalyzeRequest{
		RequestID:    uuid.NewString(),
		URL:          rawURL,
		ProductID:    productID,
		VendorItemID: vendorItemID,
		ServerURL:    serverURL,
		ReceivedAt:   r.now(),
	}

	r.logger.Info("analyze request received",
		zap.String("request_id", req.RequestID),
		zap.String("product_id", productID),
		zap.String("vendor_item_id", vendorItemID),
		zap.Bool("forward", serverURL != ""),
	)

	if !r.prober.HasSession(ctx) {
		return r.coordinator.Submit(ctx, req)
	}

	reply := make(chan model.AnalysisResult, 1)
	go func() {
		reply <- r.runner.Run(context.WithoutCancel(ctx), req)
	}()
	return reply
}

// GetSales 内部查询入口：只做会话检查和一次查询，不触发登录流程
func (r *Relay) GetSales(ctx context.Context, productID string) <-chan model.SalesReply {
	reply := make(chan model.SalesReply, 1)

	if !r.prober.HasSession(ctx) {
		reply <- model.SalesReply{Success: false, Code: model.CodeLoginRequired}
		return reply
	}

	go func() {
		records, err := r.client.SearchSalesRaw(ctx, productID)
		switch {
		case err == nil:
			reply <- model.SalesReply{Success: true, Result: records}
		case errors.Is(err, wing.ErrNoData):
			reply <- model.SalesReply{Success: false, Code: model.CodeNoData, Message: model.MessageNoData}
		default:
			reply <- model.SalesReply{Success: false, Code: model.CodeLoginRequired}
		}
	}()
	return reply
}

// DeliveryBadge 内部配送标签查询入口
func (r *Relay) DeliveryBadge(ctx context.Context, productID, vendorItemID string) <-chan model.BadgeReply {
	reply := make(chan model.BadgeReply, 1)
	go func() {
		label, found, err := r.client.DeliveryBadge(ctx, productID, vendorItemID)
		switch {
		case err != nil:
			reply <- model.BadgeReply{Success: false, Error: err.Error()}
		case !found:
			reply <- model.BadgeReply{Success: false, Error: "deliveryBadgeLabel not found"}
		default:
			reply <- model.BadgeReply{Success: true, DeliveryBadgeLabel: label}
		}
	}()
	return reply
}

// Status 会话和登录流程状态
func (r *Relay) Status() model.StatusReply {
	return model.StatusReply{
		Success: true,
		Session: r.prober.Status(),
		Login:   r.coordinator.Status(),
	}
}

// DispatchInternal 路由内部入口消息：GET_SALES、FETCH_DELIVERY_BADGE
func (r *Relay) DispatchInternal(ctx context.Context, msg model.Message) (<-chan any, error) {
	if err := r.validateMessage(msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case model.TypeGetSales:
		return forward(r.GetSales(ctx, msg.ProductID)), nil
	case model.TypeFetchDeliveryBadge:
		return forward(r.DeliveryBadge(ctx, msg.ProductID, msg.VendorItemID)), nil
	default:
		return nil, fmt.Errorf("%w: %s on internal surface", ErrUnsupportedType, msg.Type)
	}
}

// DispatchExternal 路由外部入口消息：PING、ANALYZE_URL
func (r *Relay) DispatchExternal(ctx context.Context, msg model.Message) (<-chan any, error) {
	if err := r.validateMessage(msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case model.TypePing:
		reply := make(chan any, 1)
		reply <- r.Ping()
		return reply, nil
	case model.TypeAnalyzeURL:
		return forward(r.AnalyzeURL(ctx, msg.URL, msg.ServerURL)), nil
	default:
		return nil, fmt.Errorf("%w: %s on external surface", ErrUnsupportedType, msg.Type)
	}
}

func (r *Relay) validateMessage(msg model.Message) error {
	if err := r.validate.Struct(msg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Type" && fe.Tag() == "oneof" {
					return fmt.Errorf("%w: %s", ErrUnsupportedType, msg.Type)
				}
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// forward 把具体类型的单值通道转换为 any 通道
func forward[T any](in <-chan T) <-chan any {
	out := make(chan any, 1)
	go func() {
		out <- <-in
	}()
	return out
}
