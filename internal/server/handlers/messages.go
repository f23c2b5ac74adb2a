package handlers

import (
	"context"
	"errors"
	"net/http"

	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/model"
	"wing-analyzer/internal/relay"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Relay 处理器依赖的中继接口
type Relay interface {
	DispatchInternal(ctx context.Context, msg model.Message) (<-chan any, error)
	DispatchExternal(ctx context.Context, msg model.Message) (<-chan any, error)
	Status() model.StatusReply
}

type dispatchFunc func(ctx context.Context, msg model.Message) (<-chan any, error)

// MessageHandler 消息处理器
type MessageHandler struct {
	relay  Relay
	logger *zap.Logger
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(r Relay, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		relay:  r,
		logger: logger.OrNop(log),
	}
}

// HandleInternal 内部入口
func (h *MessageHandler) HandleInternal(c *gin.Context) {
	h.handle(c, "internal", h.relay.DispatchInternal)
}

// HandleExternal 外部入口
func (h *MessageHandler) HandleExternal(c *gin.Context) {
	h.handle(c, "external", h.relay.DispatchExternal)
}

// Status 会话与登录状态
func (h *MessageHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.relay.Status())
}

func (h *MessageHandler) handle(c *gin.Context, surface string, dispatch dispatchFunc) {
	var msg model.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		h.logger.Warn("failed to decode message",
			zap.String("surface", surface),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, model.ErrorReply{
			Success: false,
			Error:   "request body must be a JSON message",
			Code:    model.CodeInvalidMessage,
		})
		return
	}

	reply, err := dispatch(c.Request.Context(), msg)
	if err != nil {
		code := model.CodeInvalidMessage
		if errors.Is(err, relay.ErrUnsupportedType) {
			code = model.CodeUnsupportedType
		}
		h.logger.Warn("message rejected",
			zap.String("surface", surface),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, model.ErrorReply{Success: false, Error: err.Error(), Code: code})
		return
	}

	select {
	case v := <-reply:
		c.JSON(http.StatusOK, v)
	case <-c.Request.Context().Done():
		// 调用方已断开，结果由中继继续完成后丢弃
		h.logger.Info("caller went away before reply",
			zap.String("surface", surface),
			zap.String("type", msg.Type),
		)
	}
}
