package model

import (
	"encoding/json"
	"time"
)

// 消息类型
const (
	TypePing               = "PING"
	TypeAnalyzeURL         = "ANALYZE_URL"
	TypeGetSales           = "GET_SALES"
	TypeFetchDeliveryBadge = "FETCH_DELIVERY_BADGE"
)

// Message 内外部调用方发送给中继的请求
type Message struct {
	Type         string `json:"type" validate:"required,oneof=PING ANALYZE_URL GET_SALES FETCH_DELIVERY_BADGE"`
	ProductID    string `json:"productId,omitempty" validate:"required_if=Type GET_SALES,required_if=Type FETCH_DELIVERY_BADGE,omitempty,numeric"`
	VendorItemID string `json:"vendorItemId,omitempty" validate:"required_if=Type FETCH_DELIVERY_BADGE,omitempty,numeric"`
	URL          string `json:"url,omitempty"`
	ServerURL    string `json:"serverUrl,omitempty" validate:"omitempty,url"`
}

// AnalyzeRequest 解析后的分析请求，登录等待期间由协调器持有
type AnalyzeRequest struct {
	RequestID    string
	URL          string
	ProductID    string
	VendorItemID string
	ServerURL    string
	ReceivedAt   time.Time
}

// PingReply 连接探测响应
type PingReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SalesReply 内部 GET_SALES 响应，成功时 result 总是数组，记录原样透传
type SalesReply struct {
	Success bool              `json:"success"`
	Result  []json.RawMessage `json:"result,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// MarshalJSON 实现 json.Marshaler
func (r SalesReply) MarshalJSON() ([]byte, error) {
	if r.Success {
		result := r.Result
		if result == nil {
			result = []json.RawMessage{}
		}
		return json.Marshal(struct {
			Success bool              `json:"success"`
			Result  []json.RawMessage `json:"result"`
		}{true, result})
	}
	type plain SalesReply
	return json.Marshal(plain(r))
}

// BadgeReply 配送标签查询响应
type BadgeReply struct {
	Success            bool   `json:"success"`
	DeliveryBadgeLabel string `json:"deliveryBadgeLabel,omitempty"`
	Error              string `json:"error,omitempty"`
	Code               string `json:"code,omitempty"`
}

// ErrorReply 消息本身无法处理时的响应
type ErrorReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// SessionStatus 最近一次会话探测结果
type SessionStatus struct {
	Present   bool      `json:"present"`
	CheckedAt time.Time `json:"checkedAt"`
}

// LoginStatus 登录协调器状态
type LoginStatus struct {
	State   string `json:"state"`
	Pending int    `json:"pending"`
}

// StatusReply 状态接口响应
type StatusReply struct {
	Success bool          `json:"success"`
	Session SessionStatus `json:"session"`
	Login   LoginStatus   `json:"login"`
}
