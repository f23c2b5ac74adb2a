package model

import (
	"encoding/json"
	"time"
)

// 错误码
const (
	CodeLoginRequired   = "LOGIN_REQUIRED"
	CodeLoginCancelled  = "LOGIN_CANCELLED"
	CodeLoginBusy       = "LOGIN_BUSY"
	CodeNoData          = "NO_DATA"
	CodeInvalidURL      = "INVALID_URL"
	CodeUnsupportedType = "UNSUPPORTED_TYPE"
	CodeInvalidMessage  = "INVALID_MESSAGE"
	CodeForbidden       = "FORBIDDEN"
)

// 面向调用方的错误信息
const (
	MessageLoginRequired  = "Wing login is required."
	MessageLoginCancelled = "Wing login was cancelled."
	MessageLoginBusy      = "Too many requests are waiting for Wing login."
	MessageNoData         = "No sales data found for this product."
	MessageInvalidURL     = "Not a Coupang product URL. (e.g. https://www.coupang.com/vp/products/12345)"
)

// AnalysisResult 一次分析的结果，Success 决定序列化哪一种形态
type AnalysisResult struct {
	Success            bool
	URL                string
	ProductID          string
	VendorItemID       string
	Thumbnail          string
	DeliveryBadgeLabel string
	Timestamp          int64
	Summary            AnalysisSummary
	Products           []ProductAnalysis

	// 转发结果，仅在提供了 serverUrl 时设置
	ServerSent  *bool
	ServerError string

	Error string
	Code  string
}

type successShape struct {
	Success            bool              `json:"success"`
	URL                string            `json:"url"`
	ProductID          string            `json:"productId"`
	VendorItemID       string            `json:"vendorItemId,omitempty"`
	Thumbnail          string            `json:"thumbnail,omitempty"`
	DeliveryBadgeLabel string            `json:"deliveryBadgeLabel,omitempty"`
	Timestamp          int64             `json:"timestamp"`
	Summary            AnalysisSummary   `json:"summary"`
	Products           []ProductAnalysis `json:"products"`
	ServerSent         *bool             `json:"serverSent,omitempty"`
	ServerError        string            `json:"serverError,omitempty"`
}

type failureShape struct {
	Success   bool   `json:"success"`
	URL       string `json:"url"`
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// MarshalJSON 只输出成功或失败其中一种形态
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failureShape{
			Success:   false,
			URL:       r.URL,
			Error:     r.Error,
			Code:      r.Code,
			Timestamp: r.Timestamp,
		})
	}

	products := r.Products
	if products == nil {
		products = []ProductAnalysis{}
	}
	return json.Marshal(successShape{
		Success:            true,
		URL:                r.URL,
		ProductID:          r.ProductID,
		VendorItemID:       r.VendorItemID,
		Thumbnail:          r.Thumbnail,
		DeliveryBadgeLabel: r.DeliveryBadgeLabel,
		Timestamp:          r.Timestamp,
		Summary:            r.Summary,
		Products:           products,
		ServerSent:         r.ServerSent,
		ServerError:        r.ServerError,
	})
}

// UnmarshalJSON 两种形态都能解析，CLI 端使用
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		successShape
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = AnalysisResult{
		Success:            raw.Success,
		URL:                raw.URL,
		ProductID:          raw.ProductID,
		VendorItemID:       raw.VendorItemID,
		Thumbnail:          raw.Thumbnail,
		DeliveryBadgeLabel: raw.DeliveryBadgeLabel,
		Timestamp:          raw.Timestamp,
		Summary:            raw.Summary,
		Products:           raw.Products,
		ServerSent:         raw.ServerSent,
		ServerError:        raw.ServerError,
		Error:              raw.Error,
		Code:               raw.Code,
	}
	return nil
}

// Failure 构造失败结果
func Failure(url, code, message string, now time.Time) AnalysisResult {
	return AnalysisResult{
		Success:   false,
		URL:       url,
		Error:     message,
		Code:      code,
		Timestamp: now.UnixMilli(),
	}
}
