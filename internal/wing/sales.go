package wing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"wing-analyzer/internal/model"

	"go.uber.org/zap"
)

// SearchPath 商品预匹配搜索接口
const SearchPath = "/tenants/seller-web/pre-matching/search"

// SearchRequest 搜索请求体
type SearchRequest struct {
	Keyword            string   `json:"keyword"`
	ExcludedProductIDs []string `json:"excludedProductIds"`
	SearchPage         int      `json:"searchPage"`
	SearchOrder        string   `json:"searchOrder"`
	SortType           string   `json:"sortType"`
}

// NewSearchRequest 以商品 ID 作为关键词构造搜索请求
func NewSearchRequest(productID string) SearchRequest {
	return SearchRequest{
		Keyword:            productID,
		ExcludedProductIDs: []string{},
		SearchPage:         0,
		SearchOrder:        "DEFAULT",
		SortType:           "DEFAULT",
	}
}

// SearchSales 查询商品在 Wing 中的 28 天销售数据
func (c *Client) SearchSales(ctx context.Context, productID string) ([]model.ProductRecord, error) {
	raw, err := c.SearchSalesRaw(ctx, productID)
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

// SearchSalesRaw 与 SearchSales 相同，但原样返回 result 中的每条记录
func (c *Client) SearchSalesRaw(ctx context.Context, productID string) ([]json.RawMessage, error) {
	endpoint, err := joinURL(c.baseURL, SearchPath)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, endpoint, NewSearchRequest(productID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginRequired, err)
	}

	raw, err := parseSearchResponse(resp)
	if err != nil {
		c.logger.Info("wing search rejected",
			zap.String("product_id", productID),
			zap.Int("status_code", resp.status),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("wing search succeeded",
		zap.String("product_id", productID),
		zap.Int("records", len(raw)),
	)
	return raw, nil
}

// parseSearchResponse 把原始响应映射为 result 数组或哨兵错误
func parseSearchResponse(resp *response) ([]json.RawMessage, error) {
	// 任何重定向都按会话失效处理，Location 可能为空
	if resp.status >= 300 && resp.status < 400 {
		return nil, fmt.Errorf("%w: redirected (status %d) to %q", ErrLoginRequired, resp.status, resp.location)
	}
	if resp.status < 200 || resp.status >= 400 {
		return nil, fmt.Errorf("%w: status code %d", ErrLoginRequired, resp.status)
	}

	trimmed := bytes.TrimSpace(resp.body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoData
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %v", ErrLoginRequired, err)
	}
	if len(envelope) == 0 {
		return nil, ErrNoData
	}

	result, ok := envelope["result"]
	if !ok {
		return nil, fmt.Errorf("%w: response has no result", ErrLoginRequired)
	}

	result = bytes.TrimSpace(result)
	if len(result) == 0 || result[0] != '[' {
		return nil, ErrNoData
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed result: %v", ErrNoData, err)
	}
	if raw == nil {
		raw = []json.RawMessage{}
	}
	return raw, nil
}

// decodeRecords 解码聚合所需的字段
func decodeRecords(raw []json.RawMessage) ([]model.ProductRecord, error) {
	records := make([]model.ProductRecord, 0, len(raw))
	for i, item := range raw {
		var rec model.ProductRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("%w: malformed record %d: %v", ErrNoData, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
