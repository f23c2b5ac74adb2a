package wing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// QuantityInfoPath 商城商品库存/配送信息接口
const QuantityInfoPath = "/next-api/products/quantity-info"

// quantityInfo 只解析需要的配送标签字段
type quantityInfo struct {
	ModuleData []struct {
		PddList []struct {
			DeliveryBadgeLabel string `json:"deliveryBadgeLabel"`
		} `json:"pddList"`
	} `json:"moduleData"`
}

// DeliveryBadge 查询商城页展示的配送标签，字段缺失时 found 为 false
func (c *Client) DeliveryBadge(ctx context.Context, productID, vendorItemID string) (string, bool, error) {
	endpoint, err := joinURL(c.storefrontURL, QuantityInfoPath)
	if err != nil {
		return "", false, err
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse URL: %w", err)
	}
	query := u.Query()
	query.Set("productId", productID)
	query.Set("vendorItemId", vendorItemID)
	u.RawQuery = query.Encode()

	resp, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", false, err
	}
	if resp.status < 200 || resp.status >= 300 {
		return "", false, fmt.Errorf("HTTP error: status code %d", resp.status)
	}

	label, found, err := parseDeliveryBadge(resp.body)
	if err != nil {
		return "", false, err
	}

	c.logger.Debug("delivery badge looked up",
		zap.String("product_id", productID),
		zap.String("vendor_item_id", vendorItemID),
		zap.Bool("found", found),
	)
	return label, found, nil
}

// parseDeliveryBadge 取第一个 pddList 非空模块中的 deliveryBadgeLabel
func parseDeliveryBadge(body []byte) (string, bool, error) {
	var info quantityInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", false, fmt.Errorf("failed to decode quantity info: %w", err)
	}

	for _, module := range info.ModuleData {
		if len(module.PddList) == 0 {
			continue
		}
		if label := module.PddList[0].DeliveryBadgeLabel; label != "" {
			return label, true, nil
		}
	}
	return "", false, nil
}
