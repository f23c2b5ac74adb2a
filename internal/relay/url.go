package relay

import "regexp"

var (
	productIDPattern    = regexp.MustCompile(`coupang\.com/vp/products/(\d+)`)
	vendorItemIDPattern = regexp.MustCompile(`vendorItemId=(\d+)`)
)

// ParseProductURL 从商品页 URL 中提取商品 ID 和可选的 vendorItemId
func ParseProductURL(rawURL string) (productID, vendorItemID string, err error) {
	m := productIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", ErrInvalidURL
	}
	if v := vendorItemIDPattern.FindStringSubmatch(rawURL); v != nil {
		vendorItemID = v[1]
	}
	return m[1], vendorItemID, nil
}
