package wing

import "errors"

var (
	// ErrLoginRequired 会话缺失或失效：重定向、HTTP 错误、非 JSON 响应或缺少 result 字段
	ErrLoginRequired = errors.New("wing login required")

	// ErrNoData 响应格式正确但没有可用的 result 数组
	ErrNoData = errors.New("wing returned no data")
)
