package relay

import "errors"

var (
	// ErrInvalidURL 不是 Coupang 商品详情页 URL
	ErrInvalidURL = errors.New("not a coupang product url")

	// ErrUnsupportedType 当前入口不接受该消息类型
	ErrUnsupportedType = errors.New("unsupported message type")

	// ErrInvalidMessage 消息字段校验失败
	ErrInvalidMessage = errors.New("invalid message")
)
