// Package surface 定义交互式登录界面（用户可见的浏览器标签页）的抽象
package surface

import "context"

// EventKind 登录界面事件类型
type EventKind int

const (
	// EventNavigated 顶层页面导航到新 URL
	EventNavigated EventKind = iota
	// EventClosed 标签页被关闭（用户手动关闭或浏览器退出）
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventNavigated:
		return "navigated"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event 登录界面事件
type Event struct {
	Kind EventKind
	URL  string
}

// Tab 一个已打开的登录界面
type Tab interface {
	// Events 导航与关闭事件，Close 后不再产生事件
	Events() <-chan Event
	// Focus 把标签页切到前台
	Focus(ctx context.Context) error
	// Close 关闭标签页并释放事件订阅，可重复调用
	Close() error
}

// Opener 打开登录界面
type Opener interface {
	Open(ctx context.Context, url string) (Tab, error)
}
