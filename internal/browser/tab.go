package browser

import (
	"context"
	"sync"

	"wing-analyzer/internal/surface"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// eventBuffer 事件通道容量，监听回调不能阻塞 chromedp 的事件循环
const eventBuffer = 64

// tab chromedp 标签页
type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	events chan surface.Event
	done   chan struct{}
	once   sync.Once
	closed sync.Once
}

func newTab(ctx context.Context, cancel context.CancelFunc, log *zap.Logger) *tab {
	t := &tab{
		ctx:    ctx,
		cancel: cancel,
		logger: log,
		events: make(chan surface.Event, eventBuffer),
		done:   make(chan struct{}),
	}

	chromedp.ListenTarget(ctx, t.onTargetEvent)
	chromedp.ListenBrowser(ctx, t.onBrowserEvent)

	// 浏览器退出时上下文被取消，同样视为关闭
	go func() {
		select {
		case <-ctx.Done():
			t.emitClosed()
		case <-t.done:
		}
	}()

	return t
}

func (t *tab) targetID() target.ID {
	c := chromedp.FromContext(t.ctx)
	if c == nil || c.Target == nil {
		return ""
	}
	return c.Target.TargetID
}

func (t *tab) onTargetEvent(ev interface{}) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		t.emit(surface.Event{Kind: surface.EventNavigated, URL: e.Frame.URL + e.Frame.URLFragment})
	case *page.EventNavigatedWithinDocument:
		// 主 frame 的 ID 与 target ID 相同
		if string(e.FrameID) != string(t.targetID()) {
			return
		}
		t.emit(surface.Event{Kind: surface.EventNavigated, URL: e.URL})
	}
}

func (t *tab) onBrowserEvent(ev interface{}) {
	if e, ok := ev.(*target.EventTargetDestroyed); ok {
		if id := t.targetID(); id != "" && e.TargetID == id {
			t.emitClosed()
		}
	}
}

func (t *tab) emit(ev surface.Event) {
	select {
	case <-t.done:
		return
	default:
	}

	select {
	case t.events <- ev:
	case <-t.done:
	default:
		t.logger.Warn("dropping login tab event",
			zap.Stringer("kind", ev.Kind),
			zap.String("url", ev.URL),
		)
	}
}

// emitClosed 关闭事件不能丢弃，缓冲区满时在后台等待
func (t *tab) emitClosed() {
	t.once.Do(func() {
		go func() {
			select {
			case t.events <- surface.Event{Kind: surface.EventClosed}:
			case <-t.done:
			}
		}()
	})
}

// Events 实现 surface.Tab
func (t *tab) Events() <-chan surface.Event {
	return t.events
}

// Focus 把标签页切到前台
func (t *tab) Focus(ctx context.Context) error {
	c := chromedp.FromContext(t.ctx)
	if c == nil || c.Target == nil {
		return ErrNotStarted
	}
	return page.BringToFront().Do(cdp.WithExecutor(ctx, c.Target))
}

// Close 关闭标签页并停止转发事件
func (t *tab) Close() error {
	t.closed.Do(func() {
		close(t.done)
		t.cancel()
	})
	return nil
}
