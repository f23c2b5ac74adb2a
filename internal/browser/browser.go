// Package browser 基于 chromedp 的 Chrome 封装：同一个用户配置目录既是 cookie 来源，也用于打开登录标签页
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/session"
	"wing-analyzer/internal/surface"
	"wing-analyzer/internal/wing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted 浏览器尚未启动或已停止
	ErrNotStarted = errors.New("browser not started")
	// ErrDisabled 配置中禁用了浏览器
	ErrDisabled = errors.New("browser disabled")
)

// Config 浏览器配置
type Config struct {
	Headless     bool
	ExecPath     string
	UserDataDir  string
	WindowWidth  int
	WindowHeight int
	Logger       *zap.Logger
}

// Browser 长期运行的 Chrome 实例
type Browser struct {
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

var (
	_ session.CookieStore = (*Browser)(nil)
	_ wing.CookieSource   = (*Browser)(nil)
	_ surface.Opener      = (*Browser)(nil)
)

// New 创建浏览器（不启动）
func New(cfg Config) *Browser {
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 1280
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = 900
	}
	return &Browser{
		cfg:    cfg,
		logger: logger.OrNop(cfg.Logger),
	}
}

// allocatorOptions 组装 Chrome 启动参数
func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(b.cfg.WindowWidth, b.cfg.WindowHeight),
	)
	if b.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(b.cfg.UserDataDir))
	}
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}
	return opts
}

// Start 启动 Chrome 进程
func (b *Browser) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		b.logger.Sugar().Debugf(format, args...)
	}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	b.browserCtx = browserCtx
	b.cancelBrowser = cancelBrowser
	b.cancelAlloc = cancelAlloc

	b.logger.Info("browser started",
		zap.Bool("headless", b.cfg.Headless),
		zap.String("user_data_dir", b.cfg.UserDataDir),
	)
	return nil
}

// Stop 关闭 Chrome 进程
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx == nil {
		return
	}
	b.cancelBrowser()
	b.cancelAlloc()
	b.browserCtx = nil
	b.logger.Info("browser stopped")
}

func (b *Browser) context() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browserCtx == nil {
		return nil, ErrNotStarted
	}
	return b.browserCtx, nil
}

// Cookies 读取浏览器配置中属于 domain 的 cookie
func (b *Browser) Cookies(ctx context.Context, domain string) ([]*http.Cookie, error) {
	browserCtx, err := b.context()
	if err != nil {
		return nil, err
	}

	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Browser == nil {
		return nil, ErrNotStarted
	}

	raw, err := storage.GetCookies().Do(cdp.WithExecutor(ctx, c.Browser))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	return session.MatchDomain(convertCookies(raw), domain), nil
}

// CookiesForURL 读取 Chrome 请求 rawURL 时会发送的 cookie，包括父域 cookie
func (b *Browser) CookiesForURL(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	browserCtx, err := b.context()
	if err != nil {
		return nil, err
	}

	// Network 域需要在页面 target 上执行
	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Target == nil {
		return nil, ErrNotStarted
	}

	raw, err := network.GetCookies().WithUrls([]string{rawURL}).Do(cdp.WithExecutor(ctx, c.Target))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies for URL: %w", err)
	}

	return convertCookies(raw), nil
}

// Open 在现有浏览器中打开新标签页
func (b *Browser) Open(ctx context.Context, url string) (surface.Tab, error) {
	browserCtx, err := b.context()
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	t := newTab(tabCtx, cancel, b.logger)

	if err := chromedp.Run(tabCtx, chromedp.Navigate(url)); err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to open login tab: %w", err)
	}

	b.logger.Info("login tab opened", zap.String("url", url))
	return t, nil
}

// convertCookies CDP cookie 转换为 net/http cookie
func convertCookies(raw []*network.Cookie) []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		if c == nil {
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		// 会话 cookie 的 Expires 为 -1
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, hc)
	}
	return cookies
}

// Unavailable 浏览器被禁用时的占位实现：没有 cookie，也无法打开登录页
type Unavailable struct{}

// Cookies 始终返回 ErrDisabled
func (Unavailable) Cookies(ctx context.Context, domain string) ([]*http.Cookie, error) {
	return nil, ErrDisabled
}

// CookiesForURL 始终返回 ErrDisabled
func (Unavailable) CookiesForURL(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	return nil, ErrDisabled
}

// Open 始终返回 ErrDisabled
func (Unavailable) Open(ctx context.Context, url string) (surface.Tab, error) {
	return nil, ErrDisabled
}
