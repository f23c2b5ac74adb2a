// Package coordinator 登录流程协调器：会话缺失时打开一个登录界面，登录完成后重放排队的分析请求
package coordinator

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/model"
	"wing-analyzer/internal/session"
	"wing-analyzer/internal/surface"

	"go.uber.org/zap"
)

// State 协调器状态
type State int

const (
	// StateIdle 没有进行中的登录
	StateIdle State = iota
	// StateAwaitingLogin 登录界面已打开，等待用户登录
	StateAwaitingLogin
	// StateRetrying 检测到登录完成，正在确认 cookie
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLogin:
		return "awaiting_login"
	case StateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// SessionChecker 会话探测
type SessionChecker interface {
	HasSession(ctx context.Context) bool
}

// Runner 登录完成后执行一次完整分析
type Runner interface {
	Run(ctx context.Context, req model.AnalyzeRequest) model.AnalysisResult
}

// Config 协调器配置
type Config struct {
	LoginURL     string
	CookieDomain string
	LoginPaths   []string
	Debounce     time.Duration
	// MaxPending 排队上限，0 表示不限
	MaxPending int
	Logger     *zap.Logger
}

type pendingRequest struct {
	req   model.AnalyzeRequest
	reply chan model.AnalysisResult
}

// Coordinator 登录流程协调器
type Coordinator struct {
	cfg    Config
	opener surface.Opener
	prober SessionChecker
	runner Runner
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	state   State
	pending []pendingRequest
	tab     surface.Tab
	closed  bool

	// ctx 覆盖登录流程与重放，Close 时取消
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New 创建协调器
func New(cfg Config, opener surface.Opener, prober SessionChecker, runner Runner) *Coordinator {
	if len(cfg.LoginPaths) == 0 {
		cfg.LoginPaths = []string{"/login", "/sso"}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:    cfg,
		opener: opener,
		prober: prober,
		runner: runner,
		logger: logger.OrNop(cfg.Logger),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// State 当前状态
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending 排队中的请求数
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Status 状态快照
func (c *Coordinator) Status() model.LoginStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.LoginStatus{State: c.state.String(), Pending: len(c.pending)}
}

// Submit 提交一个需要登录的分析请求，返回的通道恰好收到一个结果
func (c *Coordinator) Submit(ctx context.Context, req model.AnalyzeRequest) <-chan model.AnalysisResult {
	reply := make(chan model.AnalysisResult, 1)
	p := pendingRequest{req: req, reply: reply}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		reply <- model.Failure(req.URL, model.CodeLoginCancelled, model.MessageLoginCancelled, c.now())
		return reply
	}

	if c.state == StateIdle {
		c.pending = append(c.pending, p)
		c.state = StateAwaitingLogin
		c.wg.Add(1)
		c.mu.Unlock()

		c.logger.Info("session missing, opening login surface",
			zap.String("request_id", req.RequestID),
			zap.String("login_url", c.cfg.LoginURL),
		)

		go c.run()
		return reply
	}

	if c.cfg.MaxPending > 0 && len(c.pending) >= c.cfg.MaxPending {
		c.mu.Unlock()
		c.logger.Warn("login queue full, rejecting request",
			zap.String("request_id", req.RequestID),
			zap.Int("max_pending", c.cfg.MaxPending),
		)
		reply <- model.Failure(req.URL, model.CodeLoginBusy, model.MessageLoginBusy, c.now())
		return reply
	}

	c.pending = append(c.pending, p)
	tab := c.tab
	queued := len(c.pending)
	c.mu.Unlock()

	c.logger.Info("login in progress, request queued",
		zap.String("request_id", req.RequestID),
		zap.Int("pending", queued),
	)

	if tab != nil {
		if err := tab.Focus(ctx); err != nil {
			c.logger.Warn("failed to focus login surface", zap.Error(err))
		}
	}
	return reply
}

// run 打开登录界面并串行处理其事件，直到队列被解决
func (c *Coordinator) run() {
	defer c.wg.Done()

	tab, err := c.opener.Open(c.ctx, c.cfg.LoginURL)
	if err != nil {
		c.logger.Error("failed to open login surface", zap.Error(err))
		c.fail(model.CodeLoginRequired, model.MessageLoginRequired)
		return
	}

	c.mu.Lock()
	c.tab = tab
	c.mu.Unlock()

	defer tab.Close()

	for {
		select {
		case <-c.ctx.Done():
			c.fail(model.CodeLoginCancelled, model.MessageLoginCancelled)
			return
		case ev, ok := <-tab.Events():
			if !ok || ev.Kind == surface.EventClosed {
				c.logger.Info("login surface closed by user")
				c.fail(model.CodeLoginCancelled, model.MessageLoginCancelled)
				return
			}
			if !c.IsPostLoginURL(ev.URL) {
				continue
			}
			if c.confirmLogin(ev.URL) {
				c.replay(tab)
				return
			}
		}
	}
}

// confirmLogin 等待 cookie 落盘后重新探测会话
func (c *Coordinator) confirmLogin(rawURL string) bool {
	c.setState(StateRetrying)
	c.logger.Info("login navigation detected", zap.String("url", rawURL))

	if c.cfg.Debounce > 0 {
		timer := time.NewTimer(c.cfg.Debounce)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			return false
		}
	}

	if c.prober.HasSession(c.ctx) {
		return true
	}

	c.logger.Info("no session cookie after navigation, still waiting")
	c.setState(StateAwaitingLogin)
	return false
}

// replay 关闭登录界面并并发重放全部排队请求
func (c *Coordinator) replay(tab surface.Tab) {
	c.mu.Lock()
	queue := c.pending
	c.pending = nil
	c.tab = nil
	c.state = StateIdle
	c.mu.Unlock()

	if err := tab.Close(); err != nil {
		c.logger.Warn("failed to close login surface", zap.Error(err))
	}

	c.logger.Info("login confirmed, replaying queued requests", zap.Int("count", len(queue)))

	var wg sync.WaitGroup
	for _, p := range queue {
		wg.Add(1)
		go func(p pendingRequest) {
			defer wg.Done()
			p.reply <- c.runner.Run(c.ctx, p.req)
		}(p)
	}
	wg.Wait()
}

// fail 以同一个错误解决全部排队请求并回到空闲状态
func (c *Coordinator) fail(code, message string) {
	c.mu.Lock()
	queue := c.pending
	c.pending = nil
	c.tab = nil
	c.state = StateIdle
	c.mu.Unlock()

	now := c.now()
	for _, p := range queue {
		p.reply <- model.Failure(p.req.URL, code, message, now)
	}

	c.logger.Info("login flow ended",
		zap.String("code", code),
		zap.Int("resolved", len(queue)),
	)
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// IsPostLoginURL 是否为 cookie 域名下的非登录页面
func (c *Coordinator) IsPostLoginURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if !session.HostInDomain(u.Hostname(), c.cfg.CookieDomain) {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, p := range c.cfg.LoginPaths {
		if strings.Contains(path, strings.ToLower(p)) {
			return false
		}
	}
	return true
}

// Close 取消进行中的登录流程和重放中的查询，并等待其结束
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.cancel()
	})
	c.wg.Wait()
}
