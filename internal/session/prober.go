package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/model"

	"go.uber.org/zap"
)

// CookieStore 提供指定域名下的 cookie（浏览器配置目录或测试用的内存实现）
type CookieStore interface {
	Cookies(ctx context.Context, domain string) ([]*http.Cookie, error)
}

// Prober 会话探测器：只判断目标域名下是否存在 cookie
// cookie 存在不代表服务端会话一定有效
type Prober struct {
	store  CookieStore
	domain string
	logger *zap.Logger
	now    func() time.Time

	mu   sync.RWMutex
	last model.SessionStatus
}

// NewProber 创建会话探测器
func NewProber(store CookieStore, domain string, log *zap.Logger) *Prober {
	return &Prober{
		store:  store,
		domain: domain,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// Domain 返回目标域名
func (p *Prober) Domain() string {
	return p.domain
}

// HasSession 目标域名下是否存在任意 cookie；读取失败视为不存在
func (p *Prober) HasSession(ctx context.Context) bool {
	cookies, err := p.store.Cookies(ctx, p.domain)
	if err != nil {
		p.logger.Warn("failed to read cookies",
			zap.String("domain", p.domain),
			zap.Error(err),
		)
		cookies = nil
	}

	present := len(MatchDomain(cookies, p.domain)) > 0

	p.mu.Lock()
	p.last = model.SessionStatus{Present: present, CheckedAt: p.now()}
	p.mu.Unlock()

	p.logger.Debug("session probed",
		zap.String("domain", p.domain),
		zap.Bool("present", present),
	)

	return present
}

// Status 最近一次探测结果
func (p *Prober) Status() model.SessionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// MatchDomain 过滤出域名等于 domain 或其子域名的 cookie，父域（如 .coupang.com）的 cookie 不计入
func MatchDomain(cookies []*http.Cookie, domain string) []*http.Cookie {
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	matched := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		// 内存实现可能不带 Domain，视为属于查询的域名
		if c.Domain == "" || HostInDomain(strings.TrimPrefix(c.Domain, "."), domain) {
			matched = append(matched, c)
		}
	}
	return matched
}

// HostInDomain host 等于 domain 或是其子域名
func HostInDomain(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
