package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wing-analyzer/internal/model"
	"wing-analyzer/internal/surface"
)

type fakeTab struct {
	events chan surface.Event
	focus  atomic.Int32
	closed atomic.Int32
}

func newFakeTab() *fakeTab {
	return &fakeTab{events: make(chan surface.Event, 16)}
}

func (t *fakeTab) Events() <-chan surface.Event { return t.events }

func (t *fakeTab) Focus(ctx context.Context) error {
	t.focus.Add(1)
	return nil
}

func (t *fakeTab) Close() error {
	t.closed.Add(1)
	return nil
}

type fakeOpener struct {
	tab   *fakeTab
	err   error
	opens atomic.Int32
}

func (o *fakeOpener) Open(ctx context.Context, url string) (surface.Tab, error) {
	o.opens.Add(1)
	if o.err != nil {
		return nil, o.err
	}
	return o.tab, nil
}

type fakeProber struct {
	present atomic.Bool
	probes  atomic.Int32
}

func (p *fakeProber) HasSession(ctx context.Context) bool {
	p.probes.Add(1)
	return p.present.Load()
}

type fakeRunner struct {
	mu   sync.Mutex
	reqs []model.AnalyzeRequest
	// block 为 true 时模拟不返回的远端查询，直到 ctx 取消
	block bool
}

func (r *fakeRunner) Run(ctx context.Context, req model.AnalyzeRequest) model.AnalysisResult {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	block := r.block
	r.mu.Unlock()
	if block {
		<-ctx.Done()
		return model.Failure(req.URL, model.CodeLoginRequired, model.MessageLoginRequired, time.Now())
	}
	return model.AnalysisResult{Success: true, URL: req.URL, ProductID: req.ProductID}
}

func (r *fakeRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

type fixture struct {
	c      *Coordinator
	tab    *fakeTab
	opener *fakeOpener
	prober *fakeProber
	runner *fakeRunner
}

func newFixture(t *testing.T, maxPending int) *fixture {
	t.Helper()
	f := &fixture{
		tab:    newFakeTab(),
		prober: &fakeProber{},
		runner: &fakeRunner{},
	}
	f.opener = &fakeOpener{tab: f.tab}
	f.c = New(Config{
		LoginURL:     "https://wing.coupang.com/",
		CookieDomain: "wing.coupang.com",
		Debounce:     10 * time.Millisecond,
		MaxPending:   maxPending,
	}, f.opener, f.prober, f.runner)
	t.Cleanup(f.c.Close)
	return f
}

func request(id string) model.AnalyzeRequest {
	return model.AnalyzeRequest{
		RequestID: id,
		URL:       "https://www.coupang.com/vp/products/" + id,
		ProductID: id,
	}
}

func receive(t *testing.T, ch <-chan model.AnalysisResult) model.AnalysisResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return model.AnalysisResult{}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitForTab 等待登录界面被协调器接管
func (f *fixture) waitForTab(t *testing.T) {
	waitFor(t, func() bool {
		f.c.mu.Lock()
		defer f.c.mu.Unlock()
		return f.c.tab != nil
	})
}

func assertNoResult(t *testing.T, ch <-chan model.AnalysisResult) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("unexpected result: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCoordinator_ReplaysAfterLogin(t *testing.T) {
	f := newFixture(t, 0)

	ch := f.c.Submit(context.Background(), request("1"))
	f.waitForTab(t)
	if got := f.c.State(); got != StateAwaitingLogin {
		t.Fatalf("State() = %v, want awaiting_login", got)
	}

	f.prober.present.Store(true)
	f.tab.events <- surface.Event{Kind: surface.EventNavigated, URL: "https://wing.coupang.com/tenants/seller-web/dashboard"}

	r := receive(t, ch)
	if !r.Success || r.ProductID != "1" {
		t.Errorf("result = %+v", r)
	}
	if f.runner.calls() != 1 {
		t.Errorf("runner called %d times, want 1", f.runner.calls())
	}
	if f.tab.closed.Load() == 0 {
		t.Error("login surface should be closed after replay")
	}
	waitFor(t, func() bool { return f.c.State() == StateIdle })
	assertNoResult(t, ch)
}

func TestCoordinator_CancelledWhenSurfaceClosed(t *testing.T) {
	f := newFixture(t, 0)

	ch := f.c.Submit(context.Background(), request("1"))
	f.waitForTab(t)

	f.tab.events <- surface.Event{Kind: surface.EventClosed}

	r := receive(t, ch)
	if r.Success || r.Code != model.CodeLoginCancelled {
		t.Errorf("result = %+v, want LOGIN_CANCELLED", r)
	}
	if f.runner.calls() != 0 {
		t.Error("runner must not run after cancellation")
	}
	waitFor(t, func() bool { return f.c.State() == StateIdle && f.c.Pending() == 0 })
}

func TestCoordinator_QueuesConcurrentRequests(t *testing.T) {
	f := newFixture(t, 0)

	first := f.c.Submit(context.Background(), request("1"))
	f.waitForTab(t)
	second := f.c.Submit(context.Background(), request("2"))

	if n := f.opener.opens.Load(); n != 1 {
		t.Errorf("opened %d surfaces, want 1", n)
	}
	if n := f.tab.focus.Load(); n != 1 {
		t.Errorf("focused %d times, want 1", n)
	}
	if n := f.c.Pending(); n != 2 {
		t.Errorf("Pending() = %d, want 2", n)
	}

	f.prober.present.Store(true)
	f.tab.events <- surface.Event{Kind: surface.EventNavigated, URL: "https://wing.coupang.com/"}

	r1 := receive(t, first)
	r2 := receive(t, second)
	if r1.ProductID != "1" || r2.ProductID != "2" {
		t.Errorf("results = %+v, %+v", r1, r2)
	}
	if f.runner.calls() != 2 {
		t.Errorf("runner called %d times, want 2", f.runner.calls())
	}
}

func TestCoordinator_IgnoresLoginPages(t *testing.T) {
	f := newFixture(t, 0)
	f.prober.present.Store(true)

	ch := f.c.Submit(context.Background(), request("1"))
	f.waitForTab(t)

	f.tab.events <- surface.Event{Kind: surface.EventNavigated, URL: "https://wing.coupang.com/login?returnUrl=/"}
	f.tab.events <- surface.Event{Kind: surface.EventNavigated, URL: "https://wing.coupang.com/sso/callback"}
	f.tab.events <- surface.Event{Kind: surface.EventNavigated, URL: "https://xauth.coupang.com/auth/realms/seller"}

	assertNoResult(t, ch)
	if n := f.prober.probes.Load(); n != 0 {
		t.Errorf("prober called %d times on login pages", n)
	}
	if got := f.c.State(); got != StateAwaitingLogin {
		t.Errorf("State() = %v, want awaiting_login", got)
	}

	f.tab.events <- surface.Event{Kind: surface.EventClosed}
	if r := receive(t, ch); r.Code != model.CodeLoginCancelled {
		t.Errorf("result code = %q", r.Code)
	}
}

func TestCoordinator_KeepsWaitingWithoutCookies(t *testing.T) {
	f := newFixture(t, 0)

	ch := f.c.Submit(context.Background(), request("1"))
	f.waitForTab(t)

	f.tab.events <- surface.Event{Kind: surface.EventNavigated, URL: "https://wing.coupang.com/"}
	waitFor(t, func() bool { return f.prober.probes.Load() == 1 })
	waitFor(t, func() bool { return f.c.State() == StateAwaitingLogin })
	assertNoResult(t, ch)

	f.tab.events <- surface.Event{Kind: surface.EventClosed}
	if r := receive(t, ch); r.Code != model.CodeLoginCancelled {
		t.Errorf("result code = %q, want LOGIN_CANCELLED", r.Code)
	}
	if f.runner.calls() != 0 {
		t.Error("runner must not run without a session")
	}
}

func TestCoordinator_OpenFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.opener.err = errors.New("no browser")

	r := receive(t, f.c.Submit(context.Background(), request("1")))
	if r.Success || r.Code != model.CodeLoginRequired {
		t.Errorf("result = %+v, want LOGIN_REQUIRED", r)
	}
	waitFor(t, func() bool { return f.c.State() == StateIdle })
}

func TestCoordinator_BusyWhenQueueFull(t *testing.T) {
	f := newFixture(t, 1)

	first := f.c.Submit(context.Background(), request("1"))
	f.waitForTab(t)

	r := receive(t, f.c.Submit(context.Background(), request("2")))
	if r.Success || r.Code != model.CodeLoginBusy {
		t.Errorf("result = %+v, want LOGIN_BUSY", r)
	}
	if n := f.c.Pending(); n != 1 {
		t.Errorf("Pending() = %d, want 1", n)
	}
	assertNoResult(t, first)
}

func TestCoordinator_CloseResolvesQueue(t *testing.T) {
	f := newFixture(t, 0)

	ch := f.c.Submit(context.Background(), request("1"))
	f.waitForTab(t)
	f.c.Close()

	if r := receive(t, ch); r.Code != model.CodeLoginCancelled {
		t.Errorf("result code = %q, want LOGIN_CANCELLED", r.Code)
	}
	if r := receive(t, f.c.Submit(context.Background(), request("2"))); r.Code != model.CodeLoginCancelled {
		t.Errorf("submit after close code = %q", r.Code)
	}
}

func TestCoordinator_CloseCancelsReplay(t *testing.T) {
	f := newFixture(t, 0)
	f.runner.block = true

	ch := f.c.Submit(context.Background(), request("1"))
	f.waitForTab(t)

	f.prober.present.Store(true)
	f.tab.events <- surface.Event{Kind: surface.EventNavigated, URL: "https://wing.coupang.com/"}
	waitFor(t, func() bool { return f.runner.calls() == 1 })

	closed := make(chan struct{})
	go func() {
		f.c.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() blocked on a running replay")
	}
	if r := receive(t, ch); r.Success {
		t.Errorf("result = %+v, want failure after cancellation", r)
	}
}

func TestCoordinator_IsPostLoginURL(t *testing.T) {
	c := New(Config{CookieDomain: "wing.coupang.com"}, nil, nil, nil)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://wing.coupang.com/", true},
		{"https://wing.coupang.com/tenants/seller-web/home", true},
		{"https://api.wing.coupang.com/home", true},
		{"https://wing.coupang.com/login", false},
		{"https://wing.coupang.com/SSO/redirect", false},
		{"https://xauth.coupang.com/", false},
		{"https://www.coupang.com/vp/products/1", false},
		{"about:blank", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		if got := c.IsPostLoginURL(tt.url); got != tt.want {
			t.Errorf("IsPostLoginURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
