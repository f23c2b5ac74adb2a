package tasks

import (
	"context"
	"sync"
	"time"

	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/task"

	"go.uber.org/zap"
)

// SessionWatchName 会话巡检任务名称
const SessionWatchName = "session_watch"

// SessionProber 会话探测
type SessionProber interface {
	HasSession(ctx context.Context) bool
}

// SessionWatchTask 定期探测 Wing 会话，在登录状态变化时记录日志
type SessionWatchTask struct {
	prober   SessionProber
	schedule string
	enabled  bool
	logger   *zap.Logger

	mu    sync.Mutex
	known bool
	last  bool
}

// NewSessionWatchTask 创建会话巡检任务
func NewSessionWatchTask(prober SessionProber, schedule string, enabled bool, log *zap.Logger) *SessionWatchTask {
	return &SessionWatchTask{
		prober:   prober,
		schedule: schedule,
		enabled:  enabled,
		logger:   logger.OrNop(log),
	}
}

var _ task.Task = (*SessionWatchTask)(nil)

func (t *SessionWatchTask) Name() string {
	return SessionWatchName
}

func (t *SessionWatchTask) Schedule() string {
	return t.schedule
}

func (t *SessionWatchTask) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	present := t.prober.HasSession(ctx)

	t.mu.Lock()
	changed := !t.known || present != t.last
	t.known = true
	t.last = present
	t.mu.Unlock()

	if changed {
		if present {
			t.logger.Info("wing session available")
		} else {
			t.logger.Warn("wing session missing, next analysis will open the login surface")
		}
	}
	return nil
}

func (t *SessionWatchTask) Timeout() time.Duration {
	return 30 * time.Second
}

func (t *SessionWatchTask) Enabled() bool {
	return t.enabled
}

// Last 最近一次巡检结果，尚未执行时 ok 为 false
func (t *SessionWatchTask) Last() (present, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.known
}
