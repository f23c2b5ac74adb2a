// Package scheduler 基于 cron 的后台任务调度
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wing-analyzer/internal/task"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 任务调度器
type Scheduler struct {
	cron           *cron.Cron
	registry       *task.TaskRegistry
	logger         *zap.Logger
	defaultTimeout time.Duration

	mu         sync.RWMutex
	running    bool
	ctx        context.Context
	cancel     context.CancelFunc
	jobEntries map[string]cron.EntryID
}

// Config 调度器配置
type Config struct {
	Logger         *zap.Logger
	Registry       *task.TaskRegistry
	DefaultTimeout time.Duration
	Location       *time.Location
}

// NewScheduler 创建新的调度器
func NewScheduler(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = task.NewTaskRegistry()
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithSeconds(),
		// 同一任务上一轮未结束时跳过本轮，避免会话探测堆积
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:           c,
		registry:       cfg.Registry,
		logger:         cfg.Logger,
		defaultTimeout: cfg.DefaultTimeout,
		ctx:            ctx,
		cancel:         cancel,
		jobEntries:     make(map[string]cron.EntryID),
	}
}

// Start 注册所有启用的任务并启动调度
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	tasks := s.registry.GetEnabledTasks()
	for name, t := range tasks {
		if err := s.addTask(name, t); err != nil {
			s.logger.Error("failed to add task",
				zap.String("task", name),
				zap.Error(err),
			)
			continue
		}
		s.logger.Info("task registered",
			zap.String("task", name),
			zap.String("schedule", t.Schedule()),
		)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", zap.Int("total_tasks", len(s.jobEntries)))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("stopping scheduler...")

	// 先取消任务上下文，正在执行的任务可以尽快返回
	s.cancel()
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("context cancelled while stopping scheduler")
		return ctx.Err()
	}

	s.running = false
	return nil
}

// RunNow 立即同步执行一次指定任务，不影响其 cron 计划
func (s *Scheduler) RunNow(name string) (task.TaskResult, error) {
	t, err := s.registry.GetTask(name)
	if err != nil {
		return task.TaskResult{}, fmt.Errorf("%w: %s", err, name)
	}
	return s.execute(name, t), nil
}

func (s *Scheduler) addTask(name string, t task.Task) error {
	schedule := t.Schedule()
	if schedule == "" {
		return fmt.Errorf("task schedule cannot be empty")
	}

	entryID, err := s.cron.AddFunc(schedule, func() { s.execute(name, t) })
	if err != nil {
		return fmt.Errorf("failed to parse schedule: %w", err)
	}

	s.jobEntries[name] = entryID
	return nil
}

// execute 带超时执行任务并记录结果
func (s *Scheduler) execute(name string, t task.Task) task.TaskResult {
	timeout := t.Timeout()
	if timeout == 0 {
		timeout = s.defaultTimeout
	}

	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	start := time.Now()
	err := t.Run(ctx)
	end := time.Now()

	result := task.TaskResult{
		TaskName:  name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Success:   err == nil,
		Error:     err,
	}
	s.logTaskResult(result)
	return result
}

func (s *Scheduler) logTaskResult(result task.TaskResult) {
	fields := []zap.Field{
		zap.String("task", result.TaskName),
		zap.Duration("duration", result.Duration),
		zap.Bool("success", result.Success),
	}

	if result.Error != nil {
		s.logger.Error("task completed with error", append(fields, zap.Error(result.Error))...)
		return
	}
	s.logger.Debug("task completed", fields...)
}

// IsRunning 调度器是否运行中
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetTaskCount 已加入 cron 的任务数量
func (s *Scheduler) GetTaskCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobEntries)
}
