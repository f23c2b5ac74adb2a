package task

import (
	"context"
	"sync"
	"time"
)

// Task 定时任务接口
type Task interface {
	// Name 任务名称，注册表内唯一
	Name() string

	// Schedule cron 表达式，带秒字段：秒 分 时 日 月 周
	// 例如 "0 */5 * * * *" 表示每 5 分钟执行一次
	Schedule() string

	// Run 执行一次任务
	Run(ctx context.Context) error

	// Timeout 单次执行超时，0 表示使用调度器默认值
	Timeout() time.Duration

	// Enabled 是否启用
	Enabled() bool
}

// TaskResult 任务执行结果
type TaskResult struct {
	TaskName  string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Success   bool
	Error     error
}

// TaskRegistry 任务注册表
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewTaskRegistry 创建新的任务注册表
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]Task),
	}
}

// Register 注册任务
func (r *TaskRegistry) Register(t Task) error {
	name := t.Name()
	if name == "" {
		return ErrEmptyTaskName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[name]; exists {
		return ErrTaskAlreadyRegistered
	}
	r.tasks[name] = t
	return nil
}

// GetTask 获取任务
func (r *TaskRegistry) GetTask(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tasks[name]
	if !exists {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// GetEnabledTasks 获取所有启用的任务
func (r *TaskRegistry) GetEnabledTasks() map[string]Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Task)
	for name, t := range r.tasks {
		if t.Enabled() {
			result[name] = t
		}
	}
	return result
}
