package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wing-analyzer/internal/browser"
	"wing-analyzer/internal/config"
	"wing-analyzer/internal/coordinator"
	"wing-analyzer/internal/forwarder"
	"wing-analyzer/internal/logger"
	"wing-analyzer/internal/relay"
	"wing-analyzer/internal/scheduler"
	"wing-analyzer/internal/server"
	"wing-analyzer/internal/session"
	"wing-analyzer/internal/surface"
	"wing-analyzer/internal/task"
	"wing-analyzer/internal/tasks"
	"wing-analyzer/internal/wing"

	"go.uber.org/zap"
)

// chromeSurface 同时提供 cookie 与登录标签页的浏览器实现
type chromeSurface interface {
	session.CookieStore
	wing.CookieSource
	surface.Opener
}

func main() {
	// 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	zapLogger, err := logger.NewLogger(logger.LoggerConfig{
		Name:       cfg.App.Name,
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	zapLogger.Info("application starting",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	// 启动浏览器，禁用时所有分析请求都会返回 LOGIN_REQUIRED
	var chrome chromeSurface = browser.Unavailable{}
	var b *browser.Browser
	if cfg.Browser.Enabled {
		b = browser.New(browser.Config{
			Headless:     cfg.Browser.Headless,
			ExecPath:     cfg.Browser.ExecPath,
			UserDataDir:  cfg.Browser.UserDataDir,
			WindowWidth:  cfg.Browser.WindowWidth,
			WindowHeight: cfg.Browser.WindowHeight,
			Logger:       zapLogger,
		})
		if err := b.Start(); err != nil {
			zapLogger.Fatal("failed to start browser", zap.Error(err))
		}
		chrome = b
	} else {
		zapLogger.Warn("browser is disabled, Wing sessions are unavailable")
	}

	prober := session.NewProber(chrome, cfg.Wing.CookieDomain, zapLogger)

	client := wing.NewClient(wing.Config{
		BaseURL:       cfg.Wing.BaseURL,
		StorefrontURL: cfg.Wing.StorefrontURL,
		Timeout:       cfg.Wing.TimeoutDuration,
		Cookies:       chrome,
		Logger:        zapLogger,
	})

	pipeline := relay.NewPipeline(client, forwarder.New(forwarder.Config{
		Timeout: cfg.Wing.TimeoutDuration,
		Logger:  zapLogger,
	}), zapLogger)

	coord := coordinator.New(coordinator.Config{
		LoginURL:     cfg.Wing.LoginURL,
		CookieDomain: cfg.Wing.CookieDomain,
		LoginPaths:   cfg.Wing.LoginPaths,
		Debounce:     cfg.Wing.LoginDebounceDuration,
		MaxPending:   cfg.Coordinator.MaxPending,
		Logger:       zapLogger,
	}, chrome, prober, pipeline)

	r := relay.New(relay.Config{
		Client:      client,
		Prober:      prober,
		Runner:      pipeline,
		Coordinator: coord,
		Logger:      zapLogger,
	})

	// 创建任务注册表
	registry := task.NewTaskRegistry()
	if err := registerTasks(registry, cfg, prober, zapLogger); err != nil {
		zapLogger.Fatal("failed to register tasks", zap.Error(err))
	}

	// 获取时区和超时配置
	location, err := cfg.GetLocation()
	if err != nil {
		zapLogger.Warn("failed to load location, using local time",
			zap.Error(err),
		)
		location = time.Local
	}

	defaultTimeout, err := cfg.GetDefaultTimeout()
	if err != nil {
		zapLogger.Warn("failed to parse default timeout, using 1m",
			zap.Error(err),
		)
		defaultTimeout = time.Minute
	}

	sched := scheduler.NewScheduler(scheduler.Config{
		Logger:         zapLogger,
		Registry:       registry,
		DefaultTimeout: defaultTimeout,
		Location:       location,
	})

	if err := sched.Start(); err != nil {
		zapLogger.Fatal("failed to start scheduler", zap.Error(err))
	}

	zapLogger.Info("scheduler started successfully",
		zap.Int("task_count", sched.GetTaskCount()),
	)

	// 启动时探测一次，状态接口立即可用
	if cfg.Scheduler.SessionWatchEnabled {
		if _, err := sched.RunNow(tasks.SessionWatchName); err != nil {
			zapLogger.Warn("initial session check failed", zap.Error(err))
		}
	}

	srv := server.NewServer(&cfg.Server, zapLogger, &server.Dependencies{
		Relay:  r,
		Logger: zapLogger,
	})
	if err := srv.Start(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("received signal, shutting down...",
		zap.String("signal", sig.String()),
	)

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 等待登录的请求先以 LOGIN_CANCELLED 结束，HTTP 服务器才能排空
	coord.Close()

	if err := srv.Stop(shutdownCtx); err != nil {
		zapLogger.Error("error stopping HTTP server", zap.Error(err))
	}

	if err := sched.Stop(shutdownCtx); err != nil {
		zapLogger.Error("error stopping scheduler", zap.Error(err))
	}

	if b != nil {
		b.Stop()
	}

	zapLogger.Info("application stopped")
}

// registerTasks 注册所有任务
func registerTasks(registry *task.TaskRegistry, cfg *config.Config, prober *session.Prober, log *zap.Logger) error {
	watch := tasks.NewSessionWatchTask(prober,
		cfg.Scheduler.SessionWatchSchedule,
		cfg.Scheduler.SessionWatchEnabled,
		log,
	)
	if err := registry.Register(watch); err != nil {
		return fmt.Errorf("failed to register session watch task: %w", err)
	}
	return nil
}
