package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Server      ServerConfig      `mapstructure:"server"`
	Wing        WingConfig        `mapstructure:"wing"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // development, production
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // 日志输出路径
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件最大大小(MB)
	MaxBackups int    `mapstructure:"max_backups"` // 保留的日志文件数量
	MaxAge     int    `mapstructure:"max_age"`     // 日志保留天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧日志
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`            // gin 模式: debug, release, test
	InternalToken  string   `mapstructure:"internal_token"`  // 内部接口令牌，为空时只允许本机访问
	AllowedOrigins []string `mapstructure:"allowed_origins"` // 外部接口允许的来源
	WriteTimeout   string   `mapstructure:"write_timeout"`   // 0s 表示不限制（登录流程可能很久）

	WriteTimeoutDuration time.Duration
}

// WingConfig Wing 远端接口配置
type WingConfig struct {
	BaseURL       string   `mapstructure:"base_url"`
	StorefrontURL string   `mapstructure:"storefront_url"`
	CookieDomain  string   `mapstructure:"cookie_domain"`
	LoginURL      string   `mapstructure:"login_url"`
	LoginPaths    []string `mapstructure:"login_paths"`    // 视为登录页的路径片段
	LoginDebounce string   `mapstructure:"login_debounce"` // 导航后等待 cookie 写入的时间
	Timeout       string   `mapstructure:"timeout"`        // 0s 表示不限制

	LoginDebounceDuration time.Duration
	TimeoutDuration       time.Duration
}

// BrowserConfig 登录浏览器配置
type BrowserConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Headless     bool   `mapstructure:"headless"`
	ExecPath     string `mapstructure:"exec_path"`
	UserDataDir  string `mapstructure:"user_data_dir"` // 浏览器配置目录，保存登录 cookie
	WindowWidth  int    `mapstructure:"window_width"`
	WindowHeight int    `mapstructure:"window_height"`
}

// CoordinatorConfig 登录协调器配置
type CoordinatorConfig struct {
	MaxPending int `mapstructure:"max_pending"` // 登录等待队列上限，0 表示不限制
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	DefaultTimeout       string `mapstructure:"default_timeout"` // 例如: "1m"
	Location             string `mapstructure:"location"`        // 例如: "Asia/Seoul"
	SessionWatchEnabled  bool   `mapstructure:"session_watch_enabled"`
	SessionWatchSchedule string `mapstructure:"session_watch_schedule"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	// .env 文件可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	// 设置环境变量
	v.SetEnvPrefix("WING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 解析时间字符串
	if err := config.parseDurations(); err != nil {
		return nil, fmt.Errorf("failed to parse durations: %w", err)
	}

	return &config, nil
}

// parseDurations 解析时间字符串
func (c *Config) parseDurations() error {
	if c.Server.WriteTimeout != "" {
		duration, err := time.ParseDuration(c.Server.WriteTimeout)
		if err != nil {
			return fmt.Errorf("invalid server.write_timeout: %w", err)
		}
		c.Server.WriteTimeoutDuration = duration
	}

	if c.Wing.LoginDebounce != "" {
		duration, err := time.ParseDuration(c.Wing.LoginDebounce)
		if err != nil {
			return fmt.Errorf("invalid wing.login_debounce: %w", err)
		}
		c.Wing.LoginDebounceDuration = duration
	}

	if c.Wing.Timeout != "" {
		duration, err := time.ParseDuration(c.Wing.Timeout)
		if err != nil {
			return fmt.Errorf("invalid wing.timeout: %w", err)
		}
		c.Wing.TimeoutDuration = duration
	}

	return nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// App 默认值
	v.SetDefault("app.name", "wing-analyzer")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.env", "development")

	// Logger 默认值
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)

	// Server 默认值
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.internal_token", "")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.write_timeout", "0s")

	// Wing 默认值
	v.SetDefault("wing.base_url", "https://wing.coupang.com")
	v.SetDefault("wing.storefront_url", "https://www.coupang.com")
	v.SetDefault("wing.cookie_domain", "wing.coupang.com")
	v.SetDefault("wing.login_url", "https://wing.coupang.com/login")
	v.SetDefault("wing.login_paths", []string{"/login", "/sso"})
	v.SetDefault("wing.login_debounce", "500ms")
	v.SetDefault("wing.timeout", "0s")

	// Browser 默认值
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_dir", "data/chrome-profile")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)

	// Coordinator 默认值
	v.SetDefault("coordinator.max_pending", 16)

	// Scheduler 默认值
	v.SetDefault("scheduler.default_timeout", "1m")
	v.SetDefault("scheduler.location", "Asia/Seoul")
	v.SetDefault("scheduler.session_watch_enabled", true)
	v.SetDefault("scheduler.session_watch_schedule", "0 */5 * * * *")
}

// GetDefaultTimeout 获取默认超时时间
func (c *Config) GetDefaultTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Scheduler.DefaultTimeout)
}

// GetLocation 获取时区
func (c *Config) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Scheduler.Location)
}
