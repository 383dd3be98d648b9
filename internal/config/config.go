package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 抓取策略
const (
	StrategyStandard = "standard"
	StrategyCycleTLS = "cycletls"
)

// Config 服务配置
type Config struct {
	// HTTP 服务端口
	HTTPPort string `yaml:"http_port"`
	// 同时进行的分析流程上限
	MaxConcurrent int `yaml:"max_concurrent"`
	// 单次抓取超时时间
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// 整个分析流程的超时时间（抓取 + 模型调用）
	AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
	// 连接池大小
	MaxIdleConns int `yaml:"max_idle_conns"`
	// 每个主机的最大连接数
	MaxConnsPerHost int `yaml:"max_conns_per_host"`
	// User-Agent
	UserAgent string `yaml:"user_agent"`
	// 抓取策略：standard 或 cycletls
	FetchStrategy string `yaml:"fetch_strategy"`
	// Redis URL（用于队列消费）
	RedisURL string `yaml:"redis_url"`

	LLM      LLMConfig      `yaml:"llm"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Truncate TruncateConfig `yaml:"truncate"`
	Log      LogConfig      `yaml:"log"`
}

// LLMConfig 模型服务配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// ThrottleConfig 请求节流配置
type ThrottleConfig struct {
	// 同一客户端两次请求的最小间隔
	Interval time.Duration `yaml:"interval"`
	// 携带客户端 IP 的代理请求头
	ClientIPHeader string `yaml:"client_ip_header"`
	// 清理空闲记录的周期
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// TruncateConfig 正文截断配置
type TruncateConfig struct {
	MaxChars  int `yaml:"max_chars"`
	HalfChars int `yaml:"half_chars"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig 默认配置（读取环境变量）
func DefaultConfig() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// Load 加载配置：默认值 < YAML 文件 < 环境变量
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置的取值范围
func (c *Config) Validate() error {
	switch c.FetchStrategy {
	case StrategyStandard, StrategyCycleTLS:
	default:
		return fmt.Errorf("unknown fetch strategy %q", c.FetchStrategy)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.Truncate.HalfChars <= 0 || c.Truncate.MaxChars <= 0 {
		return fmt.Errorf("truncate limits must be positive")
	}
	if c.AnalyzeTimeout <= 0 {
		return fmt.Errorf("analyze timeout must be positive")
	}
	if c.Throttle.Interval < 0 {
		return fmt.Errorf("throttle interval must not be negative")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		HTTPPort:        "8080",
		MaxConcurrent:   100,
		RequestTimeout:  15 * time.Second,
		AnalyzeTimeout:  90 * time.Second,
		MaxIdleConns:    100,
		MaxConnsPerHost: 10,
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		FetchStrategy:   StrategyStandard,
		LLM: LLMConfig{
			BaseURL: "https://api.deepseek.com",
			Model:   "deepseek-chat",
		},
		Throttle: ThrottleConfig{
			Interval:       2 * time.Second,
			ClientIPHeader: "CF-Connecting-IP",
			SweepInterval:  time.Minute,
		},
		Truncate: TruncateConfig{
			MaxChars:  12000,
			HalfChars: 6000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.MaxConcurrent = getEnvInt("MAX_CONCURRENT", cfg.MaxConcurrent)
	cfg.RequestTimeout = getEnvMillis("REQUEST_TIMEOUT_MS", cfg.RequestTimeout)
	cfg.AnalyzeTimeout = getEnvMillis("ANALYZE_TIMEOUT_MS", cfg.AnalyzeTimeout)
	cfg.MaxIdleConns = getEnvInt("MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.MaxConnsPerHost = getEnvInt("MAX_CONNS_PER_HOST", cfg.MaxConnsPerHost)
	cfg.UserAgent = getEnv("USER_AGENT", cfg.UserAgent)
	cfg.FetchStrategy = getEnv("FETCH_STRATEGY", cfg.FetchStrategy)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("DEEPSEEK_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)

	cfg.Throttle.Interval = getEnvMillis("THROTTLE_INTERVAL_MS", cfg.Throttle.Interval)
	cfg.Throttle.ClientIPHeader = getEnv("CLIENT_IP_HEADER", cfg.Throttle.ClientIPHeader)
	cfg.Throttle.SweepInterval = getEnvMillis("THROTTLE_SWEEP_INTERVAL_MS", cfg.Throttle.SweepInterval)

	cfg.Truncate.MaxChars = getEnvInt("TRUNCATE_MAX_CHARS", cfg.Truncate.MaxChars)
	cfg.Truncate.HalfChars = getEnvInt("TRUNCATE_HALF_CHARS", cfg.Truncate.HalfChars)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
