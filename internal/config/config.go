// Package config loads the YAML configuration file, applies .env and
// environment overrides, and hands an explicit config object to the
// constructors. Core logic never reads configuration ambiently.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	RSS      RSSConfig      `yaml:"rss"`
	Filter   FilterConfig   `yaml:"filter"`
	Distill  DistillConfig  `yaml:"distill"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig configures per-day SQLite storage.
type DatabaseConfig struct {
	Dir string `yaml:"dir"`
	// RefreshOnSeen also refreshes rank/title/mobile_url when an already
	// stored item is seen again.
	RefreshOnSeen bool `yaml:"refresh_on_seen"`
}

// CrawlerConfig configures the trending-API fetcher.
type CrawlerConfig struct {
	APIURL            string   `yaml:"api_url"`
	Sources           []string `yaml:"sources"`
	MaxWorkers        int      `yaml:"max_workers"`
	RequestIntervalMS int      `yaml:"request_interval_ms"`
	MaxRetries        int      `yaml:"max_retries"`
	Timeout           string   `yaml:"timeout"`
}

// ParseTimeout returns the per-request timeout.
func (c CrawlerConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// RequestInterval returns the stagger interval between task starts.
func (c CrawlerConfig) RequestInterval() time.Duration {
	return time.Duration(c.RequestIntervalMS) * time.Millisecond
}

// RSSConfig configures supplemental RSS sources.
type RSSConfig struct {
	Feeds    []FeedConfig `yaml:"feeds"`
	MaxItems int          `yaml:"max_items"`
}

// FeedConfig is one RSS feed entry.
type FeedConfig struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FilterConfig configures the optional keyword filter applied to new items
// before distillation.
type FilterConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// DistillConfig configures the LLM pipeline.
type DistillConfig struct {
	Backends           []BackendConfig `yaml:"backends"`
	FilterPromptPath   string          `yaml:"filter_prompt"`
	CategoryPromptPath string          `yaml:"category_prompt"`
}

// BackendConfig is one model backend, tried in list order.
type BackendConfig struct {
	Name      string `yaml:"name"`
	Provider  string `yaml:"provider"` // "openai" (compatible) or "anthropic"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// AlertsConfig configures notification destinations.
type AlertsConfig struct {
	Feishu  FeishuConfig  `yaml:"feishu"`
	Webhook WebhookConfig `yaml:"webhook"`
	Email   EmailConfig   `yaml:"email"`
}

// FeishuConfig for the Feishu custom-bot webhook.
type FeishuConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for the generic webhook.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// EmailConfig for SMTP delivery.
type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	FromName string   `yaml:"from_name"`
	To       []string `yaml:"to"`
}

// ScheduleConfig configures the daemon pipeline interval.
type ScheduleConfig struct {
	Interval string `yaml:"interval"`
}

// ParseInterval returns the pipeline interval.
func (s ScheduleConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return time.Hour
	}
	return d
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Dir:           "./output/db",
			RefreshOnSeen: true,
		},
		Crawler: CrawlerConfig{
			Sources: []string{
				"toutiao", "weibo", "zhihu", "thepaper", "cankaoxiaoxi",
				"wallstreetcn-hot", "ithome",
			},
			MaxWorkers:        8,
			RequestIntervalMS: 100,
			MaxRetries:        2,
			Timeout:           "10s",
		},
		RSS: RSSConfig{MaxItems: 50},
		Distill: DistillConfig{
			Backends: []BackendConfig{
				{
					Name:      "deepseek",
					Provider:  "openai",
					Model:     "deepseek-chat",
					BaseURL:   "https://api.deepseek.com/v1",
					APIKeyEnv: "DEEPSEEK_API_KEY",
				},
				{
					Name:      "qwen-plus",
					Provider:  "openai",
					Model:     "qwen-plus",
					BaseURL:   "https://dashscope.aliyuncs.com/compatible-mode/v1",
					APIKeyEnv: "QWEN_API_KEY",
				},
			},
		},
		Schedule: ScheduleConfig{Interval: "1h"},
		Server:   ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file (empty path = defaults only),
// loads a .env file if present, and applies environment overrides.
func Load(path string) (*Config, error) {
	// Credentials commonly live in a .env next to the binary.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	resolveBackendKeys(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEWSDISTILL_DB_DIR"); v != "" {
		cfg.Database.Dir = v
	}
	if v := os.Getenv("NEWSDISTILL_API_URL"); v != "" {
		cfg.Crawler.APIURL = v
	}
	if v := os.Getenv("FEISHU_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Feishu.WebhookURL = v
		cfg.Alerts.Feishu.Enabled = true
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Alerts.Email.Password = v
	}
}

// resolveBackendKeys fills each backend's api_key from its configured
// environment variable when the key itself is not set inline.
func resolveBackendKeys(cfg *Config) {
	for i := range cfg.Distill.Backends {
		b := &cfg.Distill.Backends[i]
		if b.APIKey == "" && b.APIKeyEnv != "" {
			b.APIKey = os.Getenv(b.APIKeyEnv)
		}
	}
}
