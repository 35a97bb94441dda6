package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"keepa-tools/internal/batch"
	"keepa-tools/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Keepa    KeepaConfig    `mapstructure:"keepa"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// KeepaConfig covers provider access, rate governing and batching.
type KeepaConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	RateLimitDelay    time.Duration `mapstructure:"rate_limit_delay"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxQuotaRetries   int           `mapstructure:"max_quota_retries"`
	MaxWait           time.Duration `mapstructure:"max_wait"`
	ChunkSize         int           `mapstructure:"chunk_size"`
	Concurrency       int           `mapstructure:"concurrency"`
	TimeoutRetries    int           `mapstructure:"timeout_retries"`
	TrendThresholdPct float64       `mapstructure:"trend_threshold_pct"`
}

// WatchConfig governs the price watcher.
type WatchConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	AlignToBucket    bool          `mapstructure:"align_to_bucket"`
	StartupDelay     time.Duration `mapstructure:"startup_delay"`
	Domain           string        `mapstructure:"domain"`
	ASINs            []string      `mapstructure:"asins"`
	Series           string        `mapstructure:"series"`
	DropThresholdPct float64       `mapstructure:"drop_threshold_pct"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KEEPATOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "keepa-tools")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("keepa.api_key", "")
	v.SetDefault("keepa.base_url", "https://api.keepa.com")
	v.SetDefault("keepa.user_agent", "keepa-tools/1.0")
	v.SetDefault("keepa.rate_limit_delay", "1000ms")
	v.SetDefault("keepa.timeout", "30000ms")
	v.SetDefault("keepa.max_quota_retries", 5)
	v.SetDefault("keepa.max_wait", "5m")
	v.SetDefault("keepa.chunk_size", batch.MaxChunkSize)
	v.SetDefault("keepa.concurrency", 2)
	v.SetDefault("keepa.timeout_retries", 1)
	v.SetDefault("keepa.trend_threshold_pct", 3.0)

	v.SetDefault("watch.interval", "15m")
	v.SetDefault("watch.align_to_bucket", true)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.domain", "us")
	v.SetDefault("watch.asins", []string{})
	v.SetDefault("watch.series", "AMAZON")
	v.SetDefault("watch.drop_threshold_pct", 10.0)
	v.SetDefault("watch.cooldown", "6h")

	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.max_data_points", 5000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	k := c.Keepa
	if k.RateLimitDelay <= 0 {
		return fmt.Errorf("keepa.rate_limit_delay must be greater than zero")
	}
	if k.Timeout <= 0 {
		return fmt.Errorf("keepa.timeout must be greater than zero")
	}
	if k.ChunkSize <= 0 || k.ChunkSize > batch.MaxChunkSize {
		return fmt.Errorf("keepa.chunk_size must be within 1-%d", batch.MaxChunkSize)
	}
	if k.Concurrency <= 0 {
		return fmt.Errorf("keepa.concurrency must be greater than zero")
	}
	if k.MaxQuotaRetries < 0 || k.TimeoutRetries < 0 {
		return fmt.Errorf("keepa retry counts cannot be negative")
	}
	if k.TrendThresholdPct < 0 {
		return fmt.Errorf("keepa.trend_threshold_pct cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Watch.DropThresholdPct <= 0 {
		return fmt.Errorf("watch.drop_threshold_pct must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// RequireAPIKey reports a missing provider key. Commands that call the
// provider check it; version and offline commands do not.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Keepa.APIKey) == "" {
		return fmt.Errorf("keepa.api_key 必须配置 (或设置 KEEPATOOLS_KEEPA_API_KEY)")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
