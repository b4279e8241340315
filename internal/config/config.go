package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"buyback-quotes/internal/logging"
	"buyback-quotes/internal/provider"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Server      ServerConfig      `mapstructure:"server"`
	Fetcher     FetcherConfig     `mapstructure:"fetcher"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Quote       QuoteConfig       `mapstructure:"quote"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Export      ExportConfig      `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	TrustForwardedFor bool          `mapstructure:"trust_forwarded_for"`
}

// FetcherConfig tunes outbound page fetches.
type FetcherConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MinBodyLength  int           `mapstructure:"min_body_length"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
}

// ProvidersConfig holds both marketplace adapters.
type ProvidersConfig struct {
	Aladin ProviderConfig `mapstructure:"aladin"`
	Yes24  ProviderConfig `mapstructure:"yes24"`
}

// ProviderConfig parameterises one marketplace adapter.
type ProviderConfig struct {
	DisplayName       string   `mapstructure:"display_name"`
	CandidateURLs     []string `mapstructure:"candidate_urls"`
	NotBuyablePattern string   `mapstructure:"not_buyable_pattern"`
	SiteNames         []string `mapstructure:"site_names"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second"`
	Burst             int      `mapstructure:"burst"`
}

// QuoteConfig sets recommendation behaviour.
type QuoteConfig struct {
	TieBand int64 `mapstructure:"tie_band"`
}

// CacheConfig sets quote cache behaviour.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig governs per-client request budgets.
type RateLimitConfig struct {
	Window time.Duration `mapstructure:"window"`
	Max    int           `mapstructure:"max"`
	Stats  StatsConfig   `mapstructure:"stats"`
}

// StatsConfig selects where limiter decisions are tallied. Redis is used when
// RedisAddr is set, process memory otherwise.
type StatsConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	TrackKeys     bool          `mapstructure:"track_keys"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Retention       time.Duration `mapstructure:"retention"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// AlertingConfig defines provider degradation alerts.
type AlertingConfig struct {
	Enabled          bool           `mapstructure:"enabled"`
	FailureThreshold int            `mapstructure:"failure_threshold"`
	Cooldown         time.Duration  `mapstructure:"cooldown"`
	Telegram         TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MaintenanceConfig governs the janitor loop.
type MaintenanceConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints  int           `mapstructure:"max_data_points"`
	BucketInterval time.Duration `mapstructure:"bucket_interval"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("BUYBACK")
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
	v.SetDefault("app.name", "buyback-quotes")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.trust_forwarded_for", true)

	v.SetDefault("fetcher.timeout", "8s")
	v.SetDefault("fetcher.min_body_length", 200)
	v.SetDefault("fetcher.max_body_bytes", int64(4<<20))
	v.SetDefault("fetcher.accept_language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	setProviderDefaults(v, "providers.aladin", provider.AladinOptions())
	setProviderDefaults(v, "providers.yes24", provider.Yes24Options())

	v.SetDefault("quote.tie_band", 500)
	v.SetDefault("cache.ttl", "48h")

	v.SetDefault("ratelimit.window", "10m")
	v.SetDefault("ratelimit.max", 60)
	v.SetDefault("ratelimit.stats.redis_addr", "")
	v.SetDefault("ratelimit.stats.redis_db", 0)
	v.SetDefault("ratelimit.stats.prefix", "buyback:ratelimit")
	v.SetDefault("ratelimit.stats.ttl", "24h")
	v.SetDefault("ratelimit.stats.track_keys", false)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.retention", "720h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.failure_threshold", 5)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("maintenance.interval", "5m")
	v.SetDefault("maintenance.startup_delay", "0s")
	v.SetDefault("maintenance.advisory_lock_key", int64(0x62757962))

	v.SetDefault("export.max_data_points", 100000)
	v.SetDefault("export.bucket_interval", "1h")
}

func setProviderDefaults(v *viper.Viper, prefix string, opts provider.Options) {
	v.SetDefault(prefix+".display_name", opts.DisplayName)
	v.SetDefault(prefix+".candidate_urls", opts.CandidateURLs)
	v.SetDefault(prefix+".not_buyable_pattern", opts.NotBuyablePattern)
	v.SetDefault(prefix+".site_names", opts.SiteNames)
	v.SetDefault(prefix+".requests_per_second", opts.RequestsPerSecond)
	v.SetDefault(prefix+".burst", opts.Burst)
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
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be greater than zero")
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be greater than zero")
	}
	for name, p := range map[string]ProviderConfig{"aladin": c.Providers.Aladin, "yes24": c.Providers.Yes24} {
		if len(p.CandidateURLs) == 0 {
			return fmt.Errorf("providers.%s.candidate_urls must not be empty", name)
		}
		if p.RequestsPerSecond < 0 {
			return fmt.Errorf("providers.%s.requests_per_second cannot be negative", name)
		}
	}
	if c.Quote.TieBand < 0 {
		return fmt.Errorf("quote.tie_band cannot be negative")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be greater than zero")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be greater than zero")
	}
	if c.RateLimit.Max <= 0 {
		return fmt.Errorf("ratelimit.max must be greater than zero")
	}
	if c.Maintenance.Interval <= 0 {
		return fmt.Errorf("maintenance.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Export.BucketInterval <= 0 {
		return fmt.Errorf("export.bucket_interval must be greater than zero")
	}
	if c.Alerting.FailureThreshold < 1 {
		return fmt.Errorf("alerting.failure_threshold must be at least one")
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

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ProviderOptions converts a provider section into adapter options.
func (p ProviderConfig) ProviderOptions(base provider.Options) provider.Options {
	base.DisplayName = p.DisplayName
	base.CandidateURLs = p.CandidateURLs
	base.NotBuyablePattern = p.NotBuyablePattern
	base.SiteNames = p.SiteNames
	base.RequestsPerSecond = p.RequestsPerSecond
	base.Burst = p.Burst
	return base
}
