package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // host:port; empty disables redis
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GatewayConfig struct {
	Name          string        `yaml:"name"` // "razorpay" | "noop"
	BaseURL       string        `yaml:"base_url"`
	KeyID         string        `yaml:"key_id"`
	KeySecret     string        `yaml:"key_secret"`
	WebhookSecret string        `yaml:"webhook_secret"`
	Timeout       time.Duration `yaml:"timeout"`
}

type LifecycleConfig struct {
	GracePeriodHours int           `yaml:"grace_period_hours"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	MaxWriteRetries  int           `yaml:"max_write_retries"`
	UserLockTTL      time.Duration `yaml:"user_lock_ttl"`
	SweepLockTTL     time.Duration `yaml:"sweep_lock_ttl"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type FinanceConfig struct {
	Currency string `yaml:"currency"`
	Exponent int32  `yaml:"exponent"` // minor units per major unit = 10^exponent
}

type SMTPConfig struct {
	Host     string `yaml:"host"` // empty disables e-mail
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TelegramConfig struct {
	Token string `yaml:"token"` // empty disables telegram
}

type NotifyConfig struct {
	SMTP     SMTPConfig     `yaml:"smtp"`
	Telegram TelegramConfig `yaml:"telegram"`
	Workers  int            `yaml:"workers"`
	Queue    int            `yaml:"queue"`
	Timeout  time.Duration  `yaml:"timeout"`
}

type AdminConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Finance   FinanceConfig   `yaml:"finance"`
	Notify    NotifyConfig    `yaml:"notify"`
	Admin     AdminConfig     `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses -config and -dev, loads an optional .env and reads the
// YAML file. Secrets in the environment override the file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, applies env overrides and defaults, and validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	override(&c.Database.URL, "DATABASE_URL")
	override(&c.Redis.URL, "REDIS_URL")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Gateway.KeyID, "GATEWAY_KEY_ID")
	override(&c.Gateway.KeySecret, "GATEWAY_KEY_SECRET")
	override(&c.Gateway.WebhookSecret, "GATEWAY_WEBHOOK_SECRET")
	override(&c.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	override(&c.Notify.SMTP.Password, "SMTP_PASSWORD")
	override(&c.Notify.Telegram.Token, "TELEGRAM_TOKEN")
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	c.HTTP.ReadTimeout = orDefault(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = orDefault(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.RequestTimeout = orDefault(c.HTTP.RequestTimeout, 10*time.Second)
	c.HTTP.ShutdownTimeout = orDefault(c.HTTP.ShutdownTimeout, 15*time.Second)
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = orDefault(c.Redis.TTL, time.Hour)
	if c.Gateway.Name == "" {
		c.Gateway.Name = "razorpay"
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = "https://api.razorpay.com/v1"
	}
	c.Gateway.Timeout = orDefault(c.Gateway.Timeout, 15*time.Second)
	if c.Lifecycle.GracePeriodHours <= 0 {
		c.Lifecycle.GracePeriodHours = 48
	}
	c.Lifecycle.SweepInterval = orDefault(c.Lifecycle.SweepInterval, time.Hour)
	if c.Lifecycle.MaxWriteRetries <= 0 {
		c.Lifecycle.MaxWriteRetries = 3
	}
	c.Lifecycle.UserLockTTL = orDefault(c.Lifecycle.UserLockTTL, 10*time.Second)
	c.Lifecycle.SweepLockTTL = orDefault(c.Lifecycle.SweepLockTTL, 10*time.Minute)
	c.Catalog.CacheTTL = orDefault(c.Catalog.CacheTTL, 5*time.Minute)
	if c.Finance.Currency == "" {
		c.Finance.Currency = "INR"
	}
	if c.Finance.Exponent <= 0 {
		c.Finance.Exponent = 2
	}
	if c.Notify.Workers <= 0 {
		c.Notify.Workers = 4
	}
	if c.Notify.Queue <= 0 {
		c.Notify.Queue = 256
	}
	c.Notify.Timeout = orDefault(c.Notify.Timeout, 10*time.Second)
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = 587
	}
	c.Admin.TokenTTL = orDefault(c.Admin.TokenTTL, 12*time.Hour)
	if c.Admin.Issuer == "" {
		c.Admin.Issuer = "subscription-commerce"
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Gateway.Name != "noop" && c.Gateway.KeySecret == "" {
		return errors.New("gateway.key_secret is required")
	}
	if c.Gateway.WebhookSecret == "" {
		return errors.New("gateway.webhook_secret is required")
	}
	if c.Gateway.KeySecret != "" && c.Gateway.KeySecret == c.Gateway.WebhookSecret {
		return errors.New("gateway.webhook_secret must differ from gateway.key_secret")
	}
	if c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required")
	}
	if c.Notify.SMTP.Host != "" && c.Notify.SMTP.From == "" {
		return errors.New("notify.smtp.from is required when smtp is enabled")
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
