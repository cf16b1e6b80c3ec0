package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverBolt   = "bolt"

	EngagementPolicyUpdate = "update"
	EngagementPolicyInsert = "insert"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string `envconfig:"LISTEN_ADDR"`
	Port          string `envconfig:"PORT" default:"8000"`
	GinMode       string `envconfig:"GIN_MODE" default:"release"`
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"sqlite"`
	DatabasePath  string `envconfig:"DATABASE_PATH" default:"crawlerlog.db"`
	BoltPath      string `envconfig:"BOLT_PATH" default:"crawlerlog.bolt"`
	SessionSecret string `envconfig:"SESSION_SECRET" default:"crawlerlog-dev-secret"`
	SiteName      string `envconfig:"SITE_NAME" default:"Crawler Log"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	PostsPerPage int `envconfig:"POSTS_PER_PAGE" default:"5"`
	RelatedPosts int `envconfig:"RELATED_POSTS" default:"3"`

	EngagementPolicy string        `envconfig:"ENGAGEMENT_POLICY" default:"update"`
	EngagementWindow time.Duration `envconfig:"ENGAGEMENT_WINDOW" default:"30m"`

	AnalyticsCacheTTL time.Duration `envconfig:"ANALYTICS_CACHE_TTL" default:"30s"`
	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`

	VisitRetentionDays int    `envconfig:"VISIT_RETENTION_DAYS" default:"0"`
	RetentionSchedule  string `envconfig:"RETENTION_SCHEDULE" default:"@daily"`

	TrackingRatePerMinute int `envconfig:"TRACKING_RATE_PER_MINUTE" default:"120"`
	TrackingBurst         int `envconfig:"TRACKING_BURST" default:"30"`

	SeedSamplePosts bool  `envconfig:"SEED_SAMPLE_POSTS" default:"true"`
	MetricsEnabled  bool  `envconfig:"METRICS_ENABLED" default:"true"`
	RNGSeed         int64 `envconfig:"RNG_SEED" default:"0"`
}

// Load 从环境变量读取应用配置，并为缺失项提供默认值。
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() error {
	c.Port = strings.TrimSpace(c.Port)
	if c.Port == "" {
		c.Port = "8000"
	}

	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreDriverSQLite, StoreDriverBolt:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	c.EngagementPolicy = strings.ToLower(strings.TrimSpace(c.EngagementPolicy))
	switch c.EngagementPolicy {
	case EngagementPolicyUpdate, EngagementPolicyInsert:
	default:
		return fmt.Errorf("unsupported ENGAGEMENT_POLICY %q", c.EngagementPolicy)
	}

	if c.PostsPerPage <= 0 {
		c.PostsPerPage = 5
	}
	if c.RelatedPosts < 0 {
		c.RelatedPosts = 0
	}
	if c.TrackingRatePerMinute <= 0 {
		c.TrackingRatePerMinute = 120
	}
	if c.TrackingBurst <= 0 {
		c.TrackingBurst = 1
	}
	if strings.TrimSpace(c.SiteName) == "" {
		c.SiteName = "Crawler Log"
	}

	return nil
}
