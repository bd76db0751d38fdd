package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"shopradar/models"
)

type Config struct {
	DBPath     string
	DatasetDir string
	LogPath    string
	LogLevel   string

	Postgres   PostgresConfig
	S3         S3Config
	Proxy      ProxyConfig
	Scheduler  SchedulerConfig
	Dispatcher DispatcherConfig
	Tracker    TrackerConfig
	Alerts     AlertsConfig

	Platforms map[string]*PlatformConfig
	Batch     *BatchConfig
}

type PostgresConfig struct {
	URL string
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

type ProxyConfig struct {
	URL string
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

type DispatcherConfig struct {
	MaxConcurrent int
	BatchTimeout  time.Duration
	Retry         RetryConfig
}

type TrackerConfig struct {
	// NoiseThresholdPct suppresses price-change events below this percent
	// move. Zero means any numeric difference counts.
	NoiseThresholdPct float64
	HistoryLimit      int
}

type AlertsConfig struct {
	WebhookURL string
}

// PlatformConfig describes one e-commerce source, loaded from
// config/platforms/<id>.yaml.
type PlatformConfig struct {
	ID           string         `yaml:"id"`
	Name         string         `yaml:"name"`
	Adapter      string         `yaml:"adapter"`
	ApifyActor   string         `yaml:"apify_actor"`
	Endpoint     string         `yaml:"endpoint"`
	RateLimitRPS float64        `yaml:"rate_limit_rps"`
	RateBurst    int            `yaml:"rate_burst"`
	ExtraInput   map[string]any `yaml:"extra_input"`
}

// BatchConfig is the default batch description (config/batch.yaml) used by
// scheduled and one-shot runs.
type BatchConfig struct {
	SearchQueries       []string          `yaml:"search_queries"`
	Platforms           []string          `yaml:"platforms"`
	MaxProductsPerQuery int               `yaml:"max_products_per_query"`
	Filters             BatchFilterConfig `yaml:"filters"`
	EnablePriceTracking *bool             `yaml:"enable_price_tracking"`
	EnableTrendAnalysis *bool             `yaml:"enable_trend_analysis"`
	PriceAlerts         []AlertRuleConfig `yaml:"price_alerts"`
}

type BatchFilterConfig struct {
	MinPrice         *float64 `yaml:"min_price"`
	MaxPrice         *float64 `yaml:"max_price"`
	MinRating        *float64 `yaml:"min_rating"`
	AvailabilityOnly bool     `yaml:"availability_only"`
}

type AlertRuleConfig struct {
	Keyword     string  `yaml:"keyword"`
	TargetPrice float64 `yaml:"target_price"`
	Type        string  `yaml:"alert_type"`
}

// ToRequest converts the YAML batch description into a batch request.
// Tracking and analysis default to enabled when unset.
func (b *BatchConfig) ToRequest() models.BatchRequest {
	if b == nil {
		return models.BatchRequest{}
	}

	req := models.BatchRequest{
		SearchQueries:       b.SearchQueries,
		Platforms:           b.Platforms,
		MaxProductsPerQuery: b.MaxProductsPerQuery,
		EnablePriceTracking: b.EnablePriceTracking == nil || *b.EnablePriceTracking,
		EnableTrendAnalysis: b.EnableTrendAnalysis == nil || *b.EnableTrendAnalysis,
		Filters: models.BatchFilters{
			MinRating:        b.Filters.MinRating,
			AvailabilityOnly: b.Filters.AvailabilityOnly,
		},
	}

	if b.Filters.MinPrice != nil {
		d := decimal.NewFromFloat(*b.Filters.MinPrice)
		req.Filters.MinPrice = &d
	}
	if b.Filters.MaxPrice != nil {
		d := decimal.NewFromFloat(*b.Filters.MaxPrice)
		req.Filters.MaxPrice = &d
	}

	for _, r := range b.PriceAlerts {
		req.PriceAlerts = append(req.PriceAlerts, models.AlertRule{
			Keyword:     r.Keyword,
			TargetPrice: decimal.NewFromFloat(r.TargetPrice),
			Type:        models.AlertType(r.Type),
		})
	}

	return req
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "shopradar.db"),
		DatasetDir: getEnv("DATASET_DIR", "data"),
		LogPath:    getEnv("LOG_PATH", "shopradar.log"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Prefix:    getEnv("S3_PREFIX", "shopradar"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		Scheduler: SchedulerConfig{
			Cron:     os.Getenv("SCRAPE_CRON"),
			Interval: getEnvDuration("SCRAPE_INTERVAL", 0),
		},
		Dispatcher: DispatcherConfig{
			MaxConcurrent: getEnvInt("MAX_CONCURRENT", 5),
			BatchTimeout:  getEnvDuration("BATCH_TIMEOUT", 10*time.Minute),
			Retry: RetryConfig{
				MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
				BaseDelay:   getEnvDuration("RETRY_BASE_DELAY", time.Second),
				MaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
				Multiplier:  getEnvFloat("RETRY_MULTIPLIER", 2.0),
				Jitter:      getEnvFloat("RETRY_JITTER", 0.25),
			},
		},
		Tracker: TrackerConfig{
			NoiseThresholdPct: getEnvFloat("NOISE_THRESHOLD_PCT", 0),
			HistoryLimit:      getEnvInt("HISTORY_LIMIT", 100),
		},
		Alerts: AlertsConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		},
		Platforms: make(map[string]*PlatformConfig),
	}

	if err := cfg.loadPlatformConfigs("config/platforms"); err != nil {
		return nil, err
	}
	if err := cfg.loadBatchConfig("config/batch.yaml"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadPlatformConfigs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var platform PlatformConfig
		if err := yaml.Unmarshal(data, &platform); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if platform.ID == "" {
			return fmt.Errorf("%s: platform id is required", path)
		}

		c.Platforms[platform.ID] = &platform
	}

	return nil
}

func (c *Config) loadBatchConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var batch BatchConfig
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.Batch = &batch
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
