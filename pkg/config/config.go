package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Topic is one tracked market theme with its keyword bucket.
type Topic struct {
	Key      string   `yaml:"key"`
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Polymarket struct {
		WalletAddress  string        `yaml:"wallet_address"`
		GammaURL       string        `yaml:"gamma_url" default:"https://gamma-api.polymarket.com"`
		DataURL        string        `yaml:"data_url" default:"https://data-api.polymarket.com"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
		MarketTTL      time.Duration `yaml:"market_ttl" default:"2m"`
	} `yaml:"polymarket"`
	Feeds struct {
		NitterURLs     []string      `yaml:"nitter_urls"`
		NewsURL        string        `yaml:"news_url" default:"https://news.google.com/rss/search"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"15s"`
		FeedTTL        time.Duration `yaml:"feed_ttl" default:"30m"`
		Cooldown       time.Duration `yaml:"cooldown" default:"5m"`
		MaxRPS         float64       `yaml:"max_rps" default:"2"`
	} `yaml:"feeds"`
	Cache struct {
		Dir        string `yaml:"dir" default:"cache"`
		MaxEntries int    `yaml:"max_entries" default:"200"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Refresh struct {
		Interval  time.Duration `yaml:"interval" default:"15s"`
		MaxTopics int           `yaml:"max_topics" default:"10"`
	} `yaml:"refresh"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"polypulse.spikes"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"1s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async" default:"true"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"polypulse"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		AsyncInsert  bool          `yaml:"async_insert" default:"true"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws-subscriptions-clob.polymarket.com/ws/market"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"stream"`
	Topics []Topic `yaml:"topics"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.normalize()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("WALLET_ADDRESS"); v != "" {
		c.Polymarket.WalletAddress = v
	}
	if v := os.Getenv("NITTER_URLS"); v != "" {
		c.Feeds.NitterURLs = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
		c.Cache.Redis.Enabled = true
	}

	return c, nil
}

// normalize clamps values the original terminal let users edit freely.
func (c *Config) normalize() {
	if c.Refresh.Interval < 5*time.Second {
		c.Refresh.Interval = 5 * time.Second
	}
	if c.Refresh.Interval > 300*time.Second {
		c.Refresh.Interval = 300 * time.Second
	}
	if len(c.Feeds.NitterURLs) == 0 {
		c.Feeds.NitterURLs = []string{
			"https://nitter.net",
			"https://nitter.it",
			"https://nitter.poast.org",
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	for i, t := range c.Topics {
		if t.Key == "" {
			return fmt.Errorf("topics[%d].key is required", i)
		}
	}
	return nil
}
