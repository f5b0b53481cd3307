package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Twitch    TwitchConfig    `yaml:"twitch"`
	IGDB      IGDBConfig      `yaml:"igdb"`
	Format    FormatConfig    `yaml:"format"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Warm      WarmConfig      `yaml:"warm"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Transport    string        `yaml:"transport"` // "chi" or "mux"
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// TwitchConfig holds the identity provider credentials
type TwitchConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	TokenURL     string        `yaml:"token_url"`
	Timeout      time.Duration `yaml:"timeout"`
	ExpiryMargin time.Duration `yaml:"expiry_margin"`
}

// IGDBConfig holds upstream game-data provider settings
type IGDBConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	PageSize       int           `yaml:"page_size"`
	MinRatingCount int           `yaml:"min_rating_count"`
}

// FormatConfig controls how release dates are rendered
type FormatConfig struct {
	Locale   string `yaml:"locale"`
	TimeZone string `yaml:"time_zone"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	ShareToken   bool          `yaml:"share_token"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	LookupTopic   string        `yaml:"lookup_topic"`
	PrefetchTopic string        `yaml:"prefetch_topic"`
	GroupID       string        `yaml:"group_id"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
}

// WarmConfig holds the cache warm worker configuration
type WarmConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// WebSocketConfig toggles the live lookup feed
type WebSocketConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// applyEnv lets the process environment override credentials and port
func (c *Config) applyEnv() {
	if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
		c.Twitch.ClientID = v
	}
	if v := os.Getenv("TWITCH_CLIENT_SECRET"); v != "" {
		c.Twitch.ClientSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Transport == "" {
		c.Server.Transport = "chi"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Twitch defaults
	if c.Twitch.TokenURL == "" {
		c.Twitch.TokenURL = "https://id.twitch.tv/oauth2/token"
	}
	if c.Twitch.Timeout == 0 {
		c.Twitch.Timeout = 10 * time.Second
	}

	// IGDB defaults
	if c.IGDB.BaseURL == "" {
		c.IGDB.BaseURL = "https://api.igdb.com/v4"
	}
	if c.IGDB.Timeout == 0 {
		c.IGDB.Timeout = 15 * time.Second
	}
	if c.IGDB.PageSize == 0 {
		c.IGDB.PageSize = 50
	}
	if c.IGDB.MinRatingCount == 0 {
		c.IGDB.MinRatingCount = 50
	}

	// Format defaults
	if c.Format.Locale == "" {
		c.Format.Locale = "en-US"
	}
	if c.Format.TimeZone == "" {
		c.Format.TimeZone = "UTC"
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 20
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 2
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 10 * time.Minute
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 10
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 1
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.LookupTopic == "" {
		c.Kafka.LookupTopic = "igdb-lookups"
	}
	if c.Kafka.PrefetchTopic == "" {
		c.Kafka.PrefetchTopic = "igdb-prefetch"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "igdb-proxy"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 20
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 2 * time.Second
	}

	// Warm defaults
	if c.Warm.Interval == 0 {
		c.Warm.Interval = 5 * time.Minute
	}
}

// Validate checks that the settings required to talk to IGDB are present
func (c *Config) Validate() error {
	if c.Twitch.ClientID == "" {
		return errors.New("twitch client id is required (TWITCH_CLIENT_ID)")
	}
	if c.Twitch.ClientSecret == "" {
		return errors.New("twitch client secret is required (TWITCH_CLIENT_SECRET)")
	}
	switch c.Server.Transport {
	case "chi", "mux":
	default:
		return fmt.Errorf("unknown server transport %q", c.Server.Transport)
	}
	return nil
}

// DefaultConfig returns a configuration with all defaults, reading
// credentials and port from the environment
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}
