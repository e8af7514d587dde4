package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Delivery modes for the broker producer.
const (
	// DeliveryAck waits for the broker acknowledgment before a submission
	// counts as successful.
	DeliveryAck = "ack"
	// DeliveryEnqueue reports success once the record is buffered locally.
	// Delivery failures are only logged.
	DeliveryEnqueue = "enqueue"
)

// Config contains runtime configuration required by the service.
type Config struct {
	Port             int             `yaml:"port"`
	Kafka            KafkaConfig     `yaml:"kafka"`
	HTTP             HTTPConfig      `yaml:"http"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
	StrictValidation bool            `yaml:"strict_validation"`
	MetricsEnabled   bool            `yaml:"metrics_enabled"`
	ShutdownTimeout  time.Duration   `yaml:"shutdown_timeout"`
}

// KafkaConfig holds the producer settings. MessageTimeout bounds a single
// submission; Linger is how long the writer accumulates records before a
// produce request.
type KafkaConfig struct {
	Brokers                []string      `yaml:"brokers"`
	Topic                  string        `yaml:"topic"`
	ClientID               string        `yaml:"client_id"`
	MessageTimeout         time.Duration `yaml:"message_timeout"`
	Linger                 time.Duration `yaml:"linger"`
	BatchSize              int           `yaml:"batch_size"`
	RequiredAcks           string        `yaml:"required_acks"`
	DeliveryMode           string        `yaml:"delivery_mode"`
	AllowAutoTopicCreation bool          `yaml:"allow_auto_topic_creation"`
}

// HTTPConfig holds server settings. TrustedProxies lists the proxy
// addresses or CIDRs whose X-Forwarded-For is believed; when empty the
// socket address identifies the client.
type HTTPConfig struct {
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	TrustedProxies []string      `yaml:"trusted_proxies"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// RateLimitConfig enables the ingestion limiter when RedisURL is set.
type RateLimitConfig struct {
	RedisURL  string `yaml:"redis_url"`
	PerMinute int    `yaml:"per_minute"`
}

// Enabled reports whether ingestion requests are rate limited.
func (c RateLimitConfig) Enabled() bool {
	return c.RedisURL != ""
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port: 3001,
		Kafka: KafkaConfig{
			Brokers:                []string{"localhost:9092"},
			Topic:                  "activity-logs",
			ClientID:               "activity-log-rust",
			MessageTimeout:         5 * time.Second,
			Linger:                 100 * time.Millisecond,
			BatchSize:              100,
			RequiredAcks:           "all",
			DeliveryMode:           DeliveryAck,
			AllowAutoTopicCreation: true,
		},
		HTTP: HTTPConfig{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 10 << 20, // 10 MB
		},
		RateLimit: RateLimitConfig{
			PerMinute: 2000,
		},
		MetricsEnabled:  true,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Load reads configuration from environment variables on top of the defaults.
func Load() (Config, error) {
	cfg := Default()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file, then applies environment overrides.
// Keys missing from the file keep their defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the producer and server cannot run without.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS required")
	}
	if c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC required")
	}
	if c.Kafka.ClientID == "" {
		return errors.New("KAFKA_CLIENT_ID required")
	}
	if c.Kafka.MessageTimeout <= 0 {
		return errors.New("kafka message timeout must be positive")
	}
	if c.Kafka.Linger <= 0 {
		return errors.New("kafka linger must be positive")
	}
	if c.Kafka.BatchSize <= 0 {
		return errors.New("kafka batch size must be positive")
	}
	switch c.Kafka.RequiredAcks {
	case "none", "one", "all":
	default:
		return fmt.Errorf(`kafka required acks %q must be "none", "one" or "all"`, c.Kafka.RequiredAcks)
	}
	switch c.Kafka.DeliveryMode {
	case DeliveryAck, DeliveryEnqueue:
	default:
		return fmt.Errorf(`kafka delivery mode %q must be %q or %q`, c.Kafka.DeliveryMode, DeliveryAck, DeliveryEnqueue)
	}
	if c.RateLimit.Enabled() && c.RateLimit.PerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive when REDIS_URL is set")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.IdleTimeout <= 0 {
		return errors.New("http timeouts must be positive")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("HTTP_MAX_BODY_BYTES must be positive")
	}
	for _, p := range c.HTTP.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("trusted proxy %q is not an IP or CIDR", p)
			}
		}
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error

	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	cfg.Kafka.Topic = stringEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.ClientID = stringEnv("KAFKA_CLIENT_ID", cfg.Kafka.ClientID)
	if cfg.Kafka.MessageTimeout, err = durationEnv("KAFKA_MESSAGE_TIMEOUT", cfg.Kafka.MessageTimeout); err != nil {
		return err
	}
	if cfg.Kafka.Linger, err = durationEnv("KAFKA_LINGER", cfg.Kafka.Linger); err != nil {
		return err
	}
	if cfg.Kafka.BatchSize, err = intEnv("KAFKA_BATCH_SIZE", cfg.Kafka.BatchSize); err != nil {
		return err
	}
	cfg.Kafka.RequiredAcks = strings.ToLower(stringEnv("KAFKA_REQUIRED_ACKS", cfg.Kafka.RequiredAcks))
	cfg.Kafka.DeliveryMode = strings.ToLower(stringEnv("KAFKA_DELIVERY_MODE", cfg.Kafka.DeliveryMode))
	if cfg.Kafka.AllowAutoTopicCreation, err = boolEnv("KAFKA_ALLOW_AUTO_TOPIC_CREATION", cfg.Kafka.AllowAutoTopicCreation); err != nil {
		return err
	}

	if cfg.HTTP.ReadTimeout, err = durationEnv("HTTP_READ_TIMEOUT", cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if cfg.HTTP.WriteTimeout, err = durationEnv("HTTP_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if cfg.HTTP.IdleTimeout, err = durationEnv("HTTP_IDLE_TIMEOUT", cfg.HTTP.IdleTimeout); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_TRUSTED_PROXIES")); v != "" {
		cfg.HTTP.TrustedProxies = splitList(v)
	}
	var maxBody int
	if maxBody, err = intEnv("HTTP_MAX_BODY_BYTES", int(cfg.HTTP.MaxBodyBytes)); err != nil {
		return err
	}
	cfg.HTTP.MaxBodyBytes = int64(maxBody)

	cfg.RateLimit.RedisURL = stringEnv("REDIS_URL", cfg.RateLimit.RedisURL)
	if cfg.RateLimit.PerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", cfg.RateLimit.PerMinute); err != nil {
		return err
	}

	if cfg.StrictValidation, err = boolEnv("STRICT_VALIDATION", cfg.StrictValidation); err != nil {
		return err
	}
	if cfg.MetricsEnabled, err = boolEnv("METRICS_ENABLED", cfg.MetricsEnabled); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 5s, 100ms): %w", key, err)
	}
	return d, nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
