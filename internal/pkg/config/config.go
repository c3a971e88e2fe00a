package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Lock   LockConfig
	Kafka  KafkaConfig
	Events EventsConfig
	Proofs ProofConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=shipment_legs"`
}

// RedisConfig: an empty address falls back to in-process locks, which is
// only safe with a single API instance.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type LockConfig struct {
	TTL  time.Duration `env:"LOCK_TTL,  default=10s"`
	Wait time.Duration `env:"LOCK_WAIT, default=3s"`
}

// KafkaConfig: with no brokers, events are journaled to MongoDB instead.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC, default=shipment-leg-events"`
}

type EventsConfig struct {
	Workers int `env:"EVENT_WORKERS, default=4"`
}

type ProofConfig struct {
	Bucket   string `env:"S3_BUCKET,       default=shipment-legs-proofs"`
	Region   string `env:"S3_REGION,       default=us-east-1"`
	Endpoint string `env:"S3_ENDPOINT"`
	Prefix   string `env:"S3_PREFIX,       default=proofs"`
	MaxBytes int64  `env:"MAX_PROOF_BYTES, default=10485760"`
}

// IsProduction reports whether the service runs with production defaults
// (JSON logs, mandatory secrets).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate rejects combinations that would start a broken server.
func (c *Config) Validate() error {
	if c.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("config: JWT_SECRET is required in production")
	}
	if c.Lock.TTL <= 0 || c.Lock.Wait <= 0 {
		return fmt.Errorf("config: LOCK_TTL and LOCK_WAIT must be positive")
	}
	if c.Proofs.MaxBytes <= 0 {
		return fmt.Errorf("config: MAX_PROOF_BYTES must be positive")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom is Load with an explicit source, used by tests.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
