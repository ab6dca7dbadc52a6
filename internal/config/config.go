package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config aggregates every environment-driven knob of the service.
// A single binary runs either as the partition worker (Chat.WorkerEnabled)
// or as the API/gateway role.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Broker   BrokerConfig
	Chat     ChatConfig
	Auth     AuthConfig
}

type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}

type DatabaseConfig struct {
	URL string `env:"DB_URL,required,notEmpty"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

// BrokerConfig shapes the partitioned queue topology. RetryDelay is how long
// a failed message parks before re-entering its partition queue.
type BrokerConfig struct {
	PartitionCount   int           `env:"PARTITION_COUNT" envDefault:"4"`
	MaxRetries       int           `env:"MAX_RETRIES" envDefault:"3"`
	ConsumerPrefetch int           `env:"CONSUMER_PREFETCH" envDefault:"1"`
	RetryDelay       time.Duration `env:"RETRY_DELAY" envDefault:"5s"`
	QueuePrefix      string        `env:"MESSAGE_QUEUE_PREFIX" envDefault:"chat:messages"`
	DeadLetterQueue  string        `env:"DEAD_LETTER_QUEUE" envDefault:"chat:messages:dead"`
}

type ChatConfig struct {
	WorkerEnabled       bool          `env:"CHAT_WORKER_ENABLED" envDefault:"false"`
	NotificationChannel string        `env:"CHAT_NOTIFICATION_CHANNEL" envDefault:"chat:notifications"`
	DedupTTL            time.Duration `env:"CHAT_DEDUP_TTL" envDefault:"60s"`
	DedupKeyPrefix      string        `env:"CHAT_DEDUP_KEY_PREFIX" envDefault:"chat:dedup:"`
	SequenceKeyPrefix   string        `env:"CHAT_SEQUENCE_KEY_PREFIX" envDefault:"chat:seq:"`
	PresenceKeyPrefix   string        `env:"CHAT_PRESENCE_KEY_PREFIX" envDefault:"chat:presence:"`
}

type AuthConfig struct {
	JWTSecret        string `env:"JWT_SECRET,required,notEmpty"`
	Issuer           string `env:"JWT_ISSUER" envDefault:"chat-be"`
	RevokedKeyPrefix string `env:"AUTH_REVOKED_KEY_PREFIX" envDefault:"auth:revoked:"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Broker.PartitionCount < 1 {
		return fmt.Errorf("config: PARTITION_COUNT must be at least 1, got %d", c.Broker.PartitionCount)
	}
	if c.Broker.MaxRetries < 0 {
		return fmt.Errorf("config: MAX_RETRIES must not be negative, got %d", c.Broker.MaxRetries)
	}
	if c.Broker.ConsumerPrefetch < 1 {
		return fmt.Errorf("config: CONSUMER_PREFETCH must be at least 1, got %d", c.Broker.ConsumerPrefetch)
	}
	if c.Broker.RetryDelay <= 0 {
		return fmt.Errorf("config: RETRY_DELAY must be positive, got %s", c.Broker.RetryDelay)
	}
	if c.Chat.DedupTTL <= 0 {
		return fmt.Errorf("config: CHAT_DEDUP_TTL must be positive, got %s", c.Chat.DedupTTL)
	}
	return nil
}
