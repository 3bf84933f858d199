package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Roblox    RobloxConfig
	Reconcile ReconcileConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type RobloxConfig struct {
	// Cookie is the long-lived .ROBLOSECURITY credential of the bot account.
	Cookie  string        `env:"ROBLOX_COOKIE, required"`
	GroupID int64         `env:"ROBLOX_GROUP_ID, required"`
	Timeout time.Duration `env:"ROBLOX_TIMEOUT, default=15s"`

	// SuspensionRank is the display name of the role suspended members are
	// demoted to. It must exist in the group's role catalog.
	SuspensionRank string `env:"SUSPENSION_RANK, default=Suspended"`
}

type ReconcileConfig struct {
	Interval time.Duration `env:"RECONCILE_INTERVAL, default=5m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=ranking_system"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
