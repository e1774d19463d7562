package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agilevibe/poker/internal/insight"
	"github.com/agilevibe/poker/internal/session"
	"github.com/agilevibe/poker/internal/store/natsstore"
	"github.com/agilevibe/poker/internal/store/redisstore"
)

// Backend selects the replication substrate.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendNATS   Backend = "nats"
)

// Config is the full replica configuration. Values come from an optional
// yaml file with environment variable overrides on top.
type Config struct {
	RoomID  string  `yaml:"room_id"`
	Backend Backend `yaml:"backend"`

	HeartbeatIntervalSec int `yaml:"heartbeat_interval_sec"`
	LivenessWindowSec    int `yaml:"liveness_window_sec"`

	IdentityDir string `yaml:"identity_dir"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	NATS struct {
		URL    string `yaml:"url"`
		Bucket string `yaml:"bucket"`
	} `yaml:"nats"`

	Insight insight.Config `yaml:"insight"`
}

func defaultConfig() *Config {
	cfg := &Config{
		RoomID:               "default-room",
		Backend:              BackendMemory,
		HeartbeatIntervalSec: int(session.DefaultHeartbeatInterval / time.Second),
		LivenessWindowSec:    int(session.DefaultLivenessWindow / time.Second),
		Insight:              insight.DefaultConfig(),
	}
	redisDefaults := redisstore.DefaultConfig()
	cfg.Redis.Addr = redisDefaults.Addr
	natsDefaults := natsstore.DefaultConfig()
	cfg.NATS.URL = natsDefaults.URL
	cfg.NATS.Bucket = natsDefaults.Bucket
	return cfg
}

// loadConfig reads the optional yaml file at path and applies env
// overrides. A missing file is fine; a broken one is not.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.RoomID = getEnv("ROOM_ID", cfg.RoomID)
	cfg.Backend = Backend(getEnv("BACKEND", string(cfg.Backend)))
	cfg.HeartbeatIntervalSec = getEnvAsInt("HEARTBEAT_INTERVAL_SEC", cfg.HeartbeatIntervalSec)
	cfg.LivenessWindowSec = getEnvAsInt("LIVENESS_WINDOW_SEC", cfg.LivenessWindowSec)
	cfg.IdentityDir = getEnv("IDENTITY_DIR", cfg.IdentityDir)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.Bucket = getEnv("NATS_BUCKET", cfg.NATS.Bucket)
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Insight.APIKey = key
	}

	switch cfg.Backend {
	case BackendMemory, BackendRedis, BackendNATS:
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.HeartbeatIntervalSec <= 0 {
		cfg.HeartbeatIntervalSec = int(session.DefaultHeartbeatInterval / time.Second)
	}
	if cfg.LivenessWindowSec <= cfg.HeartbeatIntervalSec {
		return nil, fmt.Errorf("liveness window %ds must exceed heartbeat interval %ds", cfg.LivenessWindowSec, cfg.HeartbeatIntervalSec)
	}

	return cfg, nil
}

// HeartbeatInterval returns the configured heartbeat period.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSec) * time.Second
}

// LivenessWindow returns the configured staleness bound.
func (c *Config) LivenessWindow() time.Duration {
	return time.Duration(c.LivenessWindowSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
