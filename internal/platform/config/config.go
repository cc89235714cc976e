// Package config reads process configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the validated process configuration.
type Config struct {
	Server        Server
	Postgres      Postgres
	Redis         RedisConfig
	Kafka         Kafka
	Log           Log
	Consolidation Consolidation
	Outbox        Outbox
	RoleMapPath   string
}

// Server holds the operational HTTP listener settings.
type Server struct {
	Addr            string        `validate:"required"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

type Postgres struct {
	DSN             string        `validate:"required"`
	MaxOpenConns    int           `validate:"gte=1"`
	TxTimeout       time.Duration `validate:"gt=0"`
	ApplyMigrations bool
}

// RedisConfig is optional; an empty URL keeps reservations in Postgres.
type RedisConfig struct {
	URL          string
	PoolSize     int           `validate:"gte=1"`
	MinIdleConns int           `validate:"gte=0"`
	DialTimeout  time.Duration `validate:"gt=0"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
}

// Kafka is optional; with no brokers the outbox relay does not run.
type Kafka struct {
	Brokers  []string
	Topic    string `validate:"required_with=Brokers"`
	ClientID string `validate:"required"`
}

type Log struct {
	Level      string `validate:"oneof=debug info warn error"`
	Format     string `validate:"oneof=json text"`
	File       string
	MaxSizeMB  int `validate:"gte=1"`
	MaxBackups int `validate:"gte=0"`
	MaxAgeDays int `validate:"gte=0"`
	Compress   bool
}

type Consolidation struct {
	Interval time.Duration `validate:"gt=0"`
}

type Outbox struct {
	Interval  time.Duration `validate:"gt=0"`
	BatchSize int           `validate:"gte=1,lte=10000"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads envFile when present, then the environment, and validates the
// result. A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (Config, error) {
	r := &reader{}
	cfg := Config{
		Server: Server{
			Addr:            r.str("MP_OPS_ADDR", ":9090"),
			ShutdownTimeout: r.duration("MP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN:             os.Getenv("MP_DATABASE_URL"),
			MaxOpenConns:    r.int("MP_DATABASE_MAX_OPEN_CONNS", 10),
			TxTimeout:       r.duration("MP_DATABASE_TX_TIMEOUT", 30*time.Second),
			ApplyMigrations: r.bool("MP_DATABASE_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("MP_REDIS_URL"),
			PoolSize:     r.int("MP_REDIS_POOL_SIZE", 10),
			MinIdleConns: r.int("MP_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("MP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("MP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("MP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:  r.list("MP_KAFKA_BROKERS"),
			Topic:    r.str("MP_KAFKA_TOPIC", "market-participant.events"),
			ClientID: r.str("MP_KAFKA_CLIENT_ID", "market-participant"),
		},
		Log: Log{
			Level:      r.str("MP_LOG_LEVEL", "info"),
			Format:     r.str("MP_LOG_FORMAT", "json"),
			File:       os.Getenv("MP_LOG_FILE"),
			MaxSizeMB:  r.int("MP_LOG_MAX_SIZE_MB", 100),
			MaxBackups: r.int("MP_LOG_MAX_BACKUPS", 5),
			MaxAgeDays: r.int("MP_LOG_MAX_AGE_DAYS", 30),
			Compress:   r.bool("MP_LOG_COMPRESS", true),
		},
		Consolidation: Consolidation{
			Interval: r.duration("MP_CONSOLIDATION_INTERVAL", time.Minute),
		},
		Outbox: Outbox{
			Interval:  r.duration("MP_OUTBOX_INTERVAL", time.Second),
			BatchSize: r.int("MP_OUTBOX_BATCH_SIZE", 100),
		},
		RoleMapPath: os.Getenv("MP_ROLE_MAP_PATH"),
	}
	if r.err != nil {
		return Config{}, r.err
	}
	return cfg, nil
}

// reader collects the first parse error so FromEnv stays linear.
type reader struct {
	err error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) bool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("parse %s: %w", key, err)
	}
}
