package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

func (p Postgres) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

type Rabbit struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

func (r Rabbit) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}

type Display struct {
	APIBaseURL    string
	BoardInterval time.Duration
	TickInterval  time.Duration
	TableFilter   string
}

type Spooler struct {
	SpoolDir   string
	Prefetch   int
	PrintDelay time.Duration
}

type Config struct {
	HTTPPort int
	Debug    bool
	Pretty   bool
	Postgres Postgres
	Rabbit   Rabbit
	Display  Display
	Spooler  Spooler
}

// Load reads configuration from the environment, optionally seeded from a
// .env file. Only the api-server and print-spooler modes touch Postgres and
// RabbitMQ, so their variables are validated by the respective Run functions
// rather than here.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.HTTPPort = envInt("HTTP_PORT", 3000)
	cfg.Debug = envBool("DEBUG", false)
	cfg.Pretty = envBool("PRETTY_LOGS", false)

	cfg.Postgres.Host = envStr("DB_HOST", "localhost")
	cfg.Postgres.Port = envInt("DB_PORT", 5432)
	cfg.Postgres.User = envStr("DB_USER", "postgres")
	cfg.Postgres.Password = envStr("DB_PASSWORD", "")
	cfg.Postgres.Database = envStr("DB_NAME", "restaurant_foh")
	cfg.Postgres.SSLMode = envStr("DB_SSLMODE", "disable")
	cfg.Postgres.MaxConns = envInt("DB_MAX_CONNS", 10)

	cfg.Rabbit.Host = envStr("RABBIT_HOST", "localhost")
	cfg.Rabbit.Port = envInt("RABBIT_PORT", 5672)
	cfg.Rabbit.User = envStr("RABBIT_USER", "guest")
	cfg.Rabbit.Password = envStr("RABBIT_PASSWORD", "guest")
	cfg.Rabbit.VHost = envStr("RABBIT_VHOST", "")

	cfg.Display.APIBaseURL = envStr("API_BASE_URL", "http://localhost:3000")
	cfg.Display.BoardInterval = envDuration("BOARD_POLL_INTERVAL", 3*time.Second)
	cfg.Display.TickInterval = envDuration("CLOCK_TICK_INTERVAL", time.Second)
	cfg.Display.TableFilter = envStr("TABLE_FILTER", "")

	cfg.Spooler.SpoolDir = envStr("SPOOL_DIR", "spool")
	cfg.Spooler.Prefetch = envInt("SPOOL_PREFETCH", 1)
	cfg.Spooler.PrintDelay = envDuration("PRINT_DELAY", 2*time.Second)

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
