// Package config loads service settings from config.yaml, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Store         StoreConfig         `mapstructure:"store"`
	Events        EventsConfig        `mapstructure:"events"`
	Lock          LockConfig          `mapstructure:"lock"`
	Log           LogConfig           `mapstructure:"log"`
	Manufacturing ManufacturingConfig `mapstructure:"manufacturing"`
	Reference     ReferenceConfig     `mapstructure:"reference"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StoreConfig selects where orders, stock and reference data live: memory or postgres
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// EventsConfig selects the event journal: memory or sqlite
type EventsConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LockConfig selects the per-order locker: memory or redis
type LockConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ManufacturingConfig struct {
	StrictAvailability  bool   `mapstructure:"strict_availability"`
	AllowOverProduction bool   `mapstructure:"allow_over_production"`
	NumberPrefix        string `mapstructure:"number_prefix"`
}

// ReferenceConfig points at the CSV files seeding products, BOMs, routings, work centers and stock
type ReferenceConfig struct {
	SeedDir string `mapstructure:"seed_dir"`
}

// Load reads .env (when present), then config.yaml from ./configs or the working directory,
// then environment overrides
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown drivers
func (c *Config) Validate() error {
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"store.driver", c.Store.Driver, []string{"memory", "postgres"}},
		{"events.driver", c.Events.Driver, []string{"memory", "sqlite"}},
		{"lock.driver", c.Lock.Driver, []string{"memory", "redis"}},
	}
	for _, check := range checks {
		if !contains(check.allowed, check.value) {
			return fmt.Errorf("%s must be one of %s, got %q", check.name, strings.Join(check.allowed, ", "), check.value)
		}
	}
	if c.Events.Driver == "sqlite" && c.Events.SQLitePath == "" {
		return fmt.Errorf("events.sqlite_path is required for the sqlite driver")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "shopfloor")
	v.SetDefault("database.dbname", "shopfloor")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("events.driver", "memory")
	v.SetDefault("events.sqlite_path", "shopfloor-events.db")
	v.SetDefault("lock.driver", "memory")
	v.SetDefault("lock.ttl", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("manufacturing.number_prefix", "MO")
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.dbname", "DB_NAME")

	// Redis
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Drivers
	_ = v.BindEnv("store.driver", "STORE_DRIVER")
	_ = v.BindEnv("events.driver", "EVENTS_DRIVER")
	_ = v.BindEnv("events.sqlite_path", "EVENTS_SQLITE_PATH")
	_ = v.BindEnv("lock.driver", "LOCK_DRIVER")

	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("reference.seed_dir", "SEED_DIR")
}
