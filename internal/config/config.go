package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config is built once at process start and handed to each component.
type Config struct {
	Server    ServerConfig
	Database  DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Ledger    LedgerConfig
	Scheduler SchedulerConfig
	Statement StatementConfig
	Tier      TierConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	SecretKey string
}

type LedgerConfig struct {
	DefaultCurrency string
	DefaultPageSize int
	MaxPageSize     int
	// WelcomeBonus is credited once per user to their wealth builder account.
	WelcomeBonus string
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
	LockTTL  time.Duration
}

type StatementConfig struct {
	EntryLimit int
}

// TierConfig bounds what free users may do. Premium users and admins are not limited.
type TierConfig struct {
	FreeScheduledLimit int
	FreeWindow         time.Duration
}

type LogConfig struct {
	Level       string
	Development bool
}

var envBindings = map[string]string{
	"server.port":             "PORT",
	"server.allowed_origins":   "CORS_ORIGINS",
	"database.host":           "DATABASE_HOST",
	"database.port":           "DATABASE_PORT",
	"database.user":           "DATABASE_USER",
	"database.password":       "DATABASE_PASSWORD",
	"database.name":           "DATABASE_NAME",
	"database.ssl_mode":       "DATABASE_SSL_MODE",
	"database.auto_migrate":   "DATABASE_AUTO_MIGRATE",
	"redis.host":              "REDIS_HOST",
	"redis.port":              "REDIS_PORT",
	"redis.password":          "REDIS_PASSWORD",
	"redis.db":                "REDIS_DB",
	"jwt.secret_key":          "JWT_SECRET_KEY",
	"ledger.default_currency": "LEDGER_DEFAULT_CURRENCY",
	"ledger.welcome_bonus":    "LEDGER_WELCOME_BONUS",
	"scheduler.enabled":       "SCHEDULER_ENABLED",
	"scheduler.interval":      "SCHEDULER_INTERVAL",
	"scheduler.lock_ttl":      "SCHEDULER_LOCK_TTL",
	"statement.entry_limit":   "STATEMENT_ENTRY_LIMIT",
	"tier.free_scheduled":     "TIER_FREE_SCHEDULED_LIMIT",
	"tier.free_window":        "TIER_FREE_WINDOW",
	"log.level":               "LOG_LEVEL",
	"log.development":         "LOG_DEVELOPMENT",
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"https://*", "http://*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "intention_bank")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ledger.default_currency", "USD")
	v.SetDefault("ledger.default_page_size", 50)
	v.SetDefault("ledger.max_page_size", 200)
	v.SetDefault("ledger.welcome_bonus", "999.00")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", 60*time.Second)
	v.SetDefault("scheduler.lock_ttl", 55*time.Second)

	v.SetDefault("statement.entry_limit", 200)

	v.SetDefault("tier.free_scheduled", 3)
	v.SetDefault("tier.free_window", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads .env (if present) and the environment into a Config.
func Load() *Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, env := range envBindings {
		v.BindEnv(key, env)
	}
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
		},
		Database: DBConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			SecretKey: v.GetString("jwt.secret_key"),
		},
		Ledger: LedgerConfig{
			DefaultCurrency: v.GetString("ledger.default_currency"),
			DefaultPageSize: v.GetInt("ledger.default_page_size"),
			MaxPageSize:     v.GetInt("ledger.max_page_size"),
			WelcomeBonus:    v.GetString("ledger.welcome_bonus"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("scheduler.enabled"),
			Interval: v.GetDuration("scheduler.interval"),
			LockTTL:  v.GetDuration("scheduler.lock_ttl"),
		},
		Statement: StatementConfig{
			EntryLimit: v.GetInt("statement.entry_limit"),
		},
		Tier: TierConfig{
			FreeScheduledLimit: v.GetInt("tier.free_scheduled"),
			FreeWindow:         v.GetDuration("tier.free_window"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	return FromViper(v)
}
