package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres    = "postgres"
	StoreDriverMemory      = "memory"
	RealtimeDriverRedis    = "redis"
	RealtimeDriverMemory   = "memory"
	defaultChannelPrefix   = "telemed:changes"
	defaultRetryBackoff    = time.Second
	defaultRealtimeBuffer  = 16
	defaultAccessExpiry    = 15 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Realtime RealtimeConfig
}

type AppConfig struct {
	Port            string
	Env             string
	LogLevel        string
	CORSOrigin      string
	StoreDriver     string
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

type RealtimeConfig struct {
	Driver        string
	ChannelPrefix string
	RetryBackoff  time.Duration
	Buffer        int
}

// LoadConfig reads .env when present; environment variables take precedence
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_CORS_ORIGIN", "*")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REALTIME_DRIVER", RealtimeDriverRedis)
	v.SetDefault("REALTIME_CHANNEL_PREFIX", defaultChannelPrefix)
	v.SetDefault("REALTIME_BUFFER", defaultRealtimeBuffer)

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, err
	}

	return &Config{
		App: AppConfig{
			Port:            v.GetString("APP_PORT"),
			Env:             v.GetString("APP_ENV"),
			LogLevel:        v.GetString("LOG_LEVEL"),
			CORSOrigin:      v.GetString("APP_CORS_ORIGIN"),
			StoreDriver:     v.GetString("STORE_DRIVER"),
			ShutdownTimeout: duration(v, "APP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			AccessExpiry: duration(v, "JWT_ACCESS_EXPIRY", defaultAccessExpiry),
		},
		Realtime: RealtimeConfig{
			Driver:        v.GetString("REALTIME_DRIVER"),
			ChannelPrefix: v.GetString("REALTIME_CHANNEL_PREFIX"),
			RetryBackoff:  duration(v, "REALTIME_RETRY_BACKOFF", defaultRetryBackoff),
			Buffer:        v.GetInt("REALTIME_BUFFER"),
		},
	}, nil
}

func duration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
