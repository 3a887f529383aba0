package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultJWTSecret = "dev-only-secret-change-me"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Queue    QueueConfig    `yaml:"queue"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Secure      bool   `yaml:"secure"`      // Use HTTPS-only cookies
	Environment string `yaml:"environment"` // "development", "production", "test"
	Debug       bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
}

// StorageConfig points at an S3-compatible bucket for profile pictures.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// QueueConfig configures notification fan-out. An empty URL disables it.
type QueueConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

func (q QueueConfig) Enabled() bool {
	return q.URL != ""
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "cotravels",
			DBName:   "cotravels",
			SSLMode:  "disable",
			MaxConns: 25,
			MinConns: 5,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
		},
		Auth: AuthConfig{
			JWTSecret:       defaultJWTSecret,
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
			BcryptCost:      12,
		},
		Storage: StorageConfig{
			Bucket: "profile-pictures",
		},
		Queue: QueueConfig{
			Queue: "notifications",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file named by CONFIG_FILE, and finally the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Secure = getEnvBool("SERVER_SECURE", cfg.Server.Secure)
	cfg.Server.Environment = getEnv("APP_ENV", cfg.Server.Environment)
	cfg.Server.Debug = getEnvBool("DEBUG", cfg.Server.Debug)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(cfg.Database.MaxConns)))
	cfg.Database.MinConns = int32(getEnvInt("DB_MIN_CONNS", int(cfg.Database.MinConns)))

	cfg.Redis.Host = getEnv("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getEnvInt("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", cfg.Auth.AccessTokenTTL)
	cfg.Auth.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", cfg.Auth.RefreshTokenTTL)
	cfg.Auth.BcryptCost = getEnvInt("BCRYPT_COST", cfg.Auth.BcryptCost)

	cfg.Storage.Endpoint = getEnv("STORAGE_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = getEnv("STORAGE_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = getEnv("STORAGE_SECRET_KEY", cfg.Storage.SecretKey)
	cfg.Storage.Bucket = getEnv("STORAGE_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.UseSSL = getEnvBool("STORAGE_USE_SSL", cfg.Storage.UseSSL)

	cfg.Queue.URL = getEnv("AMQP_URL", cfg.Queue.URL)
	cfg.Queue.Queue = getEnv("AMQP_QUEUE", cfg.Queue.Queue)
}

func (c *Config) Validate() error {
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		return errors.New("access token TTL must be shorter than refresh token TTL")
	}
	if c.Server.Environment == "production" {
		if c.Auth.JWTSecret == defaultJWTSecret || len(c.Auth.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be set to at least 32 bytes in production")
		}
	}
	if c.Database.MinConns < 0 || c.Database.MaxConns < 1 || c.Database.MinConns > c.Database.MaxConns {
		return errors.New("database pool needs 0 <= DB_MIN_CONNS <= DB_MAX_CONNS and DB_MAX_CONNS >= 1")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
