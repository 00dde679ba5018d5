package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yml"

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type StorageConfig struct {
	Durable           string `yaml:"durable"`
	EphemeralCapacity int    `yaml:"ephemeral_capacity"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"`
}

type SQLConfig struct {
	Path string `yaml:"path"`
}

type CheckoutConfig struct {
	OTPTimeout   string `yaml:"otp_timeout"`
	PlaceTimeout string `yaml:"place_timeout"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type ConfigFile struct {
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	SQL      SQLConfig      `yaml:"sql"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Log      LogConfig      `yaml:"log"`
}

// Durable backend names
const (
	DurableRedis = "redis"
	DurableSQL   = "sql"
)

type Config struct {
	APIBaseURL        string
	APITimeout        time.Duration
	DurableBackend    string
	EphemeralCapacity int
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisTTL          time.Duration
	SQLPath           string
	OTPTimeout        time.Duration
	PlaceTimeout      time.Duration
	LogLevel          string
	LogDevelopment    bool
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Defaults returns the configuration used when no file is present
func Defaults() *ConfigFile {
	return &ConfigFile{
		API:      APIConfig{BaseURL: "http://localhost:8000/api", Timeout: "15s"},
		Storage:  StorageConfig{Durable: DurableRedis},
		Redis:    RedisConfig{Addr: "localhost:6379", TTL: "0s"},
		SQL:      SQLConfig{Path: "storefront.db"},
		Checkout: CheckoutConfig{OTPTimeout: "20s", PlaceTimeout: "30s"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads .env (if any), the YAML file at path (if any) and environment overrides.
// An empty path means STOREFRONT_CONFIG or DefaultPath.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = env("STOREFRONT_CONFIG", DefaultPath)
	}

	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	applyEnv(configFile)

	return configFile.Resolve()
}

// Resolve validates the file values and flattens them into a Config
func (f *ConfigFile) Resolve() (*Config, error) {
	apiTimeout, err := time.ParseDuration(f.API.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid API timeout: %w", err)
	}

	redisTTL, err := time.ParseDuration(f.Redis.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis TTL: %w", err)
	}

	otpTimeout, err := time.ParseDuration(f.Checkout.OTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP timeout: %w", err)
	}

	placeTimeout, err := time.ParseDuration(f.Checkout.PlaceTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid place timeout: %w", err)
	}

	if f.API.BaseURL == "" {
		return nil, errors.New("api base_url is required")
	}

	switch f.Storage.Durable {
	case DurableRedis, DurableSQL:
	default:
		return nil, fmt.Errorf("unknown durable storage %q (want %q or %q)", f.Storage.Durable, DurableRedis, DurableSQL)
	}

	return &Config{
		APIBaseURL:        f.API.BaseURL,
		APITimeout:        apiTimeout,
		DurableBackend:    f.Storage.Durable,
		EphemeralCapacity: f.Storage.EphemeralCapacity,
		RedisAddr:         f.Redis.Addr,
		RedisPassword:     f.Redis.Password,
		RedisDB:           f.Redis.DB,
		RedisTTL:          redisTTL,
		SQLPath:           f.SQL.Path,
		OTPTimeout:        otpTimeout,
		PlaceTimeout:      placeTimeout,
		LogLevel:          f.Log.Level,
		LogDevelopment:    f.Log.Development,
	}, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	config := Defaults()

	bytes, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return config, nil
}

func applyEnv(f *ConfigFile) {
	f.API.BaseURL = env("STOREFRONT_API_URL", f.API.BaseURL)
	f.Storage.Durable = env("STOREFRONT_DURABLE_STORE", f.Storage.Durable)
	f.Redis.Addr = env("REDIS_ADDR", f.Redis.Addr)
	f.Redis.Password = env("REDIS_PASSWORD", f.Redis.Password)
	f.SQL.Path = env("STOREFRONT_SQL_PATH", f.SQL.Path)
	f.Log.Level = env("STOREFRONT_LOG_LEVEL", f.Log.Level)
	if db, err := strconv.Atoi(env("REDIS_DB", "")); err == nil {
		f.Redis.DB = db
	}
}
