package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	API struct {
		BaseURL      string        `mapstructure:"base_url"`
		BypassHeader string        `mapstructure:"bypass_header"`
		BypassValue  string        `mapstructure:"bypass_value"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"api"`

	Store struct {
		Backend string `mapstructure:"backend"` // "file" or "redis"
		Path    string `mapstructure:"path"`
		// Hex-encoded 32-byte secretbox key; plaintext storage when empty
		EncryptionKey string `mapstructure:"encryption_key"`
	} `mapstructure:"store"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (library works without config file)
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.bypass_header", "ngrok-skip-browser-warning")
	v.SetDefault("api.bypass_value", "1")
	v.SetDefault("api.timeout", time.Duration(0)) // no client-enforced timeout
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "session.json")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9100)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override API settings from API_* environment variables
	if base := os.Getenv("API_BASE_URL"); base != "" {
		cfg.API.BaseURL = base
	}
	if hdr := os.Getenv("API_BYPASS_HEADER"); hdr != "" {
		cfg.API.BypassHeader = hdr
	}
	if val := os.Getenv("API_BYPASS_VALUE"); val != "" {
		cfg.API.BypassValue = val
	}
	if t := os.Getenv("API_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			cfg.API.Timeout = d
		}
	}

	// Override store settings
	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if path := os.Getenv("STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if key := os.Getenv("STORE_ENCRYPTION_KEY"); key != "" {
		cfg.Store.EncryptionKey = key
	}

	// Redis settings follow the K8s service env var convention first
	if host := os.Getenv("REDIS_SERVICE_HOST"); host != "" {
		port := os.Getenv("REDIS_SERVICE_PORT")
		if port == "" {
			port = "6379"
		}
		cfg.Redis.Addr = host + ":" + port
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Redis.DB = n
		}
	}

	return &cfg
}
