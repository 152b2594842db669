// Package config 分层加载配置：默认值 -> YAML 文件 -> 环境变量
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/imagestore"
	"github.com/studieren/foodgram/logging"
)

const (
	EnvPrefix  = "FOODGRAM_"
	PathEnvVar = "CONFIG_PATH"
)

var DefaultPaths = []string{"config.yaml", "config.yml", "/etc/foodgram/config.yaml"}

type Config struct {
	Server   ServerConfig      `koanf:"server"`
	Database gormtool.DBConfig `koanf:"database"`
	Redis    RedisConfig       `koanf:"redis"`
	Cache    CacheConfig       `koanf:"cache"`
	Auth     auth.Config       `koanf:"auth"`
	Images   imagestore.Config `koanf:"images"`
	Log      logging.Config    `koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	Mode            string        `koanf:"mode"` // debug | release | test
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type CacheConfig struct {
	TTL     time.Duration `koanf:"ttl"`
	LRUSize int           `koanf:"lru_size"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":1234",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			Mode:            "release",
		},
		Database: gormtool.DBConfig{
			Driver:       "sqlite",
			DSN:          "foodgram.db?_foreign_keys=on",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			MaxLifetime:  time.Hour,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6379",
			Prefix:  "foodgram:",
		},
		Cache: CacheConfig{TTL: gormtool.CacheTTL, LRUSize: 1024},
		Auth: auth.Config{
			Issuer:   "foodgram",
			TokenTTL: 24 * time.Hour,
		},
		Images: imagestore.Config{
			Backend: "local",
			Dir:     "media",
			BaseURL: "/media",
		},
		Log: logging.Config{Level: "info", Format: "json"},
	}
}

// Load 环境变量优先级最高：FOODGRAM_AUTH__JWT_SECRET -> auth.jwt_secret
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	if err := splitCommaList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitCommaList 环境变量里的列表以逗号分隔
func splitCommaList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return k.Set(path, items)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch c.Images.Backend {
	case "local":
	case "s3":
		if c.Images.S3.Bucket == "" {
			errs = append(errs, errors.New("images.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("images.backend %q is not supported", c.Images.Backend))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.LRUSize <= 0 {
		errs = append(errs, errors.New("cache.lru_size must be positive"))
	}
	return errors.Join(errs...)
}
