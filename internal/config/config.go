package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Assets  AssetsConfig  `mapstructure:"assets"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MinIO   MinIOConfig   `mapstructure:"minio"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Clamd   ClamdConfig   `mapstructure:"clamd"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port         int   `mapstructure:"port"`
	MaxUploadMiB int64 `mapstructure:"max_upload_mib"`
}

// StorageConfig locates the local directories used by generation runs.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// InputDir holds the most recently uploaded spreadsheet and template.
func (s StorageConfig) InputDir() string { return filepath.Join(s.DataDir, "input") }

// OutputDir holds the current run's images and archive.
func (s StorageConfig) OutputDir() string { return filepath.Join(s.DataDir, "output") }

// JobsDir holds per-job workspaces of the asynchronous worker.
func (s StorageConfig) JobsDir() string { return filepath.Join(s.DataDir, "jobs") }

// AssetsConfig points at the bundled font files.
type AssetsConfig struct {
	NameFont    string `mapstructure:"name_font"`
	DetailsFont string `mapstructure:"details_font"`
}

// RedisConfig 包含 Redis 连接配置。Host 为空时异步任务相关功能关闭。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

// Addr returns host:port.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
// Archives are only published when Endpoint is set.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	Bucket           string `mapstructure:"bucket"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// Enabled reports whether archives should be published to object storage.
func (m MinIOConfig) Enabled() bool { return m.Endpoint != "" }

// WorkerConfig controls the asynq worker.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ClamdConfig enables virus scanning of uploads when Addr is set.
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.max_upload_mib", 32)
	v.SetDefault("storage.data_dir", ".")
	v.SetDefault("assets.name_font", filepath.Join("assets", "fonts", "Rillosta.ttf"))
	v.SetDefault("assets.details_font", filepath.Join("assets", "fonts", "OpenSans-Regular.ttf"))
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.bucket", "certificates")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("clamd.addr", "")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                 "API_PORT",
		"api.max_upload_mib":       "API_MAX_UPLOAD_MIB",
		"storage.data_dir":         "DATA_DIR",
		"assets.name_font":         "NAME_FONT_PATH",
		"assets.details_font":      "DETAILS_FONT_PATH",
		"redis.host":               "REDIS_HOST",
		"redis.port":               "REDIS_PORT",
		"minio.endpoint":           "MINIO_ENDPOINT",
		"minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":            "MINIO_USE_SSL",
		"minio.region":             "MINIO_REGION",
		"minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
		"minio.bucket":             "MINIO_BUCKET",
		"minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"worker.concurrency":       "WORKER_CONCURRENCY",
		"clamd.addr":               "CLAMD_ADDR",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.MaxUploadMiB <= 0 {
		return errors.New("api max upload size must be positive")
	}
	if cfg.Storage.DataDir == "" {
		return errors.New("data dir is required")
	}
	if cfg.Redis.Enabled() && cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	if cfg.MinIO.Enabled() {
		if cfg.MinIO.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if cfg.MinIO.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
		if cfg.MinIO.Bucket == "" {
			return errors.New("minio bucket is required")
		}
	}
	return nil
}
