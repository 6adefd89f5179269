package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Store    StoreConfig    `mapstructure:"store"`
	Assist   AssistConfig   `mapstructure:"assist"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// OwnerHeader 携带调用方身份，由前置网关写入。
	OwnerHeader string `mapstructure:"owner_header"`
	// AllowedOrigins 为逗号分隔的 WebSocket 来源白名单，为空时只允许同源。
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins splits AllowedOrigins into a list.
func (a APIConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(a.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig contains connection options for PostgreSQL, or a file path
// when the embedded SQLite driver is selected.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Name       string `mapstructure:"name"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`

	// PublicEndpoint 用于生成浏览器可访问的预签名链接，为空时使用 Endpoint。
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// Fallback policies for a failed update.
const (
	FallbackNotFound = "not_found"
	FallbackAny      = "any"
)

// StoreConfig 控制简历草稿存储与列表缓存的行为。
type StoreConfig struct {
	// Collection is the document collection path; "{owner}" is replaced by the owner id.
	Collection     string        `mapstructure:"collection"`
	FallbackPolicy string        `mapstructure:"fallback_policy"`
	RecentWindow   time.Duration `mapstructure:"recent_window"`
	SnapshotTTL    time.Duration `mapstructure:"snapshot_ttl"`
	GetCacheTTL    time.Duration `mapstructure:"get_cache_ttl"`
	ExportURLTTL   time.Duration `mapstructure:"export_url_ttl"`
}

// AssistConfig points at an OpenAI-compatible chat completions endpoint.
// Suggestions are disabled when BaseURL is empty.
type AssistConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a generator endpoint is configured.
func (a AssistConfig) Enabled() bool {
	return strings.TrimSpace(a.BaseURL) != ""
}

// CollectionFor expands the collection template for owner.
func (s StoreConfig) CollectionFor(owner string) string {
	return strings.ReplaceAll(s.Collection, "{owner}", owner)
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
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
	v.SetDefault("api.owner_header", "X-Owner-ID")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumes")
	v.SetDefault("database.user", "resumes")
	v.SetDefault("database.password", "resumes")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "resumes.db")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resume-exports")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("store.collection", "users/{owner}/resumes")
	v.SetDefault("store.fallback_policy", FallbackNotFound)
	v.SetDefault("store.recent_window", 7*24*time.Hour)
	v.SetDefault("store.snapshot_ttl", 10*time.Minute)
	v.SetDefault("store.get_cache_ttl", 30*time.Second)
	v.SetDefault("store.export_url_ttl", 15*time.Minute)
	v.SetDefault("assist.model", "gpt-4o-mini")
	v.SetDefault("assist.timeout", 30*time.Second)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                 "API_PORT",
		"api.owner_header":         "API_OWNER_HEADER",
		"api.allowed_origins":      "API_ALLOWED_ORIGINS",
		"database.driver":          "DATABASE_DRIVER",
		"database.host":            "DATABASE_HOST",
		"database.port":            "DATABASE_PORT",
		"database.name":            "POSTGRES_DB",
		"database.user":            "POSTGRES_USER",
		"database.password":        "POSTGRES_PASSWORD",
		"database.sslmode":         "DATABASE_SSLMODE",
		"database.sqlite_path":     "SQLITE_PATH",
		"redis.host":               "REDIS_HOST",
		"redis.port":               "REDIS_PORT",
		"minio.endpoint":           "MINIO_ENDPOINT",
		"minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":            "MINIO_USE_SSL",
		"minio.bucket":             "MINIO_BUCKET",
		"minio.region":             "MINIO_REGION",
		"minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"store.collection":         "STORE_COLLECTION",
		"store.fallback_policy":    "STORE_FALLBACK_POLICY",
		"store.recent_window":      "STORE_RECENT_WINDOW",
		"store.snapshot_ttl":       "STORE_SNAPSHOT_TTL",
		"store.get_cache_ttl":      "STORE_GET_CACHE_TTL",
		"store.export_url_ttl":     "STORE_EXPORT_URL_TTL",
		"assist.base_url":          "ASSIST_BASE_URL",
		"assist.api_key":           "OPENAI_API_KEY",
		"assist.model":             "ASSIST_MODEL",
		"assist.timeout":           "ASSIST_TIMEOUT",
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
	if strings.TrimSpace(cfg.API.OwnerHeader) == "" {
		return errors.New("api owner header is required")
	}
	if err := validateDatabase(cfg.Database); err != nil {
		return err
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if err := validateStore(cfg.Store); err != nil {
		return err
	}
	if cfg.Assist.Enabled() && cfg.Assist.Model == "" {
		return errors.New("assist model is required")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	switch d.Driver {
	case DriverSQLite:
		if d.SQLitePath == "" {
			return errors.New("sqlite path is required")
		}
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", d.Driver)
	}
	if d.Host == "" {
		return errors.New("database host is required")
	}
	if d.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if d.Name == "" {
		return errors.New("database name is required")
	}
	if d.User == "" {
		return errors.New("database user is required")
	}
	if d.Password == "" {
		return errors.New("database password is required")
	}
	if d.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	return nil
}

func validateStore(s StoreConfig) error {
	if !strings.Contains(s.Collection, "{owner}") {
		return errors.New("store collection must contain {owner}")
	}
	switch s.FallbackPolicy {
	case FallbackNotFound, FallbackAny:
	default:
		return fmt.Errorf("unsupported store fallback policy %q", s.FallbackPolicy)
	}
	if s.RecentWindow <= 0 {
		return errors.New("store recent window must be positive")
	}
	if s.GetCacheTTL < 0 || s.SnapshotTTL < 0 {
		return errors.New("store cache ttl must not be negative")
	}
	return nil
}
