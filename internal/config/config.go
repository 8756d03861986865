package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 永続ストアの種類
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// 再試行の設定
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	StoreBackend string // postgres / memory

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret  string        // セッショントークン署名シークレット
	SessionTTL time.Duration // セッショントークンの有効期限

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORSや決済の戻り先で使う）

	CommerceAPIURL string        // コマースAPIのベースURL
	CommerceAPIKey string        // 任意
	ShopID         string        // ショップID
	HTTPTimeout    time.Duration // コマースAPIの固定タイムアウト

	Retry            RetryConfig
	SessionCacheSize int

	LogLevel string
}

// YAMLで上書きできる項目
type fileConfig struct {
	Retry            *RetryConfig   `yaml:"retry"`
	HTTPTimeout      *time.Duration `yaml:"http_timeout"`
	SessionCacheSize *int           `yaml:"session_cache_size"`
	SessionTTL       *time.Duration `yaml:"session_ttl"`
}

// Default は開発用の既定値
func Default() Config {
	return Config{
		Port:            "8080",
		StoreBackend:    StoreBackendPostgres,
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresUser:    "postgres",
		PostgresDB:      "app",
		PostgresSSLMode: "disable",
		SessionTTL:      14 * 24 * time.Hour,
		GoEnv:           "dev",
		HTTPTimeout:     10 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  time.Second,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2,
		},
		SessionCacheSize: 1024,
		LogLevel:         "info",
	}
}

// Loadは 既定値 -> CONFIG_FILE(YAML) -> 環境変数 の順に読む
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は必須チェック
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.CommerceAPIURL == "" {
		return fmt.Errorf("COMMERCE_API_URL is required")
	}
	if c.ShopID == "" {
		return fmt.Errorf("SHOP_ID is required")
	}
	if c.FEURL == "" {
		return fmt.Errorf("FE_URL is required")
	}
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DatabaseURL == "" && c.PostgresPassword == "" {
			return fmt.Errorf("DATABASE_URL or POSTGRES_PASSWORD is required")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %s or %s", StoreBackendPostgres, StoreBackendMemory)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be >= 1")
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("retry backoff_factor must be >= 1")
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse CONFIG_FILE: %w", err)
	}

	if fc.Retry != nil {
		if fc.Retry.MaxAttempts != 0 {
			cfg.Retry.MaxAttempts = fc.Retry.MaxAttempts
		}
		if fc.Retry.InitialDelay != 0 {
			cfg.Retry.InitialDelay = fc.Retry.InitialDelay
		}
		if fc.Retry.MaxDelay != 0 {
			cfg.Retry.MaxDelay = fc.Retry.MaxDelay
		}
		if fc.Retry.BackoffFactor != 0 {
			cfg.Retry.BackoffFactor = fc.Retry.BackoffFactor
		}
	}
	if fc.HTTPTimeout != nil {
		cfg.HTTPTimeout = *fc.HTTPTimeout
	}
	if fc.SessionCacheSize != nil {
		cfg.SessionCacheSize = *fc.SessionCacheSize
	}
	if fc.SessionTTL != nil {
		cfg.SessionTTL = *fc.SessionTTL
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.StoreBackend, "STORE_BACKEND")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.PostgresUser, "POSTGRES_USER")
	setString(&cfg.PostgresPassword, "POSTGRES_PASSWORD")
	setString(&cfg.PostgresDB, "POSTGRES_DB")
	setString(&cfg.PostgresHost, "POSTGRES_HOST")
	setString(&cfg.PostgresSSLMode, "POSTGRES_SSLMODE")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.GoEnv, "GO_ENV")
	setString(&cfg.FEURL, "FE_URL")
	setString(&cfg.CommerceAPIURL, "COMMERCE_API_URL")
	setString(&cfg.CommerceAPIKey, "COMMERCE_API_KEY")
	setString(&cfg.ShopID, "SHOP_ID")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	cfg.Port = strings.TrimPrefix(cfg.Port, ":")
	cfg.CommerceAPIURL = strings.TrimRight(cfg.CommerceAPIURL, "/")
	cfg.FEURL = strings.TrimRight(cfg.FEURL, "/")

	if err := setInt(&cfg.PostgresPort, "POSTGRES_PORT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Retry.MaxAttempts, "RETRY_MAX_ATTEMPTS"); err != nil {
		return err
	}
	if err := setInt(&cfg.SessionCacheSize, "SESSION_CACHE_SIZE"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Retry.InitialDelay, "RETRY_INITIAL_DELAY"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Retry.MaxDelay, "RETRY_MAX_DELAY"); err != nil {
		return err
	}
	if err := setDuration(&cfg.HTTPTimeout, "HTTP_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.SessionTTL, "SESSION_TTL"); err != nil {
		return err
	}
	if v := os.Getenv("RETRY_BACKOFF_FACTOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RETRY_BACKOFF_FACTOR must be number: %w", err)
		}
		cfg.Retry.BackoffFactor = f
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be number: %w", key, err)
	}
	*dst = i
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s must be duration: %w", key, err)
	}
	*dst = d
	return nil
}
