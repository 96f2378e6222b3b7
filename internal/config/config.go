package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StoreDriver はサーバーの永続化先。
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreMongo    StoreDriver = "mongo"
)

// Config はAPIサーバーとワーカーの設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreDriver   StoreDriver
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// Auth
	JWTSecret string
	JWTExpire time.Duration

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitAuth    int

	// Worker
	ExpiryInterval time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// ClientConfig はオフラインファーストクライアントの設定を保持する。
type ClientConfig struct {
	APIURL        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	CacheDuration time.Duration
	RedirectDelay time.Duration

	// Local store
	LocalStoreDriver string
	LocalStorePath   string
	RedisAddr        string
	RedisPassword    string
	RedisPrefix      string

	LogLevel string
}

// LoadDotEnv はpathのファイルが存在する場合に環境変数として読み込む。
// 既に設定済みの環境変数は上書きしない。
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.StoreDriver = StoreDriver(strings.ToLower(getEnvString("STORE_DRIVER", string(StorePostgres))))
	switch cfg.StoreDriver {
	case StorePostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreMongo:
		cfg.MongoURI = os.Getenv("MONGODB_URI")
		if cfg.MongoURI == "" {
			missing = append(missing, "MONGODB_URI")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER: %q", cfg.StoreDriver)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MongoDatabase = getEnvString("MONGODB_DATABASE", "fitzone")
	cfg.JWTExpire = getEnvDuration("JWT_EXPIRE", 24*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.ExpiryInterval = getEnvDuration("EXPIRY_INTERVAL", time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "5000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// LoadClient は環境変数からClientConfigを読み込む。必須項目はない。
func LoadClient() *ClientConfig {
	return &ClientConfig{
		APIURL:           strings.TrimRight(getEnvString("API_URL", "http://localhost:5000/api"), "/"),
		Timeout:          getEnvDuration("CLIENT_TIMEOUT", 10*time.Second),
		RetryAttempts:    getEnvInt("RETRY_ATTEMPTS", 3),
		RetryDelay:       getEnvDuration("RETRY_DELAY", time.Second),
		CacheDuration:    getEnvDuration("CACHE_DURATION", 5*time.Minute),
		RedirectDelay:    getEnvDuration("REDIRECT_DELAY", 100*time.Millisecond),
		LocalStoreDriver: getEnvString("LOCAL_STORE_DRIVER", "sqlite"),
		LocalStorePath:   getEnvString("LOCAL_STORE_PATH", "fitzone-local.db"),
		RedisAddr:        getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisPrefix:      getEnvString("REDIS_PREFIX", "fitzone:"),
		LogLevel:         getEnvString("LOG_LEVEL", "info"),
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
