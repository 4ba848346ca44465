package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Redis      RedisConfig
	DB         DBConfig
	Auth       AuthConfig
	Server     ServerConfig
	Upload     UploadConfig
	Commission CommissionConfig
	IDNode     int64
}

type DBConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type ServerConfig struct {
	HTTPPort   string
	HealthPort string
	// RateLimit uses the limiter format, e.g. "100-M".
	RateLimit string
	// AllowedOrigins is a comma-separated CORS allow list. Empty disables CORS.
	AllowedOrigins string
}

type UploadConfig struct {
	Dir     string
	BaseURL string
}

type CommissionConfig struct {
	CsFlatFee       decimal.Decimal
	BulkConcurrency int
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	maxOpen, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "20"))
	maxIdle, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	concurrency, _ := strconv.Atoi(getEnv("BULK_CONCURRENCY", "4"))
	idNode, _ := strconv.ParseInt(getEnv("ID_NODE", "1"), 10, 64)

	tokenTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		log.Printf("Invalid JWT_TTL, using 24h: %v", err)
		tokenTTL = 24 * time.Hour
	}

	csFee, err := decimal.NewFromString(getEnv("CS_FLAT_FEE", "300"))
	if err != nil || csFee.IsNegative() {
		log.Printf("Invalid CS_FLAT_FEE, using 300")
		csFee = decimal.NewFromInt(300)
	}

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			DSN:          getEnv("LEDGER_DSN", ""),
			MaxOpenConns: maxOpen,
			MaxIdleConns: maxIdle,
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		Server: ServerConfig{
			HTTPPort:   getEnv("HTTP_PORT", "8080"),
			HealthPort: getEnv("HEALTH_PORT", "50060"),
			RateLimit:  getEnv("RATE_LIMIT", "100-M"),

			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		},
		Upload: UploadConfig{
			Dir:     getEnv("UPLOAD_DIR", "./uploads"),
			BaseURL: getEnv("UPLOAD_BASE_URL", "/uploads"),
		},
		Commission: CommissionConfig{
			CsFlatFee:       csFee,
			BulkConcurrency: concurrency,
		},
		IDNode: idNode,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
