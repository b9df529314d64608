package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ServerAddr string

	// MySQL (user accounts, purchase archive)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis (system of record for rooms, requests and balances)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret string

	// LLM endpoint shared by the song suggester and the moderation scorer.
	// OpenAI-compatible chat completions API.
	LLMAPIBaseURL  string
	LLMAPIKey      string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// Music catalog used by the track resolver.
	CatalogAPIURL string

	// Room economy defaults, overridable per room by the host.
	DefaultRequestPrice int
	DefaultPinPrice     int

	// Payment provider webhook verification.
	PaymentWebhookSecret string

	// MinIO (dataset exports)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return fromEnv()
}

// fromEnv builds a Config from the current process environment.
func fromEnv() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "roomfm"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "roomfm-dev-secret"),

		LLMAPIBaseURL:  getEnv("LLM_API_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 4000),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.0),

		CatalogAPIURL: getEnv("CATALOG_API_URL", "http://127.0.0.1:3000"),

		DefaultRequestPrice: getEnvInt("DEFAULT_REQUEST_PRICE", 30),
		DefaultPinPrice:     getEnvInt("DEFAULT_PIN_PRICE", 10),

		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "roomfm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}
}
