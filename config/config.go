package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	AppPort string
	AppMode string

	// StorageDriver is "postgres" or "memory". The memory driver keeps
	// everything in process and seeds the bot accounts on start.
	StorageDriver string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// ZEGO credentials used to mint call tokens.
	ZegoAppID     string
	ZegoAppSecret string
	TokenFormat   string
	TokenTTL      time.Duration

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string
	S3PresignTTL time.Duration

	BroadcastBatchesPerSec int

	RateLimitBroadcast int
	RateLimitToken     int
	RateLimitWindow    time.Duration

	DirectoryCacheTTL time.Duration
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),

		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "convo_chat"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		ZegoAppID:     getEnv("ZEGO_APP_ID", ""),
		ZegoAppSecret: getEnv("ZEGO_APP_SECRET", ""),
		TokenFormat:   getEnv("TOKEN_FORMAT", "zego04"),
		TokenTTL:      time.Duration(getEnvAsInt("TOKEN_TTL_SECONDS", 3600)) * time.Second,

		S3Region:     getEnv("S3_REGION", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3PublicBase: getEnv("S3_PUBLIC_BASE", ""),
		S3PresignTTL: time.Duration(getEnvAsInt("S3_PRESIGN_TTL_SECONDS", 900)) * time.Second,

		BroadcastBatchesPerSec: getEnvAsInt("BROADCAST_BATCHES_PER_SEC", 0),

		RateLimitBroadcast: getEnvAsInt("RATE_LIMIT_BROADCAST", 5),
		RateLimitToken:     getEnvAsInt("RATE_LIMIT_TOKEN", 60),
		RateLimitWindow:    time.Duration(getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		DirectoryCacheTTL: time.Duration(getEnvAsInt("DIRECTORY_CACHE_TTL_SECONDS", 300)) * time.Second,
	}
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// S3Enabled reports whether avatar uploads can be presigned.
func (c *Config) S3Enabled() bool {
	return c.S3Region != "" && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
