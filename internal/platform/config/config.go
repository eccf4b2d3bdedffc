package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JudgeQueueName     string
	JudgeWebhookSecret string

	RankingInterval       time.Duration
	RankingLockKey        string
	RankingLockTTLSeconds int

	DefaultTimeLimitMs    int
	DefaultMemoryLimitMb  int
	SubmissionCodeMaxSize int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		JWTKey:                []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                getEnv("DB_USER", "user"),
		DBPassword:            getEnv("DB_PASSWORD", "password"),
		DBName:                getEnv("DB_NAME", "sigza_db"),
		DBSslMode:             getEnv("DB_SSLMODE", "disable"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvAsInt("REDIS_DB", 0),
		JudgeQueueName:        getEnv("JUDGE_QUEUE_NAME", "judge_jobs_queue"),
		JudgeWebhookSecret:    getEnv("JUDGE_WEBHOOK_SECRET", ""),
		RankingInterval:       time.Duration(getEnvAsInt("RANKING_INTERVAL_MINUTES", 15)) * time.Minute,
		RankingLockKey:        getEnv("RANKING_LOCK_KEY", "ranking_aggregation_lock"),
		RankingLockTTLSeconds: getEnvAsInt("RANKING_LOCK_TTL_SECONDS", 300),
		DefaultTimeLimitMs:    getEnvAsInt("DEFAULT_TIME_LIMIT_MS", 2000),
		DefaultMemoryLimitMb:  getEnvAsInt("DEFAULT_MEMORY_LIMIT_MB", 256),
		SubmissionCodeMaxSize: getEnvAsInt("SUBMISSION_CODE_MAX_SIZE", 65536),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
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
