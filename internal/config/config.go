package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Research ResearchConfig
	Session  SessionConfig
	Auth     AuthConfig
	Otel     OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	OpenAI string
	Brave  string
}

type AIConfig struct {
	LLMProvider    string // "openai", "ollama" or "none"
	LLMModel       string
	ReasoningModel string
	OllamaBaseURL  string
	OpenAIBaseURL  string
	Temperature    float64
	MaxTokens      int
}

type ResearchConfig struct {
	MaxSearchResults    int
	StepBudget          int
	SearchConcurrency   int
	SearchTimeout       time.Duration
	ParseTimeout        time.Duration
	LLMTimeout          time.Duration
	SearchRatePerSecond float64
}

type SessionConfig struct {
	Store   string // "memory", "redis" or "postgres"
	TTL     time.Duration
	LockTTL time.Duration // lease of the per-session Redis lock
}

type AuthConfig struct {
	JwtSecret string
}

type OtelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/research.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			OpenAI: getEnv("OPENAI_API_KEY", ""),
			Brave:  getEnv("BRAVE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			ReasoningModel: getEnv("REASONING_MODEL", "o3-mini"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
			Temperature:    getEnvAsFloat("DEFAULT_LLM_TEMPERATURE", 0.2),
			MaxTokens:      getEnvAsInt("MAX_TOKENS", 2000),
		},
		Research: ResearchConfig{
			MaxSearchResults:    getEnvAsInt("MAX_SEARCH_RESULTS", 10),
			StepBudget:          getEnvAsInt("RESEARCH_STEP_BUDGET", 20),
			SearchConcurrency:   getEnvAsInt("SEARCH_CONCURRENCY", 3),
			SearchTimeout:       getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),
			ParseTimeout:        getEnvAsDuration("PARSE_TIMEOUT", 30*time.Second),
			LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			SearchRatePerSecond: getEnvAsFloat("SEARCH_RATE_PER_SECOND", 1),
		},
		Session: SessionConfig{
			Store:   strings.ToLower(getEnv("SESSION_STORE", "memory")),
			TTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			LockTTL: getEnvAsDuration("SESSION_LOCK_TTL", 2*time.Minute),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Otel: OtelConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
