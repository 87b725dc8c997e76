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
	Store    StoreConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Voice    VoiceConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	JwtSecret          string // empty disables auth
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type StoreConfig struct {
	Driver       string // "memory", "redis", "nats" or "postgres"
	NatsKVBucket string
	MaxRetries   int
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider     string // "gemini" or "ollama"
	LLMModel        string
	GeminiBaseURL   string
	OllamaBaseURL   string
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
	RatePerMinute   int
}

type VoiceConfig struct {
	Locale       string
	GateCooldown time.Duration
	LogFilePath  string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Store: StoreConfig{
			Driver:       strings.ToLower(getEnv("STORE_DRIVER", "memory")),
			NatsKVBucket: getEnv("NATS_KV_BUCKET", "voicetask"),
			MaxRetries:   getEnvAsInt("STORE_MAX_RETRIES", 5),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			LLMModel:        getEnv("LLM_MODEL", ""),
			GeminiBaseURL:   getEnv("GEMINI_BASE_URL", ""),
			OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature:     getEnvAsFloat("LLM_TEMPERATURE", 1.0),
			TopP:            getEnvAsFloat("LLM_TOP_P", 0.95),
			TopK:            getEnvAsInt("LLM_TOP_K", 40),
			MaxOutputTokens: getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 8192),
			RatePerMinute:   getEnvAsInt("LLM_RATE_PER_MINUTE", 30),
		},
		Voice: VoiceConfig{
			Locale:       getEnv("VOICE_LOCALE", "en-US"),
			GateCooldown: time.Duration(getEnvAsInt("GATE_COOLDOWN_MS", 500)) * time.Millisecond,
			LogFilePath:  getEnv("VOICE_LOG_FILE_PATH", "logs/voice.log"),
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
