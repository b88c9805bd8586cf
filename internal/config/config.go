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
	App           AppConfig
	SMTP          SMTPConfig
	Keys          APIKeys
	Summary       SummaryConfig
	Transcription TranscriptionConfig
	Finalize      FinalizeConfig
	Identity      IdentityConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	Groq         string
	OpenAI       string
	GoogleGemini string
}

type SummaryConfig struct {
	Provider   string // "groq" or "gemini"
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

type TranscriptionConfig struct {
	Providers   []string // priority order, e.g. ["groq", "openai"]
	GroqModel   string
	OpenAIModel string
	MaxRetries  int
	RetryDelay  time.Duration
	Deadline    time.Duration
}

type FinalizeConfig struct {
	Cooldown time.Duration
}

type IdentityConfig struct {
	DirectoryURL string
	CacheTTL     time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "4000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Meeting Summary"),
		},
		Keys: APIKeys{
			Groq:         getEnv("GROQ_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Summary: SummaryConfig{
			Provider:   getEnv("SUMMARY_PROVIDER", "groq"),
			Model:      getEnv("SUMMARY_MODEL", "llama-3.1-8b-instant"),
			MaxRetries: getEnvAsInt("SUMMARY_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("SUMMARY_RETRY_DELAY", 2*time.Second),
		},
		Transcription: TranscriptionConfig{
			Providers:   getEnvAsList("TRANSCRIPTION_PROVIDERS", []string{"groq", "openai"}),
			GroqModel:   getEnv("GROQ_WHISPER_MODEL", "whisper-large-v3"),
			OpenAIModel: getEnv("OPENAI_WHISPER_MODEL", "whisper-1"),
			MaxRetries:  getEnvAsInt("TRANSCRIPTION_MAX_RETRIES", 3),
			RetryDelay:  getEnvAsDuration("TRANSCRIPTION_RETRY_DELAY", 2*time.Second),
			Deadline:    getEnvAsDuration("TRANSCRIPTION_DEADLINE", 2*time.Minute),
		},
		Finalize: FinalizeConfig{
			Cooldown: getEnvAsDuration("FINALIZE_COOLDOWN", 30*time.Second),
		},
		Identity: IdentityConfig{
			DirectoryURL: getEnv("IDENTITY_DIRECTORY_URL", ""),
			CacheTTL:     getEnvAsDuration("IDENTITY_CACHE_TTL", 1*time.Hour),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var values []string
	for _, part := range strings.Split(strValue, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, strings.ToLower(trimmed))
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
