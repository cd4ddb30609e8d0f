package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Rag      RagConfig
	Topics   TopicConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	OllamaBaseURL        string
	OllamaEmbeddingModel string
	LLMProvider          string // "ollama" for now
	LLMModel             string // e.g. "llama3", "qwen2.5"
}

// RagConfig holds the retrieval fusion tuning knobs.
type RagConfig struct {
	VectorWeight      float64
	KeywordWeight     float64
	ProviderTimeoutMs int
	RetryBackoffMs    int
	DefaultTopK       int
	PreviewLength     int
}

type TopicConfig struct {
	TurnPersisted string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:          getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:             getEnv("LLM_MODEL", "llama3"),
		},
		Rag: RagConfig{
			VectorWeight:      getEnvAsFloat("RAG_VECTOR_WEIGHT", 0.7),
			KeywordWeight:     getEnvAsFloat("RAG_KEYWORD_WEIGHT", 0.3),
			ProviderTimeoutMs: getEnvAsInt("RAG_PROVIDER_TIMEOUT_MS", 5000),
			RetryBackoffMs:    getEnvAsInt("RAG_RETRY_BACKOFF_MS", 500),
			DefaultTopK:       getEnvAsInt("RAG_DEFAULT_TOP_K", 10),
			PreviewLength:     getEnvAsInt("RAG_PREVIEW_LENGTH", 200),
		},
		Topics: TopicConfig{
			TurnPersisted: getEnv("TURN_PERSISTED_TOPIC_NAME", "TURN_PERSISTED"),
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
