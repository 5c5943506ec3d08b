package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Search   SearchConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	MaxMessagesPerUser int
	EmbedDocumentTopic string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecretKey       string
	JwtIssuer          string
	JwtExpiryHours     int    // 0 means tokens never expire
	EncryptionKey      string // hex-encoded 32 bytes, empty disables encryption
	ApprovedUserIds    []string
	AuthorizedTokenIps []string
}

type AIConfig struct {
	LLMProvider       string // "ollama", "openai", "lmstudio"
	LLMModel          string
	LLMBaseURL        string
	LLMAPIKey         string
	EmbeddingProvider string // "ollama" or "openai"
	OllamaBaseURL     string
	OllamaModel       string // embedding model
	Temperature       float64
}

type SearchConfig struct {
	EnableInternetSearch bool
	MinIntervalMs        int
	TopK                 int
	SimilarityThreshold  float64
	ChunkSize            int
	ChunkOverlap         int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			MaxMessagesPerUser: getEnvAsInt("MAX_MESSAGES_PER_USER", 500),
			EmbedDocumentTopic: getEnv("EMBED_DOCUMENT_TOPIC_NAME", "EMBED_DOCUMENT"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecretKey:       getEnv("JWT_SECRET_KEY", ""),
			JwtIssuer:          getEnv("JWT_ISSUER", "koios-rag-be"),
			JwtExpiryHours:     getEnvAsInt("JWT_EXPIRY_HOURS", 0),
			EncryptionKey:      getEnv("ENCRYPTION_KEY", ""),
			ApprovedUserIds:    getEnvAsList("APPROVED_USER_IDS"),
			AuthorizedTokenIps: getEnvAsList("AUTHORIZED_TOKEN_IPS"),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("OPENAI_URL", "http://localhost:1234"),
			LLMAPIKey:         getEnv("OPENAI_API_KEY", ""),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		},
		Search: SearchConfig{
			EnableInternetSearch: getEnvAsBool("ENABLE_INTERNET_SEARCH", false),
			MinIntervalMs:        getEnvAsInt("WEB_SEARCH_MIN_INTERVAL_MS", 1000),
			TopK:                 getEnvAsInt("RETRIEVAL_TOP_K", 4),
			SimilarityThreshold:  getEnvAsFloat("SIMILARITY_THRESHOLD", 0.35),
			ChunkSize:            getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:         getEnvAsInt("CHUNK_OVERLAP", 200),
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

// getEnvAsList splits a comma-separated value, trimming whitespace and
// dropping empty entries. An unset variable yields nil.
func getEnvAsList(key string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return nil
	}
	parts := strings.Split(strValue, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
