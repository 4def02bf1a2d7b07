package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted by PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Vector backend names accepted by VECTOR_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	Provider      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string
	GenModel      string
	EmbedModel    string
	EmbedDim      int

	VectorBackend string
	DataDir       string
	UploadDir     string
	VectorDBPath  string
	QdrantURL     string

	ChunkSize        int
	ChunkOverlap     int
	RetrievalK       int
	AnalysisK        int
	SummaryMaxChunks int
	EmbedBatch       int

	GenRetries   int
	GenRetryBase time.Duration
	ProviderRPS  float64

	RequestTimeout time.Duration
	MaxUploadMB    int64
	CORSOrigins    string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the result.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		Port:      getEnv("PORT", "8000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		Provider:      getEnv("PROVIDER", ProviderOpenAI),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.deepseek.com/v1"),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		GenModel:      getEnv("GEN_MODEL", "deepseek-chat"),
		EmbedModel:    getEnv("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:      getEnvInt("EMBED_DIM", 1536),

		VectorBackend: getEnv("VECTOR_BACKEND", BackendSQLite),
		DataDir:       dataDir,
		UploadDir:     getEnv("UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
		VectorDBPath:  getEnv("VECTOR_DB_PATH", filepath.Join(dataDir, "vectors.db")),
		QdrantURL:     getEnv("QDRANT_URL", "http://localhost:6333"),

		ChunkSize:        getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 200),
		RetrievalK:       getEnvInt("RETRIEVAL_K", 4),
		AnalysisK:        getEnvInt("ANALYSIS_K", 3),
		SummaryMaxChunks: getEnvInt("SUMMARY_MAX_CHUNKS", 10),
		EmbedBatch:       getEnvInt("EMBED_BATCH", 16),

		GenRetries:   getEnvInt("GEN_RETRIES", 3),
		GenRetryBase: getEnvDuration("GEN_RETRY_BASE", 500*time.Millisecond),
		ProviderRPS:  getEnvFloat("PROVIDER_RPS", 5),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 120*time.Second),
		MaxUploadMB:    int64(getEnvInt("MAX_UPLOAD_MB", 25)),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create the data and upload directories up front so startup fails fast
	// on permission problems rather than mid-ingestion.
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when PROVIDER=openai")
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderOllama, c.Provider)
	}

	switch c.VectorBackend {
	case BackendSQLite, BackendQdrant:
	default:
		return fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendSQLite, BackendQdrant, c.VectorBackend)
	}

	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBED_DIM must be greater than 0")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.RetrievalK < 1 {
		return fmt.Errorf("RETRIEVAL_K must be at least 1")
	}
	if c.AnalysisK < 1 {
		return fmt.Errorf("ANALYSIS_K must be at least 1")
	}
	if c.SummaryMaxChunks < 1 {
		return fmt.Errorf("SUMMARY_MAX_CHUNKS must be at least 1")
	}
	if c.EmbedBatch < 1 {
		return fmt.Errorf("EMBED_BATCH must be at least 1")
	}
	if c.GenRetries < 1 {
		return fmt.Errorf("GEN_RETRIES must be at least 1")
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
// Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvFloat gets a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getEnvDuration gets a duration environment variable (e.g. "90s", "2m")
// or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
