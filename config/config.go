package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	CorpusSource string // "file" or "mongo"
	CorpusPath   string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	OllamaURL        string // "http://localhost:11434"
	EmbedProvider    string // "simple", "ollama" or "openai"
	EmbedModel       string
	OpenAIEmbedModel string
	LLMModel         string

	Port        string
	Environment string

	TopK             int
	CacheEmbeddings  bool
	GenerateTimeoutS int
}

func Load() *Config {
	// best-effort; a missing .env is fine
	_ = godotenv.Load()

	getEnv := func(key, defaultValue string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		return defaultValue
	}

	getEnvInt := func(key string, defaultValue int) int {
		valueStr := os.Getenv(key)
		if valueStr == "" {
			return defaultValue
		}
		value, err := strconv.Atoi(valueStr)
		if err != nil {
			return defaultValue
		}
		return value
	}

	getEnvBool := func(key string, defaultValue bool) bool {
		valueStr := os.Getenv(key)
		if valueStr == "" {
			return defaultValue
		}
		value, err := strconv.ParseBool(valueStr)
		if err != nil {
			return defaultValue
		}
		return value
	}

	return &Config{
		CorpusSource: getEnv("CORPUS_SOURCE", "file"),
		CorpusPath:   getEnv("CORPUS_PATH", "corpus/formulai_chunks.json"),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "formulai_db"),
		MongoCollection: getEnv("MONGO_COLLECTION", "chunks"),

		// Ollama / OpenAI
		OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
		EmbedProvider:    getEnv("EMBED_PROVIDER", "simple"),
		EmbedModel:       getEnv("EMBED_MODEL", "all-minilm:l6-v2"),
		OpenAIEmbedModel: getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		LLMModel:         getEnv("LLM_MODEL", "llama3"),

		// Application settings
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Retrieval pipeline
		TopK:             getEnvInt("TOP_K", 5),
		CacheEmbeddings:  getEnvBool("CACHE_EMBEDDINGS", true),
		GenerateTimeoutS: getEnvInt("GENERATE_TIMEOUT_SECONDS", 120),
	}
}
