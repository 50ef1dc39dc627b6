package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env        string
	Server     ServerConfig
	DB         DBConfig
	Embedder   EmbedderConfig
	Generator  GeneratorConfig
	RAG        RAGConfig
	Quality    QualityConfig
	Enrichment EnrichmentConfig
	Redis      RedisConfig
	Analytics  AnalyticsConfig
	OTel       OTelConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout int // seconds
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

// DSN renders the pgx connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type EmbedderConfig struct {
	URL       string
	Model     string
	Timeout   int // seconds
	BatchSize int
	CacheSize int
	CacheTTL  int // minutes
}

type GeneratorConfig struct {
	URL     string
	Model   string
	Timeout int // seconds
}

type RAGConfig struct {
	TopK             int
	DefaultNamespace string
	MaxVariants      int
}

type QualityConfig struct {
	// Backend is one of postgres, badger, memory.
	Backend   string
	BadgerDir string
}

type EnrichmentConfig struct {
	ExaAPIKey      string
	ExaURL         string
	WikipediaURL   string
	Timeout        int // seconds
	MaxResults     int
	RequestsPerSec float64
	CacheTTL       int // minutes
	CacheEnabled   bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AnalyticsConfig struct {
	Enabled       bool
	BufferSize    int
	FlushInterval int // seconds
	BatchSize     int
}

type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	SampleRatio    float64
}

func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "9020"),
			ShutdownTimeout: getEnvInt("SHUTDOWN_TIMEOUT", 10),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "kb-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "kb_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "kb_password"),
			Name:     getEnv("DB_NAME", "kb_db"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 2),
		},
		Embedder: EmbedderConfig{
			URL:       getEnvWithAlt("EMBEDDER_URL", "OLLAMA_URL", "http://ollama:11434"),
			Model:     getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Timeout:   getEnvInt("EMBEDDER_TIMEOUT", 30),
			BatchSize: getEnvInt("EMBEDDER_BATCH_SIZE", 25),
			CacheSize: getEnvInt("EMBEDDER_CACHE_SIZE", 512),
			CacheTTL:  getEnvInt("EMBEDDER_CACHE_TTL_MINUTES", 30),
		},
		Generator: GeneratorConfig{
			URL:     getEnvWithAlt("GENERATOR_URL", "OLLAMA_URL", "http://ollama:11434"),
			Model:   getEnv("GENERATOR_MODEL", "llama3.1:8b"),
			Timeout: getEnvInt("GENERATOR_TIMEOUT", 120),
		},
		RAG: RAGConfig{
			TopK:             getEnvInt("RAG_TOP_K", 24),
			DefaultNamespace: getEnv("RAG_DEFAULT_NAMESPACE", "kb-mvp"),
			MaxVariants:      getEnvInt("RAG_MAX_QUERY_VARIANTS", 2),
		},
		Quality: QualityConfig{
			Backend:   getEnv("QUALITY_STORE_BACKEND", "postgres"),
			BadgerDir: getEnv("QUALITY_STORE_BADGER_DIR", "./data/quality"),
		},
		Enrichment: EnrichmentConfig{
			ExaAPIKey:      getSecret("EXA_API_KEY", "EXA_API_KEY_FILE", ""),
			ExaURL:         getEnv("EXA_URL", "https://api.exa.ai"),
			WikipediaURL:   getEnv("WIKIPEDIA_URL", "https://en.wikipedia.org/w/api.php"),
			Timeout:        getEnvInt("ENRICHMENT_TIMEOUT", 10),
			MaxResults:     getEnvInt("ENRICHMENT_MAX_RESULTS", 3),
			RequestsPerSec: getEnvFloat64("ENRICHMENT_RPS", 2.0),
			CacheTTL:       getEnvInt("ENRICHMENT_CACHE_TTL_MINUTES", 60),
			CacheEnabled:   getEnvBool("ENRICHMENT_CACHE_ENABLED", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "redis:6379"),
			Password: getSecret("REDIS_PASSWORD", "REDIS_PASSWORD_FILE", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Analytics: AnalyticsConfig{
			Enabled:       getEnvBool("ANALYTICS_ENABLED", true),
			BufferSize:    getEnvInt("ANALYTICS_BUFFER_SIZE", 256),
			FlushInterval: getEnvInt("ANALYTICS_FLUSH_INTERVAL", 5),
			BatchSize:     getEnvInt("ANALYTICS_BATCH_SIZE", 50),
		},
		OTel: OTelConfig{
			Enabled:        getEnvBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "knowledge-rag"),
			ServiceVersion: getEnv("SERVICE_VERSION", "0.0.0"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			SampleRatio:    getEnvFloat64("OTEL_TRACE_SAMPLE_RATIO", 0.1),
		},
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.RAG.TopK <= 0 {
		errs = append(errs, fmt.Errorf("RAG_TOP_K must be positive, got %d", c.RAG.TopK))
	}
	if c.RAG.MaxVariants < 1 {
		errs = append(errs, fmt.Errorf("RAG_MAX_QUERY_VARIANTS must be at least 1, got %d", c.RAG.MaxVariants))
	}
	if c.DB.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DB.MaxConns))
	}
	if c.Embedder.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDER_BATCH_SIZE must be positive, got %d", c.Embedder.BatchSize))
	}
	switch c.Quality.Backend {
	case "postgres", "badger", "memory":
	default:
		errs = append(errs, fmt.Errorf("QUALITY_STORE_BACKEND must be postgres, badger or memory, got %q", c.Quality.Backend))
	}
	if c.Enrichment.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("ENRICHMENT_MAX_RESULTS must be positive, got %d", c.Enrichment.MaxResults))
	}
	if c.Analytics.Enabled {
		if c.Analytics.BufferSize <= 0 {
			errs = append(errs, fmt.Errorf("ANALYTICS_BUFFER_SIZE must be positive, got %d", c.Analytics.BufferSize))
		}
		if c.Analytics.BatchSize <= 0 {
			errs = append(errs, fmt.Errorf("ANALYTICS_BATCH_SIZE must be positive, got %d", c.Analytics.BatchSize))
		}
		if c.Analytics.FlushInterval <= 0 {
			errs = append(errs, fmt.Errorf("ANALYTICS_FLUSH_INTERVAL must be positive, got %d", c.Analytics.FlushInterval))
		}
	}
	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_TRACE_SAMPLE_RATIO must be within [0,1], got %v", c.OTel.SampleRatio))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
