package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Feedback store kinds
const (
	FeedbackStoreMemory   = "memory"
	FeedbackStorePostgres = "postgres"
	FeedbackStoreSQLite   = "sqlite"
)

// requestTimeoutSlack is added to the tier timeout budget for the per-request deadline
const requestTimeoutSlack = 10 * time.Second

// Vector index kinds
const (
	VectorIndexMemory   = "memory"
	VectorIndexWeaviate = "weaviate"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Feedback      FeedbackConfig
	Knowledge     KnowledgeConfig
	WebSearch     WebSearchConfig
	LLM           LLMConfig
	Guardrails    GuardrailsConfig
	Routing       RoutingConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	MCPEnabled      bool // mount the math-search MCP server at /mcp
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// FeedbackConfig selects and tunes the feedback store
type FeedbackConfig struct {
	Store       string // memory, postgres or sqlite
	SQLitePath  string
	WriteBuffer int
	StopTimeout time.Duration
	RecentLimit int
}

// KnowledgeConfig holds knowledge base and vector search configuration
type KnowledgeConfig struct {
	DatasetPath         string // JSON or YAML; empty uses the built-in dataset
	Watch               bool
	SimilarityThreshold float64
	Index               string // memory or weaviate
	WeaviateURL         string
	WeaviateClass       string
	EmbeddingModel      string // empty uses the local hashing embedder
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int
	IndexConcurrency    int
}

// WebSearchConfig holds web search configuration
type WebSearchConfig struct {
	TavilyAPIKey  string
	TavilyBaseURL string
	MCPURL        string // remote MCP search server; empty runs it in-process
	MaxResults    int
}

// LLMConfig holds the OpenAI-compatible completion provider configuration
type LLMConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	KBVerbatim  bool // render knowledge base hits without calling the model
}

// GuardrailsConfig holds the input and output guardrail thresholds
type GuardrailsConfig struct {
	MinQueryLength     int
	MaxQueryLength     int
	TopicThreshold     float64
	InjectionThreshold float64
	OutputMinLength    int
	OutputMinSteps     int
}

// RoutingConfig holds the per-tier timeouts of the solve pipeline
type RoutingConfig struct {
	KBTimeout        time.Duration
	WebSearchTimeout time.Duration
	SynthesisTimeout time.Duration
}

// RateLimitConfig holds per-client rate limiting for the solve endpoint
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			MCPEnabled:      getEnvAsBool("MCP_HTTP_ENABLED", true),
		},
		Database: loadDatabaseConfig(),
		Feedback: FeedbackConfig{
			Store:       strings.ToLower(getEnv("FEEDBACK_STORE", FeedbackStoreMemory)),
			SQLitePath:  getEnv("FEEDBACK_SQLITE_PATH", "feedback.db"),
			WriteBuffer: getEnvAsInt("FEEDBACK_WRITE_BUFFER", 256),
			StopTimeout: getEnvAsDuration("FEEDBACK_STOP_TIMEOUT", 5*time.Second),
			RecentLimit: getEnvAsInt("FEEDBACK_RECENT_LIMIT", 50),
		},
		Knowledge: KnowledgeConfig{
			DatasetPath:         getEnv("KB_DATASET_PATH", ""),
			Watch:               getEnvAsBool("KB_WATCH", false),
			SimilarityThreshold: getEnvAsFloat("KB_SIMILARITY_THRESHOLD", 0.75),
			Index:               strings.ToLower(getEnv("KB_INDEX", VectorIndexMemory)),
			WeaviateURL:         getEnv("WEAVIATE_URL", ""),
			WeaviateClass:       getEnv("WEAVIATE_CLASS", "MathProblem"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
			EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", getEnv("OPENAI_API_KEY", "")),
			EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", ""),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 512),
			IndexConcurrency:    getEnvAsInt("KB_INDEX_CONCURRENCY", 4),
		},
		WebSearch: WebSearchConfig{
			TavilyAPIKey:  getEnv("TAVILY_API_KEY", ""),
			TavilyBaseURL: getEnv("TAVILY_BASE_URL", "https://api.tavily.com"),
			MCPURL:        getEnv("WEB_SEARCH_MCP_URL", ""),
			MaxResults:    getEnvAsInt("WEB_SEARCH_MAX_RESULTS", 5),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "groq"),
			APIKey:      getEnv("LLM_API_KEY", getEnv("GROQ_API_KEY", "")),
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:       getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 1024),
			KBVerbatim:  getEnvAsBool("SYNTHESIS_KB_VERBATIM", false),
		},
		Guardrails: GuardrailsConfig{
			MinQueryLength:     getEnvAsInt("INPUT_MIN_LENGTH", 5),
			MaxQueryLength:     getEnvAsInt("INPUT_MAX_LENGTH", 500),
			TopicThreshold:     getEnvAsFloat("INPUT_TOPIC_THRESHOLD", 0.4),
			InjectionThreshold: getEnvAsFloat("INJECTION_CONFIDENCE_THRESHOLD", 0.8),
			OutputMinLength:    getEnvAsInt("OUTPUT_MIN_LENGTH", 20),
			OutputMinSteps:     getEnvAsInt("OUTPUT_MIN_STEP_MARKERS", 2),
		},
		Routing: RoutingConfig{
			KBTimeout:        getEnvAsDuration("KB_TIMEOUT", 5*time.Second),
			WebSearchTimeout: getEnvAsDuration("WEB_SEARCH_TIMEOUT", 8*time.Second),
			SynthesisTimeout: getEnvAsDuration("SYNTHESIS_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 2),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Feedback.Store {
	case FeedbackStoreMemory:
	case FeedbackStorePostgres:
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" {
			if c.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	case FeedbackStoreSQLite:
		if c.Feedback.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite feedback store")
		}
	default:
		return fmt.Errorf("unknown feedback store %q", c.Feedback.Store)
	}

	switch c.Knowledge.Index {
	case VectorIndexMemory:
	case VectorIndexWeaviate:
		if c.Knowledge.WeaviateURL == "" {
			return fmt.Errorf("weaviate URL is required for the weaviate index")
		}
		if c.Knowledge.EmbeddingModel == "" {
			return fmt.Errorf("an embedding model is required for the weaviate index")
		}
	default:
		return fmt.Errorf("unknown vector index %q", c.Knowledge.Index)
	}

	if c.Knowledge.SimilarityThreshold < 0 || c.Knowledge.SimilarityThreshold > 1 {
		return fmt.Errorf("KB similarity threshold must be within [0, 1]")
	}
	if c.Guardrails.TopicThreshold < 0 || c.Guardrails.TopicThreshold > 1 {
		return fmt.Errorf("input topic threshold must be within [0, 1]")
	}
	if c.Guardrails.MinQueryLength < 1 || c.Guardrails.MaxQueryLength < c.Guardrails.MinQueryLength {
		return fmt.Errorf("query length bounds are invalid")
	}
	if c.WebSearch.MaxResults < 1 {
		return fmt.Errorf("web search max results must be positive")
	}
	if c.Routing.KBTimeout <= 0 || c.Routing.WebSearchTimeout <= 0 || c.Routing.SynthesisTimeout <= 0 {
		return fmt.Errorf("tier timeouts must be positive")
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Routing.RequestTimeout() {
		return fmt.Errorf("server write timeout %v is shorter than the request timeout %v derived from the tier timeouts",
			c.Server.WriteTimeout, c.Routing.RequestTimeout())
	}

	// Production must be able to reach the model tier
	if c.IsProduction() && c.LLM.APIKey == "" {
		return fmt.Errorf("an LLM API key is required in production")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// TierTimeoutBudget returns the worst-case time a request spends in the pipeline.
// The synthesis timeout counts twice because of the single output-guardrail retry.
func (c *RoutingConfig) TierTimeoutBudget() time.Duration {
	return c.KBTimeout + c.WebSearchTimeout + 2*c.SynthesisTimeout
}

// RequestTimeout caps a single API request: the tier budget plus slack for
// guardrails, encoding and the client round trip.
func (c *RoutingConfig) RequestTimeout() time.Duration {
	return c.TierTimeoutBudget() + requestTimeoutSlack
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "math"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "math_agent"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
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

func getEnvAsBool(key string, defaultValue bool) bool {
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
