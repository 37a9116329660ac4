package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when no GigaChat credential is configured
// but a component that needs one is enabled.
var ErrMissingAPIKey = errors.New("GIGACHAT_API_KEY is required")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	GigaChat  GigaChatConfig  `yaml:"gigachat"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	OCR       OCRConfig       `yaml:"ocr"`
	RAG       RAGConfig       `yaml:"rag"`
	Storage   StorageConfig   `yaml:"storage"`
	Agent     AgentConfig     `yaml:"agent"`
	Logger    LoggerConfig    `yaml:"logger"`
}

type LoggerConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BodyLimitMB  int           `yaml:"body_limit_mb"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// URL returns the database address in the postgres:// form used by migrations.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GigaChatConfig struct {
	APIKey             string        `yaml:"api_key"`
	Scope              string        `yaml:"scope"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Disabled           bool          `yaml:"disabled"`
	Model              string        `yaml:"model"`
	VisionModel        string        `yaml:"vision_model"`
	BaseURL            string        `yaml:"base_url"`
	OAuthURL           string        `yaml:"oauth_url"`
	Timeout            time.Duration `yaml:"timeout"`
	Temperature        float64       `yaml:"temperature"`
}

type EmbeddingConfig struct {
	// Provider is one of gigachat, openai or hashing.
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
}

type OCRConfig struct {
	VisionEnabled    bool     `yaml:"vision_enabled"`
	TesseractEnabled bool     `yaml:"tesseract_enabled"`
	Languages        []string `yaml:"languages"`
	DPI              float64  `yaml:"dpi"`
}

type RAGConfig struct {
	TopK            int `yaml:"top_k"`
	HistoryWindow   int `yaml:"history_window"`
	MaxContextChars int `yaml:"max_context_chars"`
}

type StorageConfig struct {
	Dir           string `yaml:"dir"`
	VectorBackend string `yaml:"vector_backend"`
	InboxDir      string `yaml:"inbox_dir"`
	BackupDir     string `yaml:"backup_dir"`
}

type AgentConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			BodyLimitMB:  64,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5433",
			User:     "postgres",
			Password: "postgres",
			DBName:   "rag_assistant",
			SSLMode:  "disable",
			MaxConns: 10,
			MinConns: 1,
		},
		Redis: RedisConfig{TTL: 24 * time.Hour},
		GigaChat: GigaChatConfig{
			Scope:              "GIGACHAT_API_PERS",
			InsecureSkipVerify: true,
			Model:              "GigaChat",
			VisionModel:        "GigaChat-Max",
			BaseURL:            "https://gigachat.devices.sberbank.ru/api/v1",
			OAuthURL:           "https://ngw.devices.sberbank.ru:9443/api/v2/oauth",
			Timeout:            60 * time.Second,
			Temperature:        0.2,
		},
		Embedding: EmbeddingConfig{
			Provider:  "gigachat",
			Model:     "Embeddings",
			Dimension: 1024,
			BatchSize: 16,
			Workers:   4,
			BaseURL:   "https://api.openai.com/v1",
		},
		OCR: OCRConfig{
			VisionEnabled:    true,
			TesseractEnabled: true,
			Languages:        []string{"eng", "rus"},
			DPI:              200,
		},
		RAG: RAGConfig{
			TopK:            8,
			HistoryWindow:   5,
			MaxContextChars: 16000,
		},
		Storage: StorageConfig{
			Dir:           "knowledge_base_storage",
			VectorBackend: "memory",
			BackupDir:     "knowledge_base_backups",
		},
		Agent:  AgentConfig{MaxIterations: 6},
		Logger: LoggerConfig{Level: "info", Encoding: "json"},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional; plain environment variables work for containers
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvSeconds("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvSeconds("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.BodyLimitMB = getEnvInt("SERVER_BODY_LIMIT_MB", cfg.Server.BodyLimitMB)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(cfg.Database.MaxConns)))
	cfg.Database.MinConns = int32(getEnvInt("DB_MIN_CONNS", int(cfg.Database.MinConns)))

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTL = getEnvSeconds("REDIS_TTL_SECONDS", cfg.Redis.TTL)

	cfg.GigaChat.APIKey = getEnv("GIGACHAT_API_KEY", cfg.GigaChat.APIKey)
	cfg.GigaChat.Scope = getEnv("GIGACHAT_SCOPE", cfg.GigaChat.Scope)
	cfg.GigaChat.InsecureSkipVerify = getEnvBool("GIGACHAT_INSECURE_SKIP_VERIFY", cfg.GigaChat.InsecureSkipVerify)
	cfg.GigaChat.Disabled = getEnv("LLM_PROVIDER", "") == "none" || cfg.GigaChat.Disabled
	cfg.GigaChat.Model = getEnv("GIGACHAT_MODEL", cfg.GigaChat.Model)
	cfg.GigaChat.VisionModel = getEnv("GIGACHAT_VISION_MODEL", cfg.GigaChat.VisionModel)
	cfg.GigaChat.BaseURL = getEnv("GIGACHAT_BASE_URL", cfg.GigaChat.BaseURL)
	cfg.GigaChat.OAuthURL = getEnv("GIGACHAT_OAUTH_URL", cfg.GigaChat.OAuthURL)
	cfg.GigaChat.Timeout = getEnvSeconds("GIGACHAT_TIMEOUT", cfg.GigaChat.Timeout)
	cfg.GigaChat.Temperature = getEnvFloat("GIGACHAT_TEMPERATURE", cfg.GigaChat.Temperature)

	cfg.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Dimension = getEnvInt("EMBEDDING_DIMENSION", cfg.Embedding.Dimension)
	cfg.Embedding.BatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", cfg.Embedding.BatchSize)
	cfg.Embedding.Workers = getEnvInt("EMBEDDING_WORKERS", cfg.Embedding.Workers)
	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", cfg.Embedding.APIKey)

	cfg.OCR.VisionEnabled = getEnvBool("OCR_VISION_ENABLED", cfg.OCR.VisionEnabled)
	cfg.OCR.TesseractEnabled = getEnvBool("OCR_TESSERACT_ENABLED", cfg.OCR.TesseractEnabled)
	cfg.OCR.Languages = getEnvList("OCR_LANGUAGES", cfg.OCR.Languages)
	cfg.OCR.DPI = getEnvFloat("OCR_DPI", cfg.OCR.DPI)

	cfg.RAG.TopK = getEnvInt("RAG_TOP_K", cfg.RAG.TopK)
	cfg.RAG.HistoryWindow = getEnvInt("RAG_HISTORY_WINDOW", cfg.RAG.HistoryWindow)
	cfg.RAG.MaxContextChars = getEnvInt("RAG_MAX_CONTEXT_CHARS", cfg.RAG.MaxContextChars)

	cfg.Storage.Dir = getEnv("STORAGE_DIR", cfg.Storage.Dir)
	cfg.Storage.VectorBackend = getEnv("VECTOR_BACKEND", cfg.Storage.VectorBackend)
	cfg.Storage.InboxDir = getEnv("STORAGE_INBOX_DIR", cfg.Storage.InboxDir)
	cfg.Storage.BackupDir = getEnv("STORAGE_BACKUP_DIR", cfg.Storage.BackupDir)

	cfg.Agent.MaxIterations = getEnvInt("AGENT_MAX_ITERATIONS", cfg.Agent.MaxIterations)

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Encoding = getEnv("LOG_ENCODING", cfg.Logger.Encoding)

	return cfg, nil
}

// NeedsAPIKey reports whether any enabled component talks to GigaChat.
func (c *Config) NeedsAPIKey() bool {
	return !c.GigaChat.Disabled || c.Embedding.Provider == "gigachat"
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.NeedsAPIKey() && c.GigaChat.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Embedding.Provider {
	case "gigachat", "openai", "hashing":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Storage.VectorBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown vector backend %q", c.Storage.VectorBackend)
	}
	if c.RAG.TopK < 1 {
		return fmt.Errorf("RAG_TOP_K must be positive, got %d", c.RAG.TopK)
	}
	if c.Embedding.Workers < 1 || c.Embedding.BatchSize < 1 {
		return fmt.Errorf("embedding workers and batch size must be positive")
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("STORAGE_DIR must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getEnvSeconds reads an integer number of seconds.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return time.Duration(v) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
