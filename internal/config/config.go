package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/spf13/viper"
)

// Providers understood by the model factory.
const (
	ProviderOpenAI   = "openai"
	ProviderGigaChat = "gigachat"
	ProviderLocal    = "local"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// ServerConfig is where the HTTP front end listens.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// CrawlConfig drives the web crawler.
type CrawlConfig struct {
	Enabled  bool    `mapstructure:"enabled" yaml:"enabled"`
	BaseURL  string  `mapstructure:"base_url" yaml:"base_url"`
	MaxPages int     `mapstructure:"max_pages" yaml:"max_pages"`
	Delay    float64 `mapstructure:"delay" yaml:"delay"` // Seconds between requests.
}

// SessionConfig selects and tunes the conversation store.
//
// WARNING: EncryptionKey is sensitive and should not be logged or set in file configuration.
type SessionConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"`
	Dir           string        `mapstructure:"dir" yaml:"dir"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxMessages   int           `mapstructure:"max_messages" yaml:"max_messages"`
	KeepMessages  int           `mapstructure:"keep_messages" yaml:"keep_messages"`
	EncryptionKey string        `mapstructure:"encryption_key" yaml:"encryption_key"` // Secret: base64 AES-256 key.
	RedactPII     bool          `mapstructure:"redact_pii" yaml:"redact_pii"`
}

// RedisConfig is the connection used by the redis session backend and the index cache.
//
// WARNING: Password is sensitive and should not be logged or set in file configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"` // Secret
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// SQLiteConfig is the database used by the sqlite session backend.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// IndexConfig controls persistence of the vector index.
type IndexConfig struct {
	Persist bool `mapstructure:"persist" yaml:"persist"`
}

// Config wraps the entire configuration of the assistant.
//
// WARNING: the API keys are sensitive fields and should not be logged.
type Config struct {
	OpenAIAPIKey   string  `mapstructure:"openai_api_key" yaml:"openai_api_key"`     // Secret
	OpenAIBaseURL  string  `mapstructure:"openai_base_url" yaml:"openai_base_url"`   // Optional API endpoint override
	GigaChatAPIKey string  `mapstructure:"gigachat_api_key" yaml:"gigachat_api_key"` // Secret
	ModelProvider  string  `mapstructure:"model_provider" yaml:"model_provider"`
	ModelName      string  `mapstructure:"model_name" yaml:"model_name"`
	EmbeddingModel string  `mapstructure:"embedding_model" yaml:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature" yaml:"temperature"`

	DataPath      string `mapstructure:"data_path" yaml:"data_path"`
	KnowledgePath string `mapstructure:"knowledge_path" yaml:"knowledge_path"`
	ChunkSize     int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	SearchK       int    `mapstructure:"search_k" yaml:"search_k"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Crawl   CrawlConfig   `mapstructure:"crawl" yaml:"crawl"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite" yaml:"sqlite"`
	Index   IndexConfig   `mapstructure:"index" yaml:"index"`
}

var (
	// defaults mirror the values the assistant shipped with.
	defaults = map[string]any{
		"model_provider":        ProviderOpenAI,
		"model_name":            "gpt-3.5-turbo",
		"embedding_model":       "text-embedding-ada-002",
		"temperature":           0.1,
		"data_path":             "./data",
		"knowledge_path":        "",
		"chunk_size":            1000,
		"chunk_overlap":         200,
		"search_k":              5,
		"log_level":             "info",
		"crawl.enabled":         true,
		"crawl.base_url":        "https://eora.ru",
		"crawl.max_pages":       20,
		"crawl.delay":           1.0,
		"server.host":           "0.0.0.0",
		"server.port":           8501,
		"session.backend":       BackendMemory,
		"session.dir":           filepath.Join(".eora", "sessions"),
		"session.ttl":           time.Duration(0),
		"session.max_messages":  50,
		"session.keep_messages": 30,
		"session.redact_pii":    false,
		"redis.prefix":          "eora:",
		"redis.db":              0,
		"sqlite.path":           filepath.Join(".eora", "sessions.db"),
		"index.persist":         false,
	}

	// envBindings maps config keys to the environment variables that can provide them.
	// The first name is preferred; later names are accepted for compatibility.
	envBindings = map[string][]string{
		"openai_api_key":         {"OPENAI_API_KEY"},
		"openai_base_url":        {"OPENAI_BASE_URL"},
		"gigachat_api_key":       {"GIGACHAT_API_KEY"},
		"model_provider":         {"MODEL_PROVIDER"},
		"model_name":             {"MODEL_NAME"},
		"embedding_model":        {"EMBEDDING_MODEL"},
		"temperature":            {"TEMPERATURE"},
		"data_path":              {"DATA_PATH"},
		"knowledge_path":         {"KNOWLEDGE_PATH"},
		"chunk_size":             {"CHUNK_SIZE"},
		"chunk_overlap":          {"CHUNK_OVERLAP"},
		"search_k":               {"SEARCH_K"},
		"log_level":              {"LOG_LEVEL"},
		"crawl.enabled":          {"ENABLE_WEB_CRAWLING", "CRAWL_ENABLED"},
		"crawl.base_url":         {"CRAWL_BASE_URL"},
		"crawl.max_pages":        {"CRAWL_MAX_PAGES"},
		"crawl.delay":            {"CRAWL_DELAY"},
		"server.host":            {"SERVER_HOST"},
		"server.port":            {"SERVER_PORT", "PORT"},
		"session.backend":        {"SESSION_BACKEND"},
		"session.dir":            {"SESSION_DIR"},
		"session.ttl":            {"SESSION_TTL"},
		"session.max_messages":   {"SESSION_MAX_MESSAGES"},
		"session.keep_messages":  {"SESSION_KEEP_MESSAGES"},
		"session.encryption_key": {"SESSION_ENCRYPTION_KEY"},
		"session.redact_pii":     {"SESSION_REDACT_PII"},
		"redis.addr":             {"REDIS_ADDR"},
		"redis.password":         {"REDIS_PASSWORD"},
		"redis.db":               {"REDIS_DB"},
		"redis.prefix":           {"REDIS_PREFIX"},
		"sqlite.path":            {"SQLITE_PATH"},
		"index.persist":          {"INDEX_PERSIST"},
	}
)

// Load reads the configuration.
//
// If filePath names an existing file it is read (yaml, toml, json, or a dotenv ".env"
// file); environment variables always override file values. With an empty filePath a
// ".env" file in the working directory is honored the same way, without overriding
// variables that are already set.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if filePath == "" || isDotEnv(filePath) {
		envFile := filePath
		if envFile == "" {
			envFile = ".env"
		}
		if err := loadDotEnv(envFile); err != nil {
			return nil, err
		}
	}

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" && !isDotEnv(filePath) {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("%w: failed to read %s: %v", domain.ErrConfiguration, filePath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	if cfg.KnowledgePath == "" {
		cfg.KnowledgePath = filepath.Join(cfg.DataPath, "knowledge")
	}
	return cfg, nil
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)
		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}
	return nil
}

func isDotEnv(path string) bool {
	base := filepath.Base(path)
	return base == ".env" || strings.HasSuffix(base, ".env")
}

// loadDotEnv exports the variables of a dotenv file that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: failed to read %s: %v", domain.ErrConfiguration, path, err)
	}
	for _, key := range dv.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, dv.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the configuration can run the selected provider and backends.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.ModelProvider) {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is not set")
		}
	case ProviderGigaChat:
		if c.GigaChatAPIKey == "" {
			problems = append(problems, "GIGACHAT_API_KEY is not set")
		}
	case ProviderLocal:
	default:
		problems = append(problems, fmt.Sprintf("unsupported model provider %q", c.ModelProvider))
	}

	if c.ChunkSize <= 0 {
		problems = append(problems, "chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, "chunk_overlap must be in [0, chunk_size)")
	}
	if c.SearchK <= 0 {
		problems = append(problems, "search_k must be positive")
	}

	switch c.Session.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis session backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported session backend %q", c.Session.Backend))
	}
	if c.Index.Persist && c.Redis.Addr == "" {
		problems = append(problems, "REDIS_ADDR is required to persist the index")
	}
	if c.Session.EncryptionKey != "" {
		if _, err := c.EncryptionKey(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// CrawlDelay returns the crawler delay as a duration.
func (c *Config) CrawlDelay() time.Duration {
	return time.Duration(c.Crawl.Delay * float64(time.Second))
}

// EncryptionKey decodes the session encryption key. It returns nil when unset.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.Session.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Session.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("SESSION_ENCRYPTION_KEY is not valid base64: %v", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("SESSION_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
