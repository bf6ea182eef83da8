// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables (PRODMAP_* plus DATABASE_URL)
//  2. Config file (~/.prodmap/config.yaml)
//  3. Defaults
//
// The loaded Config is an immutable snapshot: it is built once at
// process start and passed by reference into the provider resolver and
// the stores. Nothing reads ambient environment state after Load.
//
// Security: passwords and API keys are masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingSetting indicates a required setting for the selected
	// vendor is absent.
	ErrMissingSetting = errors.New("missing required setting")

	// ErrInvalidVendor indicates an unknown AI vendor name.
	ErrInvalidVendor = errors.New("invalid vendor")

	// ErrInvalidPostgres indicates a malformed PostgreSQL setting.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL setting")

	// ErrInvalidTimeout indicates a non-positive timeout.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// Vendor identifiers used in Config.DefaultVendor and provider
// resolution.
const (
	VendorOllama    = "ollama"
	VendorOpenAI    = "openai"
	VendorAnthropic = "anthropic"
)

// VectorDimension is the embedding dimension of the pgvector schema.
// All embedding models must produce vectors of this size.
const VectorDimension = 1536

// Config stores the application configuration snapshot.
type Config struct {
	// PostgreSQL connection settings. DATABASE_URL overrides these.
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"`
	PostgresDBName   string `mapstructure:"postgres_dbname" json:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode" json:"postgres_sslmode"`

	// DefaultVendor selects the system-credential AI vendor.
	DefaultVendor string `mapstructure:"ai_default_vendor" json:"ai_default_vendor"`

	// Ollama (local inference endpoint).
	OllamaURL        string `mapstructure:"ai_ollama_url" json:"ai_ollama_url"`
	OllamaChatModel  string `mapstructure:"ai_ollama_chat_model" json:"ai_ollama_chat_model"`
	OllamaEmbedModel string `mapstructure:"ai_ollama_embed_model" json:"ai_ollama_embed_model"`

	// OpenAI.
	OpenAIAPIKey     string `mapstructure:"ai_openai_api_key" json:"-"`
	OpenAIChatModel  string `mapstructure:"ai_openai_chat_model" json:"ai_openai_chat_model"`
	OpenAIEmbedModel string `mapstructure:"ai_openai_embed_model" json:"ai_openai_embed_model"`

	// Anthropic (chat only, no embedding capability).
	AnthropicAPIKey    string `mapstructure:"ai_anthropic_api_key" json:"-"`
	AnthropicChatModel string `mapstructure:"ai_anthropic_chat_model" json:"ai_anthropic_chat_model"`

	// Timeouts. A single slow vendor call must not hang a whole
	// conversational turn.
	ChatTimeout     time.Duration `mapstructure:"chat_timeout" json:"chat_timeout"`
	EmbedTimeout    time.Duration `mapstructure:"embed_timeout" json:"embed_timeout"`
	AssemblyTimeout time.Duration `mapstructure:"assembly_timeout" json:"assembly_timeout"`
}

// Load builds the configuration snapshot from defaults, an optional
// config file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PRODMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not register env-only keys for Unmarshal, so
	// settings without a default (the credentials in particular) need
	// an explicit bind to be readable from PRODMAP_* variables.
	for _, key := range []string{
		"postgres_host", "postgres_port", "postgres_user",
		"postgres_password", "postgres_dbname", "postgres_sslmode",
		"ai_default_vendor",
		"ai_ollama_url", "ai_ollama_chat_model", "ai_ollama_embed_model",
		"ai_openai_api_key", "ai_openai_chat_model", "ai_openai_embed_model",
		"ai_anthropic_api_key", "ai_anthropic_chat_model",
		"chat_timeout", "embed_timeout", "assembly_timeout",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment key %s: %w", key, err)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".prodmap"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env + defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "prodmap")
	v.SetDefault("postgres_dbname", "prodmap")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("ai_default_vendor", VendorOllama)
	v.SetDefault("ai_ollama_url", "http://localhost:11434")
	v.SetDefault("ai_ollama_chat_model", "llama3.1")
	v.SetDefault("ai_ollama_embed_model", "nomic-embed-text")
	v.SetDefault("ai_openai_chat_model", "gpt-4o-mini")
	v.SetDefault("ai_openai_embed_model", "text-embedding-3-small")
	v.SetDefault("ai_anthropic_chat_model", "claude-3-5-sonnet-20241022")

	v.SetDefault("chat_timeout", time.Minute)
	v.SetDefault("embed_timeout", 30*time.Second)
	v.SetDefault("assembly_timeout", 2*time.Minute)
}

// MarshalJSON masks credentials so a logged config never leaks them.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := struct {
		alias
		PostgresPassword string `json:"postgres_password"`
		OpenAIAPIKey     string `json:"ai_openai_api_key"`
		AnthropicAPIKey  string `json:"ai_anthropic_api_key"`
	}{
		alias:            alias(*c),
		PostgresPassword: mask(c.PostgresPassword),
		OpenAIAPIKey:     mask(c.OpenAIAPIKey),
		AnthropicAPIKey:  mask(c.AnthropicAPIKey),
	}
	return json.Marshal(masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
