package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/prodmap/prodmap/internal/config"
	"github.com/prodmap/prodmap/internal/log"
)

func resolverConfig() *config.Config {
	return &config.Config{
		DefaultVendor:      config.VendorOllama,
		OllamaURL:          "http://localhost:11434",
		OllamaChatModel:    "llama3.1",
		OllamaEmbedModel:   "nomic-embed-text",
		OpenAIAPIKey:       "sk-test",
		OpenAIChatModel:    "gpt-4o-mini",
		OpenAIEmbedModel:   "text-embedding-3-small",
		AnthropicAPIKey:    "sk-ant-test",
		AnthropicChatModel: "claude-3-5-sonnet-20241022",
		ChatTimeout:        time.Minute,
		EmbedTimeout:       time.Minute,
		AssemblyTimeout:    time.Minute,
	}
}

func TestGetDefaultVendor(t *testing.T) {
	r := NewResolver(resolverConfig(), log.NewNop())

	res, err := r.Get("user-1", "org-1", "")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if res.Vendor != config.VendorOllama || res.Source != SourceSystem {
		t.Errorf("resolved %s/%s, want ollama/system", res.Vendor, res.Source)
	}
	if res.Provider.Name() != config.VendorOllama {
		t.Errorf("provider name = %s", res.Provider.Name())
	}
}

func TestGetPreferredOverride(t *testing.T) {
	r := NewResolver(resolverConfig(), log.NewNop())

	res, err := r.Get("user-1", "org-1", config.VendorAnthropic)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if res.Vendor != config.VendorAnthropic {
		t.Errorf("vendor = %s, want anthropic", res.Vendor)
	}
}

func TestGetMissingSettings(t *testing.T) {
	cfg := resolverConfig()
	cfg.OllamaURL = ""
	r := NewResolver(cfg, log.NewNop())

	_, err := r.Get("user-1", "org-1", "")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Get() = %v, want ErrConfiguration", err)
	}
}

func TestGetUnknownVendor(t *testing.T) {
	r := NewResolver(resolverConfig(), log.NewNop())

	_, err := r.Get("user-1", "org-1", "cohere")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Get() = %v, want ErrConfiguration", err)
	}
}

func TestGetEmbeddingFallsBackFromAnthropic(t *testing.T) {
	cfg := resolverConfig()
	cfg.DefaultVendor = config.VendorAnthropic
	r := NewResolver(cfg, log.NewNop())

	res, err := r.GetEmbedding("user-1", "org-1")
	if err != nil {
		t.Fatalf("GetEmbedding() = %v", err)
	}
	if res.Vendor == config.VendorAnthropic {
		t.Fatal("embedding resolution returned an embed-incapable vendor")
	}
	if res.Vendor != config.VendorOllama {
		t.Errorf("vendor = %s, want ollama fallback", res.Vendor)
	}
}

func TestGetEmbeddingSecondaryFallback(t *testing.T) {
	cfg := resolverConfig()
	cfg.DefaultVendor = config.VendorAnthropic
	cfg.OllamaURL = "" // ollama unconfigured, must fall through to openai
	r := NewResolver(cfg, log.NewNop())

	res, err := r.GetEmbedding("user-1", "org-1")
	if err != nil {
		t.Fatalf("GetEmbedding() = %v", err)
	}
	if res.Vendor != config.VendorOpenAI {
		t.Errorf("vendor = %s, want openai", res.Vendor)
	}
}

func TestGetEmbeddingNoFallbackConfigured(t *testing.T) {
	cfg := resolverConfig()
	cfg.DefaultVendor = config.VendorAnthropic
	cfg.OllamaURL = ""
	cfg.OpenAIAPIKey = ""
	r := NewResolver(cfg, log.NewNop())

	_, err := r.GetEmbedding("user-1", "org-1")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("GetEmbedding() = %v, want ErrConfiguration", err)
	}
}

func TestGetEmbeddingKeepsCapableVendor(t *testing.T) {
	cfg := resolverConfig()
	cfg.DefaultVendor = config.VendorOpenAI
	r := NewResolver(cfg, log.NewNop())

	res, err := r.GetEmbedding("user-1", "org-1")
	if err != nil {
		t.Fatalf("GetEmbedding() = %v", err)
	}
	if res.Vendor != config.VendorOpenAI {
		t.Errorf("vendor = %s, want openai", res.Vendor)
	}
}

func TestAnthropicEmbedNotSupported(t *testing.T) {
	p := NewAnthropic("sk-ant-test", "claude-3-5-sonnet-20241022")
	_, err := p.Embed(t.Context(), "text", "")
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Embed() = %v, want ErrNotSupported", err)
	}
}
