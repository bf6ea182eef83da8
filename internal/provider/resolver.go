package provider

import (
	"fmt"
	"log/slog"

	"github.com/prodmap/prodmap/internal/config"
)

// Source identifies which credential tier supplied a provider.
type Source string

// Credential tiers, in resolution order.
const (
	SourceUser         Source = "user"
	SourceOrganization Source = "organization"
	SourceSystem       Source = "system"
)

// Resolved is the outcome of credential resolution: a ready provider
// plus the identity of what was actually resolved, which may differ
// from what was requested when capability fallback applies.
type Resolved struct {
	Provider Provider
	Source   Source
	Vendor   string
}

// Resolver decides which vendor and credentials serve a request.
//
// Resolution order: explicit override, then the requesting user's own
// credentials, then the organization's, then system credentials from
// the config snapshot. Only the system tier is currently backed by
// storage; the user and organization tiers resolve to nothing and
// fall through, so adding them later will not change any signature.
type Resolver struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewResolver creates a Resolver over an immutable config snapshot.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cfg: cfg, logger: logger}
}

// Get resolves a provider for the given identity. preferred overrides
// the default vendor when non-empty.
func (r *Resolver) Get(userID, orgID, preferred string) (*Resolved, error) {
	vendor := preferred
	if vendor == "" {
		vendor = r.cfg.DefaultVendor
	}

	// User and organization credential tiers are not yet backed by
	// storage; both fall through to system credentials.
	_, _ = userID, orgID

	p, err := r.build(vendor)
	if err != nil {
		return nil, err
	}

	return &Resolved{Provider: p, Source: SourceSystem, Vendor: vendor}, nil
}

// GetEmbedding resolves a provider guaranteed to support embeddings.
// If resolution yields an embed-incapable vendor (anthropic), the
// designated fallback is substituted silently and the returned
// identity reflects the substitution, so callers never need to
// special-case capability.
func (r *Resolver) GetEmbedding(userID, orgID string) (*Resolved, error) {
	resolved, err := r.Get(userID, orgID, "")
	if err != nil {
		return nil, err
	}

	if resolved.Vendor != config.VendorAnthropic {
		return resolved, nil
	}

	for _, fallback := range []string{config.VendorOllama, config.VendorOpenAI} {
		p, buildErr := r.build(fallback)
		if buildErr != nil {
			continue
		}
		r.logger.Debug("substituted embedding provider",
			"requested", resolved.Vendor, "substituted", fallback)
		return &Resolved{Provider: p, Source: SourceSystem, Vendor: fallback}, nil
	}

	return nil, fmt.Errorf("%w: default vendor %q has no embedding capability and no fallback vendor is configured",
		ErrConfiguration, resolved.Vendor)
}

// build constructs an adapter from system credentials, dispatching on
// the vendor-name tag.
func (r *Resolver) build(vendor string) (Provider, error) {
	switch vendor {
	case config.VendorOllama:
		if r.cfg.OllamaURL == "" || r.cfg.OllamaChatModel == "" || r.cfg.OllamaEmbedModel == "" {
			return nil, fmt.Errorf("%w: ollama selected but ai_ollama_url, ai_ollama_chat_model or ai_ollama_embed_model is not set",
				ErrConfiguration)
		}
		return NewOllama(r.cfg.OllamaURL, r.cfg.OllamaChatModel, r.cfg.OllamaEmbedModel), nil

	case config.VendorOpenAI:
		if r.cfg.OpenAIAPIKey == "" || r.cfg.OpenAIChatModel == "" || r.cfg.OpenAIEmbedModel == "" {
			return nil, fmt.Errorf("%w: openai selected but ai_openai_api_key, ai_openai_chat_model or ai_openai_embed_model is not set",
				ErrConfiguration)
		}
		return NewOpenAI(r.cfg.OpenAIAPIKey, r.cfg.OpenAIChatModel, r.cfg.OpenAIEmbedModel), nil

	case config.VendorAnthropic:
		if r.cfg.AnthropicAPIKey == "" || r.cfg.AnthropicChatModel == "" {
			return nil, fmt.Errorf("%w: anthropic selected but ai_anthropic_api_key or ai_anthropic_chat_model is not set",
				ErrConfiguration)
		}
		return NewAnthropic(r.cfg.AnthropicAPIKey, r.cfg.AnthropicChatModel), nil

	default:
		return nil, fmt.Errorf("%w: unknown vendor %q", ErrConfiguration, vendor)
	}
}
