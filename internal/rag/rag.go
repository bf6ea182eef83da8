// Package rag generates embeddings and assembles retrieval context
// for assistant prompts.
package rag

import (
	"context"
	"time"

	"github.com/prodmap/prodmap/internal/embedding"
	"github.com/prodmap/prodmap/internal/feature"
	"github.com/prodmap/prodmap/internal/provider"
	"github.com/prodmap/prodmap/internal/space"
	"github.com/prodmap/prodmap/internal/usage"
)

// Limits on assembled context. Item and neighbor caps bound prompt
// size; the similarity floor keeps only near-duplicate content in the
// related section.
const (
	contextItemCap       = 50
	relatedLimit         = 5
	relatedSimilarityMin = 0.8
)

// SpaceReader provides the hierarchy lookups context assembly needs.
type SpaceReader interface {
	Get(ctx context.Context, id string) (*space.Space, error)
	Children(ctx context.Context, id string) ([]space.Space, error)
	Ancestors(ctx context.Context, id string) ([]space.Space, error)
}

// ItemReader lists a space's feature requests.
type ItemReader interface {
	ListBySpace(ctx context.Context, spaceID, tag string) ([]feature.Item, error)
}

// VectorStore persists and searches embeddings.
type VectorStore interface {
	Upsert(ctx context.Context, spaceID, sourceType, sourceID, content string, vector []float32, model string) (*embedding.Record, error)
	SearchSimilar(ctx context.Context, vector []float32, spaceID string, limit int) ([]embedding.Match, error)
	SearchDescriptions(ctx context.Context, vector []float32, orgID string, limit int) ([]embedding.Match, error)
}

// EmbedResolver yields a provider guaranteed to support embeddings.
type EmbedResolver interface {
	GetEmbedding(userID, orgID string) (*provider.Resolved, error)
}

// UsageLogger records metered AI calls.
type UsageLogger interface {
	Log(ctx context.Context, rec usage.Record)
}

// Timeouts bound individual embed calls and the whole context
// assembly so one slow vendor request cannot hang a conversational
// turn.
type Timeouts struct {
	Embed    time.Duration
	Assembly time.Duration
}

// ReembedCounts reports a batch re-embedding run.
type ReembedCounts struct {
	Spaces   int
	Features int
	Skipped  int
	Failed   int
}
