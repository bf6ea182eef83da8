package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prodmap/prodmap/internal/embedding"
	"github.com/prodmap/prodmap/internal/feature"
	"github.com/prodmap/prodmap/internal/space"
	"github.com/prodmap/prodmap/internal/usage"
)

// Service generates embeddings and assembles prompt context. Safe for
// concurrent use.
type Service struct {
	spaces   SpaceReader
	items    ItemReader
	vectors  VectorStore
	resolver EmbedResolver
	ledger   UsageLogger
	timeouts Timeouts
	logger   *slog.Logger
}

// NewService creates a Service. Zero timeouts disable the
// corresponding deadline.
func NewService(spaces SpaceReader, items ItemReader, vectors VectorStore,
	resolver EmbedResolver, ledger UsageLogger, timeouts Timeouts, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		spaces:   spaces,
		items:    items,
		vectors:  vectors,
		resolver: resolver,
		ledger:   ledger,
		timeouts: timeouts,
		logger:   logger,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// GenerateEmbedding embeds text with the resolved embedding provider
// and records the usage. It returns the vector and the model that
// produced it.
func (s *Service) GenerateEmbedding(ctx context.Context, userID, orgID, text string) ([]float32, string, error) {
	resolved, err := s.resolver.GetEmbedding(userID, orgID)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := withTimeout(ctx, s.timeouts.Embed)
	defer cancel()

	res, err := resolved.Provider.Embed(ctx, text, "")
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate embedding: %w", err)
	}

	s.ledger.Log(ctx, usage.Record{
		UserID:           userID,
		OrganizationID:   orgID,
		Vendor:           resolved.Vendor,
		Model:            res.Model,
		Capability:       usage.CapabilityEmbeddings,
		CredentialSource: string(resolved.Source),
		TokensInput:      res.Tokens,
	})

	return res.Embedding, res.Model, nil
}

// EmbedSpace embeds a space's description and upserts the vector.
// Spaces without a description are skipped, reported via the bool.
func (s *Service) EmbedSpace(ctx context.Context, userID string, sp *space.Space) (bool, error) {
	if strings.TrimSpace(sp.Description) == "" {
		return false, nil
	}

	vec, model, err := s.GenerateEmbedding(ctx, userID, sp.OrganizationID, sp.Description)
	if err != nil {
		return false, err
	}
	if _, err := s.vectors.Upsert(ctx, sp.ID, embedding.SourceDescription, sp.ID, sp.Description, vec, model); err != nil {
		return false, err
	}
	return true, nil
}

// EmbedFeature embeds a feature request's title and description and
// upserts the vector. Items with no text at all are skipped.
func (s *Service) EmbedFeature(ctx context.Context, userID, orgID string, it *feature.Item) (bool, error) {
	text := strings.TrimSpace(strings.Join([]string{it.Title, it.Description}, "\n"))
	if text == "" {
		return false, nil
	}

	vec, model, err := s.GenerateEmbedding(ctx, userID, orgID, text)
	if err != nil {
		return false, err
	}
	if _, err := s.vectors.Upsert(ctx, it.ContextSpaceID, embedding.SourceFeatureRequest, it.ID, text, vec, model); err != nil {
		return false, err
	}
	return true, nil
}

// SpaceLister is the extra listing capability ReembedAll needs beyond
// SpaceReader.
type SpaceLister interface {
	ListByOrganization(ctx context.Context, orgID string) ([]space.Space, error)
}

// ReembedAll re-embeds every space description and feature request in
// an organization. Per-entity failures are counted and logged, not
// fatal, so one bad record cannot abort a batch run.
func (s *Service) ReembedAll(ctx context.Context, userID, orgID string, lister SpaceLister) (*ReembedCounts, error) {
	spaces, err := lister.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	counts := &ReembedCounts{}
	for i := range spaces {
		sp := &spaces[i]
		done, err := s.EmbedSpace(ctx, userID, sp)
		switch {
		case err != nil:
			counts.Failed++
			s.logger.Warn("failed to re-embed space", "space_id", sp.ID, "error", err)
		case done:
			counts.Spaces++
		default:
			counts.Skipped++
		}

		items, err := s.items.ListBySpace(ctx, sp.ID, "")
		if err != nil {
			counts.Failed++
			s.logger.Warn("failed to list feature requests", "space_id", sp.ID, "error", err)
			continue
		}
		for j := range items {
			done, err := s.EmbedFeature(ctx, userID, orgID, &items[j])
			switch {
			case err != nil:
				counts.Failed++
				s.logger.Warn("failed to re-embed feature request", "feature_id", items[j].ID, "error", err)
			case done:
				counts.Features++
			default:
				counts.Skipped++
			}
		}
	}
	return counts, nil
}
