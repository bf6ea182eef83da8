package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/prodmap/prodmap/internal/embedding"
	"github.com/prodmap/prodmap/internal/space"
)

// ContextForSpace assembles the prompt context for one space. Section
// order is fixed: header, ancestor chain nearest-first, direct
// children, feature requests capped at contextItemCap, then related
// content from other spaces. Empty sections are omitted. The related
// section is best effort: any embedding or search failure drops the
// section and nothing else.
func (s *Service) ContextForSpace(ctx context.Context, userID, spaceID string) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Assembly)
	defer cancel()

	sp, err := s.spaces.Get(ctx, spaceID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Context Space: %s\n", sp.Name)
	if sp.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", sp.Description)
	}
	if sp.SpaceType != "" {
		fmt.Fprintf(&b, "Type: %s\n", sp.SpaceType)
	}

	ancestors, err := s.spaces.Ancestors(ctx, spaceID)
	if err != nil {
		return "", err
	}
	if len(ancestors) > 0 {
		b.WriteString("\n## Parent Hierarchy (nearest first)\n")
		for _, a := range ancestors {
			fmt.Fprintf(&b, "- %s", a.Name)
			if a.Description != "" {
				fmt.Fprintf(&b, ": %s", a.Description)
			}
			b.WriteString("\n")
		}
	}

	children, err := s.spaces.Children(ctx, spaceID)
	if err != nil {
		return "", err
	}
	if len(children) > 0 {
		b.WriteString("\n## Child Spaces\n")
		for _, c := range children {
			fmt.Fprintf(&b, "- %s", c.Name)
			if c.Description != "" {
				fmt.Fprintf(&b, ": %s", c.Description)
			}
			b.WriteString("\n")
		}
	}

	items, err := s.items.ListBySpace(ctx, spaceID, "")
	if err != nil {
		return "", err
	}
	if len(items) > contextItemCap {
		items = items[:contextItemCap]
	}
	if len(items) > 0 {
		b.WriteString("\n## Feature Requests\n")
		for _, it := range items {
			fmt.Fprintf(&b, "- %s", it.Title)
			var attrs []string
			if it.Status != "" {
				attrs = append(attrs, "status: "+it.Status)
			}
			if it.Priority != "" {
				attrs = append(attrs, "priority: "+it.Priority)
			}
			if len(attrs) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(attrs, ", "))
			}
			if it.Description != "" {
				fmt.Fprintf(&b, "\n  %s", it.Description)
			}
			b.WriteString("\n")
		}
	}

	if related := s.relatedSection(ctx, userID, sp); related != "" {
		b.WriteString(related)
	}

	return b.String(), nil
}

// relatedSection finds near-duplicate content in other spaces. It
// returns "" when the space has no description, when nothing clears
// the similarity floor, or on any embed/search failure.
func (s *Service) relatedSection(ctx context.Context, userID string, sp *space.Space) string {
	if strings.TrimSpace(sp.Description) == "" {
		return ""
	}

	vec, _, err := s.GenerateEmbedding(ctx, userID, sp.OrganizationID, sp.Description)
	if err != nil {
		s.logger.Debug("related content skipped, embedding failed",
			"space_id", sp.ID, "error", err)
		return ""
	}

	// Corpus-wide search; own-space matches are filtered out below, so
	// fetch extra headroom before truncating.
	matches, err := s.vectors.SearchSimilar(ctx, vec, "", relatedLimit*3)
	if err != nil {
		s.logger.Debug("related content skipped, search failed",
			"space_id", sp.ID, "error", err)
		return ""
	}

	var kept []embedding.Match
	for _, m := range matches {
		if m.ContextSpaceID == sp.ID || m.Similarity <= relatedSimilarityMin {
			continue
		}
		kept = append(kept, m)
		if len(kept) == relatedLimit {
			break
		}
	}
	if len(kept) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n## Related Content From Other Spaces\n")
	for _, m := range kept {
		fmt.Fprintf(&b, "- (%.2f) %s\n", m.Similarity, m.Content)
	}
	return b.String()
}
