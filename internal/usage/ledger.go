package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Ledger writes and aggregates usage records. Safe for concurrent
// use.
type Ledger struct {
	db     DB
	logger *slog.Logger
}

// NewLedger creates a Ledger.
func NewLedger(db DB, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{db: db, logger: logger}
}

// Log records one AI call. Cost is computed from the static pricing
// table. Insert failures are logged and swallowed so the calling
// request is never failed by bookkeeping.
func (l *Ledger) Log(ctx context.Context, rec Record) {
	_, err := l.db.Exec(ctx, `
		INSERT INTO ai_usage_log (id, user_id, organization_id, vendor, model, capability,
			credential_source, conversation_id, tokens_input, tokens_output, cost_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.NewString(), rec.UserID, rec.OrganizationID, rec.Vendor, rec.Model,
		rec.Capability, rec.CredentialSource,
		pgtype.Text{String: rec.ConversationID, Valid: rec.ConversationID != ""},
		rec.TokensInput, rec.TokensOutput,
		cost(rec.Model, rec.TokensInput, rec.TokensOutput), time.Now().UTC())
	if err != nil {
		l.logger.Error("failed to record usage",
			"vendor", rec.Vendor, "model", rec.Model, "capability", rec.Capability, "error", err)
	}
}

// UserUsage aggregates one user's usage within the range.
func (l *Ledger) UserUsage(ctx context.Context, userID string, r Range) (*Summary, error) {
	return l.aggregate(ctx, "user_id", userID, r)
}

// OrganizationUsage aggregates one organization's usage within the
// range.
func (l *Ledger) OrganizationUsage(ctx context.Context, orgID string, r Range) (*Summary, error) {
	return l.aggregate(ctx, "organization_id", orgID, r)
}

func (l *Ledger) aggregate(ctx context.Context, column, id string, r Range) (*Summary, error) {
	from := r.From
	to := r.To
	if to.IsZero() {
		to = time.Now().UTC()
	}

	rows, err := l.db.Query(ctx, fmt.Sprintf(`
		SELECT vendor, model, capability,
			sum(tokens_input), sum(tokens_output), sum(cost_usd), count(*)
		FROM ai_usage_log
		WHERE %s = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY vendor, model, capability`, column),
		id, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	defer rows.Close()

	summary := &Summary{ByModel: map[string]ModelUsage{}}
	for rows.Next() {
		var mu ModelUsage
		if err := rows.Scan(&mu.Vendor, &mu.Model, &mu.Capability,
			&mu.TokensInput, &mu.TokensOutput, &mu.CostUSD, &mu.Calls); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		summary.add(mu)
	}
	return summary, rows.Err()
}
