// Package usage records AI spend in an append-only ledger. Logging is
// best effort: a failed insert is reported to the log and swallowed,
// because billing bookkeeping must never fail the request that
// triggered it.
package usage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Capabilities a ledger entry can record.
const (
	CapabilityChat       = "chat"
	CapabilityEmbeddings = "embeddings"
)

// Record is one metered AI call.
type Record struct {
	UserID           string
	OrganizationID   string
	Vendor           string
	Model            string
	Capability       string // chat or embeddings
	CredentialSource string // user, organization or system
	ConversationID   string // empty outside conversations
	TokensInput      int
	TokensOutput     int
}

// Summary aggregates a ledger slice. ByModel is keyed per
// (model, capability) pair, so one model serving both chat and
// embeddings keeps two separate slices.
type Summary struct {
	TotalTokensInput  int
	TotalTokensOutput int
	TotalCostUSD      float64
	Calls             int
	ByModel           map[string]ModelUsage
}

// ModelUsage is one (model, capability) slice of a Summary.
type ModelUsage struct {
	Vendor       string
	Model        string
	Capability   string
	TokensInput  int
	TokensOutput int
	CostUSD      float64
	Calls        int
}

// modelKey builds the ByModel map key.
func modelKey(model, capability string) string {
	return model + "/" + capability
}

// add folds one aggregated row into the summary.
func (s *Summary) add(mu ModelUsage) {
	s.ByModel[modelKey(mu.Model, mu.Capability)] = mu
	s.TotalTokensInput += mu.TokensInput
	s.TotalTokensOutput += mu.TokensOutput
	s.TotalCostUSD += mu.CostUSD
	s.Calls += mu.Calls
}

// pricing is USD per million tokens. Models absent from the table,
// local ones included, cost zero.
type pricing struct {
	inputPerM  float64
	outputPerM float64
}

var priceTable = map[string]pricing{
	"gpt-4o":                     {inputPerM: 2.50, outputPerM: 10.00},
	"gpt-4o-mini":                {inputPerM: 0.15, outputPerM: 0.60},
	"text-embedding-3-small":     {inputPerM: 0.02},
	"text-embedding-3-large":     {inputPerM: 0.13},
	"claude-3-5-sonnet-20241022": {inputPerM: 3.00, outputPerM: 15.00},
	"claude-3-opus-20240229":     {inputPerM: 15.00, outputPerM: 75.00},
	"claude-3-haiku-20240307":    {inputPerM: 0.25, outputPerM: 1.25},
}

// cost returns the USD cost of a call, zero for unpriced models.
func cost(model string, tokensIn, tokensOut int) float64 {
	p, ok := priceTable[model]
	if !ok {
		return 0
	}
	return float64(tokensIn)/1e6*p.inputPerM + float64(tokensOut)/1e6*p.outputPerM
}

// DB is the subset of pgxpool.Pool the ledger needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Range bounds an aggregation window. Zero values leave that side
// unbounded.
type Range struct {
	From time.Time
	To   time.Time
}
