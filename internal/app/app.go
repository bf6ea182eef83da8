// Package app wires configuration, storage and services into one
// application container.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prodmap/prodmap/internal/assistant"
	"github.com/prodmap/prodmap/internal/config"
	"github.com/prodmap/prodmap/internal/conversation"
	"github.com/prodmap/prodmap/internal/database"
	"github.com/prodmap/prodmap/internal/embedding"
	"github.com/prodmap/prodmap/internal/feature"
	"github.com/prodmap/prodmap/internal/log"
	"github.com/prodmap/prodmap/internal/provider"
	"github.com/prodmap/prodmap/internal/rag"
	"github.com/prodmap/prodmap/internal/space"
	"github.com/prodmap/prodmap/internal/usage"
)

// App is the application container. Stores and services are built
// once at startup and shared across requests.
type App struct {
	Config *config.Config
	Logger log.Logger
	Pool   *pgxpool.Pool

	Spaces        *space.Store
	Features      *feature.Store
	Embeddings    *embedding.Store
	Conversations *conversation.Store
	Ledger        *usage.Ledger
	Resolver      *provider.Resolver
	RAG           *rag.Service
	Scoped        *assistant.Scoped
	Global        *assistant.Global
}

// Setup loads configuration, connects to PostgreSQL and constructs
// every store and service.
func Setup(ctx context.Context, logger log.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	pool, err := database.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Pool: pool}

	a.Spaces = space.NewStore(pool, logger)
	a.Features = feature.NewStore(pool, logger)
	a.Embeddings = embedding.NewStore(pool, logger)
	a.Conversations = conversation.NewStore(pool)
	a.Ledger = usage.NewLedger(pool, logger)
	a.Resolver = provider.NewResolver(cfg, logger)

	a.RAG = rag.NewService(a.Spaces, a.Features, a.Embeddings, a.Resolver, a.Ledger,
		rag.Timeouts{Embed: cfg.EmbedTimeout, Assembly: cfg.AssemblyTimeout}, logger)

	a.Scoped = assistant.NewScoped(a.Resolver, a.RAG, a.Features, a.Conversations, a.Ledger,
		cfg.ChatTimeout, logger)
	a.Global = assistant.NewGlobal(a.Resolver, a.RAG, a.Spaces, a.Features, a.Embeddings,
		a.Conversations, a.Ledger, cfg.ChatTimeout, logger)

	return a, nil
}

// Close releases the container's resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
