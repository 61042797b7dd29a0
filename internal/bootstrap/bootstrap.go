// Package bootstrap assembles the store and policies shared by the server
// and ingest commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vanshika/ownergraph/backend/internal/config"
	"github.com/vanshika/ownergraph/backend/internal/graph"
	"github.com/vanshika/ownergraph/backend/internal/ownership"
	"github.com/vanshika/ownergraph/backend/internal/repository"
	"github.com/vanshika/ownergraph/backend/internal/service"
)

// Store is the selected backend. Client is nil for the in-memory store.
type Store struct {
	service.Store
	Client graph.Client
}

// Close releases the graph connection, if any.
func (s Store) Close(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Close(ctx)
}

// OpenStore connects to Neo4j when GRAPH_URI is set and falls back to the
// in-memory store otherwise.
func OpenStore(ctx context.Context, logger *slog.Logger, cfg config.GraphConfig) (Store, error) {
	if cfg.URI == "" {
		logger.Warn("GRAPH_URI not set; using the in-memory store")
		return Store{Store: repository.NewMemory()}, nil
	}

	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.URI,
		Database:       cfg.Database,
		Username:       cfg.Username,
		Password:       cfg.Password,
		MaxConnections: cfg.MaxConnections,
	})
	if err != nil {
		return Store{}, err
	}
	logger.Info("connected to graph", "uri", cfg.URI, "database", cfg.Database)

	repo := repository.New(client)
	if cfg.EnsureSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = client.Close(ctx)
			return Store{}, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return Store{Store: repo, Client: client}, nil
}

// Policies builds the default policy from the environment and layers the
// optional YAML file on top.
func Policies(cfg config.PolicyConfig) (*ownership.PolicySet, error) {
	rule, err := ownership.ControlRuleByName(cfg.ControlRule)
	if err != nil {
		return nil, err
	}
	base := ownership.Policy{
		Name:         "default",
		Threshold:    cfg.Threshold,
		SumTolerance: cfg.SumTolerance,
		Control:      rule,
	}
	if cfg.File == "" {
		return ownership.NewPolicySet(base), nil
	}
	return ownership.LoadPolicyFile(cfg.File, base)
}
