package server

import (
	"context"
	"fmt"

	"github.com/vanshika/ownergraph/backend/internal/graph"
)

// HealthService reports whether the backend is ready to serve.
type HealthService interface {
	Check(ctx context.Context) error
}

// backendReporter is implemented by health checks that can name the store
// they check; /healthz includes it in the payload.
type backendReporter interface {
	Backend() string
}

// StoreHealth checks the entity and link store. A nil Client means the
// in-memory store is serving and is always ready.
type StoreHealth struct {
	Client graph.Client
}

// Backend names the store being checked.
func (s StoreHealth) Backend() string {
	if s.Client == nil {
		return "memory"
	}
	return "neo4j"
}

// Check implements the HealthService interface.
func (s StoreHealth) Check(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	if err := s.Client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j unreachable: %w", err)
	}
	return nil
}

// HealthFunc adapts a function to HealthService.
type HealthFunc func(ctx context.Context) error

// Check implements the HealthService interface.
func (f HealthFunc) Check(ctx context.Context) error { return f(ctx) }
