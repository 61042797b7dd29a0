package ownership

import (
	"context"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

// Engine resolves and validates ownership structures read from a Source.
type Engine struct {
	source   Source
	policies *PolicySet
}

// NewEngine wires an engine. A nil policy set applies DefaultPolicy everywhere.
func NewEngine(source Source, policies *PolicySet) *Engine {
	if policies == nil {
		policies = NewPolicySet(DefaultPolicy())
	}
	return &Engine{source: source, policies: policies}
}

// Policies exposes the configured policy set.
func (e *Engine) Policies() *PolicySet {
	return e.policies
}

// Analyze loads the subgraph above rootID and enumerates it under the policy
// of the root's jurisdiction.
func (e *Engine) Analyze(ctx context.Context, orgID, rootID string) (*Analysis, error) {
	g, err := LoadSubgraph(ctx, e.source, orgID, rootID)
	if err != nil {
		return nil, err
	}
	return Analyze(g, e.policies.For(g.Root().Jurisdiction)), nil
}

// ResolveUBOs determines the ultimate beneficial owners of rootID.
func (e *Engine) ResolveUBOs(ctx context.Context, orgID, rootID string) (domain.UBOResult, error) {
	a, err := e.Analyze(ctx, orgID, rootID)
	if err != nil {
		return domain.UBOResult{}, err
	}
	return a.Resolve(), nil
}

// Validate runs the structural checks on rootID.
func (e *Engine) Validate(ctx context.Context, orgID, rootID string) (domain.ValidationResult, error) {
	a, err := e.Analyze(ctx, orgID, rootID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return a.Validate(), nil
}

// Audit validates rootID and sum-checks every company above it.
func (e *Engine) Audit(ctx context.Context, orgID, rootID string) (domain.AuditResult, error) {
	a, err := e.Analyze(ctx, orgID, rootID)
	if err != nil {
		return domain.AuditResult{}, err
	}
	return a.Audit(), nil
}
