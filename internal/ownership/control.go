package ownership

import (
	"fmt"
	"strings"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

// ControlRule decides which individuals control the root of a subgraph
// regardless of their economic percentage. Jurisdictions differ on how far
// control propagates, so the rule is injected through Policy.
type ControlRule interface {
	Name() string
	Controllers(g *Subgraph) []string
}

// ControlRuleFunc adapts a plain function to ControlRule.
type ControlRuleFunc func(g *Subgraph) []string

// Name implements ControlRule.
func (f ControlRuleFunc) Name() string { return "custom" }

// Controllers implements ControlRule.
func (f ControlRuleFunc) Controllers(g *Subgraph) []string { return f(g) }

// DirectControl treats only individuals holding a non-nominee control link
// straight onto the root as controllers.
type DirectControl struct{}

// Name implements ControlRule.
func (DirectControl) Name() string { return "direct" }

// Controllers implements ControlRule.
func (DirectControl) Controllers(g *Subgraph) []string {
	set := make(map[string]struct{})
	for _, link := range g.Incoming(g.RootID(), domain.LinkControl) {
		if link.IsNominee {
			continue
		}
		if e, ok := g.Entity(link.OwnerID); ok && e.IsIndividual() {
			set[link.OwnerID] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// TransitiveControl lets control flow through companies: an individual is a
// controller when it reaches the root over a chain of ownership and control
// links that contains at least one non-nominee control link.
type TransitiveControl struct{}

// Name implements ControlRule.
func (TransitiveControl) Name() string { return "transitive" }

// Controllers implements ControlRule.
func (TransitiveControl) Controllers(g *Subgraph) []string {
	type state struct {
		id      string
		control bool
	}
	seen := make(map[state]bool)
	set := make(map[string]struct{})

	var visit func(id string, control bool)
	visit = func(id string, control bool) {
		s := state{id: id, control: control}
		if seen[s] {
			return
		}
		seen[s] = true

		if e, ok := g.Entity(id); ok && e.IsIndividual() && id != g.RootID() {
			if control {
				set[id] = struct{}{}
			}
			return
		}

		for _, link := range g.Incoming(id, domain.LinkOwnership, domain.LinkControl) {
			next := control
			switch link.Type.Role() {
			case domain.RoleControl:
				if link.IsNominee {
					continue
				}
				next = true
			case domain.RoleOwnership:
			case domain.RoleManagement, domain.RolePersonal:
				continue
			}
			visit(link.OwnerID, next)
		}
	}
	visit(g.RootID(), false)
	return sortedKeys(set)
}

// ControlRuleByName returns a built-in rule.
func ControlRuleByName(name string) (ControlRule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "transitive":
		return TransitiveControl{}, nil
	case "direct":
		return DirectControl{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown control rule %q", domain.ErrInvalidInput, name)
	}
}
