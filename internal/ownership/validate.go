package ownership

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

// Validate checks the root's ownership sum and reports dead ends, cycles and
// data-quality problems found in the subgraph.
func (a *Analysis) Validate() domain.ValidationResult {
	g := a.Graph
	root := g.Root()

	check := a.sumCheck(root.ID)
	result := domain.ValidationResult{
		EntityID:          root.ID,
		OwnershipSumValid: check.Valid,
		TotalPercentage:   check.TotalPercentage,
		Cycles:            copyCycles(a.Enumeration.Cycles),
	}
	if !check.Valid {
		result.Warnings = append(result.Warnings, sumWarning(check))
	}

	for _, id := range a.Enumeration.DeadEnds {
		result.DeadEnds = append(result.DeadEnds, domain.DeadEnd{ContactID: id, Name: g.Name(id)})
		if id == root.ID {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s has no recorded owners; ownership cannot be traced to a natural person", g.Name(id)))
			continue
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("ownership chain through %s is unresolved: no recorded owners", g.Name(id)))
	}

	for _, cycle := range a.Enumeration.Cycles {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("ownership cycle detected: %s -> %s", strings.Join(cycle, " -> "), cycle[0]))
	}

	result.Warnings = append(result.Warnings, a.dataWarnings()...)

	if len(a.Resolve().UBOs) == 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no UBO could be determined for %s, even after the senior-manager fallback", g.Name(root.ID)))
	}
	return result
}

// Audit validates the root and sum-checks every company in the subgraph that
// has at least one ownership link.
func (a *Analysis) Audit() domain.AuditResult {
	result := domain.AuditResult{ValidationResult: a.Validate()}
	for _, id := range a.Graph.EntityIDs() {
		e, _ := a.Graph.Entity(id)
		if !e.IsCompany() {
			continue
		}
		check := a.sumCheck(id)
		if check.OwnershipLinks == 0 {
			continue
		}
		result.Nodes = append(result.Nodes, check)
		if !check.Valid && id != a.Graph.RootID() {
			result.Warnings = append(result.Warnings, sumWarning(check))
		}
	}
	return result
}

// sumCheck adds up the direct ownership links of id in load order. A node
// without ownership links is reported valid; it surfaces as a dead end.
func (a *Analysis) sumCheck(id string) domain.NodeSumCheck {
	links := a.Graph.Incoming(id, domain.LinkOwnership)
	total := 0.0
	for _, l := range links {
		total += l.PercentageOrZero()
	}
	valid := true
	if len(links) > 0 {
		valid = math.Abs(total-100) <= a.Policy.SumTolerance
	}
	return domain.NodeSumCheck{
		ContactID:       id,
		Name:            a.Graph.Name(id),
		TotalPercentage: total,
		OwnershipLinks:  len(links),
		Valid:           valid,
	}
}

func sumWarning(c domain.NodeSumCheck) string {
	return fmt.Sprintf("total ownership of %s is %.1f%%, expected 100%%", c.Name, c.TotalPercentage)
}

func (a *Analysis) dataWarnings() []string {
	g := a.Graph
	var warnings []string

	type pair struct{ owner, owned string }
	counts := make(map[pair]int)
	var order []pair
	for _, l := range g.Links(domain.LinkOwnership) {
		p := pair{l.OwnerID, l.OwnedID}
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++

		if l.Percentage != nil && (*l.Percentage < 0 || *l.Percentage > 100) {
			warnings = append(warnings, fmt.Sprintf("ownership link %s from %s to %s has percentage %.2f outside 0-100",
				l.ID, g.Name(l.OwnerID), g.Name(l.OwnedID), *l.Percentage))
		}
		if l.OwnerID == l.OwnedID {
			warnings = append(warnings, fmt.Sprintf("%s is recorded as owning itself", g.Name(l.OwnerID)))
		}
	}
	for _, p := range order {
		if counts[p] > 1 {
			warnings = append(warnings, fmt.Sprintf("%d ownership links from %s to %s; percentages are summed",
				counts[p], g.Name(p.owner), g.Name(p.owned)))
		}
	}

	for _, id := range a.Enumeration.MissingPercentages {
		warnings = append(warnings, fmt.Sprintf("ownership link %s has no percentage; its chain contributes 0%%", id))
	}

	var owned []string
	for _, id := range g.EntityIDs() {
		e, _ := g.Entity(id)
		if e.IsIndividual() && len(g.Incoming(id, domain.LinkOwnership)) > 0 {
			owned = append(owned, id)
		}
	}
	for _, id := range owned {
		warnings = append(warnings, fmt.Sprintf("individual %s is recorded as owned by another contact; the chain stops there", g.Name(id)))
	}

	dangling := g.DanglingLinks()
	sort.Strings(dangling)
	for _, id := range dangling {
		warnings = append(warnings, fmt.Sprintf("link %s references a contact that does not exist", id))
	}
	return warnings
}
