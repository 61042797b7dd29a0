package ownership

import (
	"fmt"
	"sort"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

// Analysis bundles a loaded subgraph with its enumeration so one request can
// resolve and validate without walking the graph twice.
type Analysis struct {
	Graph       *Subgraph
	Enumeration Enumeration
	Policy      Policy
}

// Analyze enumerates g under policy p.
func Analyze(g *Subgraph, p Policy) *Analysis {
	return &Analysis{
		Graph:       g,
		Enumeration: Enumerate(g),
		Policy:      p.withDefaults(),
	}
}

// EffectiveOwnership returns a copy of each individual's aggregated share.
func (a *Analysis) EffectiveOwnership() map[string]float64 {
	out := make(map[string]float64, len(a.Enumeration.Ownership))
	for id, pct := range a.Enumeration.Ownership {
		out[id] = pct
	}
	return out
}

// Resolve applies the threshold, control and senior-manager rules.
func (a *Analysis) Resolve() domain.UBOResult {
	g := a.Graph
	effective := a.EffectiveOwnership()

	result := domain.UBOResult{
		EntityID:           g.RootID(),
		Policy:             a.Policy.Name,
		EffectiveOwnership: effective,
		Cycles:             copyCycles(a.Enumeration.Cycles),
	}

	qualified := make(map[string]bool)
	for id, pct := range effective {
		if a.Policy.meetsThreshold(pct) {
			qualified[id] = true
			result.UBOs = append(result.UBOs, domain.UBOItem{
				ContactID:           id,
				Name:                g.Name(id),
				EffectivePercentage: domain.Float64Ptr(pct),
			})
		}
	}

	for _, id := range a.Policy.Control.Controllers(g) {
		if qualified[id] {
			continue
		}
		qualified[id] = true
		item := domain.UBOItem{
			ContactID: id,
			Name:      g.Name(id),
			IsControl: true,
		}
		if pct, ok := effective[id]; ok {
			item.EffectivePercentage = domain.Float64Ptr(pct)
		}
		result.UBOs = append(result.UBOs, item)
	}
	sortUBOs(result.UBOs)

	if n := len(result.Cycles); n > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d ownership cycle(s) detected; looping chains were not followed", n))
	}

	if len(result.UBOs) == 0 {
		managers := seniorManagers(g)
		for _, id := range managers {
			result.UBOs = append(result.UBOs, domain.UBOItem{
				ContactID:               id,
				Name:                    g.Name(id),
				IsSeniorManagerFallback: true,
			})
		}
		if len(managers) > 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no UBO could be determined; used %d senior manager(s) as fallback", len(managers)))
		} else {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no UBO could be determined for %s and no director or senior manager is recorded", g.Name(g.RootID())))
		}
	}

	return result
}

// seniorManagers returns the individuals that stand in as UBOs when nobody
// qualifies: directors first, then managers, then the entity's recorded
// senior manager.
func seniorManagers(g *Subgraph) []string {
	root := g.Root()
	for _, t := range []domain.LinkType{domain.LinkDirectorship, domain.LinkManages} {
		set := make(map[string]struct{})
		for _, link := range g.Incoming(root.ID, t) {
			if e, ok := g.Entity(link.OwnerID); ok && e.IsIndividual() {
				set[link.OwnerID] = struct{}{}
			}
		}
		if len(set) > 0 {
			return sortedKeys(set)
		}
	}
	if root.SeniorManagerID != "" {
		if e, ok := g.Entity(root.SeniorManagerID); ok && e.IsIndividual() {
			return []string{root.SeniorManagerID}
		}
	}
	return nil
}

// sortUBOs orders by effective percentage (highest first), unknown
// percentages last, ties by contact id.
func sortUBOs(items []domain.UBOItem) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].EffectivePercentage, items[j].EffectivePercentage
		switch {
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		case pi != nil && pj != nil && *pi != *pj:
			return *pi > *pj
		}
		return items[i].ContactID < items[j].ContactID
	})
}

func copyCycles(cycles [][]string) [][]string {
	if len(cycles) == 0 {
		return nil
	}
	out := make([][]string, len(cycles))
	for i, c := range cycles {
		out[i] = append([]string(nil), c...)
	}
	return out
}
