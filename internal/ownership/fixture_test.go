package ownership

import (
	"context"
	"fmt"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

type fixture struct {
	entities map[string]domain.Entity
	order    []string
	links    []domain.OwnershipLink
	reads    int
}

func newFixture() *fixture {
	return &fixture{entities: make(map[string]domain.Entity)}
}

func (f *fixture) add(e domain.Entity) *fixture {
	if _, ok := f.entities[e.ID]; !ok {
		f.order = append(f.order, e.ID)
	}
	f.entities[e.ID] = e
	return f
}

func (f *fixture) person(ids ...string) *fixture {
	for _, id := range ids {
		f.add(domain.Entity{ID: id, Name: "Person " + id, Kind: domain.KindIndividual})
	}
	return f
}

func (f *fixture) company(ids ...string) *fixture {
	for _, id := range ids {
		f.add(domain.Entity{ID: id, Name: "Company " + id, Kind: domain.KindCompany})
	}
	return f
}

func (f *fixture) link(l domain.OwnershipLink) *fixture {
	if l.ID == "" {
		l.ID = fmt.Sprintf("l%03d", len(f.links)+1)
	}
	f.links = append(f.links, l)
	return f
}

func (f *fixture) own(owner, owned string, pct float64) *fixture {
	return f.link(domain.OwnershipLink{OwnerID: owner, OwnedID: owned, Type: domain.LinkOwnership, Percentage: domain.Float64Ptr(pct)})
}

func (f *fixture) control(owner, owned string) *fixture {
	return f.link(domain.OwnershipLink{OwnerID: owner, OwnedID: owned, Type: domain.LinkControl})
}

func (f *fixture) nominee(owner, owned string) *fixture {
	return f.link(domain.OwnershipLink{OwnerID: owner, OwnedID: owned, Type: domain.LinkControl, IsNominee: true})
}

func (f *fixture) typed(owner, owned string, t domain.LinkType) *fixture {
	return f.link(domain.OwnershipLink{OwnerID: owner, OwnedID: owned, Type: t})
}

func (f *fixture) graph(root string) *Subgraph {
	entities := make([]domain.Entity, 0, len(f.order))
	for _, id := range f.order {
		entities = append(entities, f.entities[id])
	}
	return NewSubgraph(f.entities[root], entities, f.links)
}

func (f *fixture) analyze(root string) *Analysis {
	return Analyze(f.graph(root), DefaultPolicy())
}

// UpwardGraph lets a fixture act as a Source. Links whose owner was never
// added are kept so the subgraph reports them as dangling.
func (f *fixture) UpwardGraph(_ context.Context, _ string, rootID string) (domain.GraphSnapshot, error) {
	f.reads++
	root, ok := f.entities[rootID]
	if !ok {
		return domain.GraphSnapshot{}, fmt.Errorf("contact %s: %w", rootID, domain.ErrNotFound)
	}
	snap := domain.GraphSnapshot{Root: root}
	added := map[string]bool{rootID: true}
	queued := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, l := range f.links {
			if l.OwnedID != id || !domain.ContainsLinkType(domain.ComplianceLinkTypes(), l.Type) {
				continue
			}
			snap.Links = append(snap.Links, l)
			owner, known := f.entities[l.OwnerID]
			if !known {
				continue
			}
			if !added[owner.ID] {
				added[owner.ID] = true
				snap.Entities = append(snap.Entities, owner)
			}
			if role := l.Type.Role(); (role == domain.RoleOwnership || role == domain.RoleControl) && !queued[owner.ID] {
				queued[owner.ID] = true
				queue = append(queue, owner.ID)
			}
		}
	}
	return snap, nil
}

func uboIDs(items []domain.UBOItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ContactID)
	}
	return ids
}
