package ownership

import (
	"context"
	"sort"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

// Source is the read-only view of the store the engine needs. UpwardGraph
// returns, in one consistent read, the root, every contact reachable from it
// by walking ownership and control links toward owners, and all compliance
// links (ownership, control, directorship, manages) pointing at those
// contacts together with their owners. An unknown root is ErrNotFound.
type Source interface {
	UpwardGraph(ctx context.Context, orgID, rootID string) (domain.GraphSnapshot, error)
}

// Subgraph is the part of an organisation's graph above a root entity. Links
// live in one flat slice and nodes refer to them by index, so traversal never
// holds pointers into the store.
type Subgraph struct {
	root     string
	entities map[string]domain.Entity
	links    []domain.OwnershipLink
	incoming map[string][]int
	linkSeen map[string]struct{}
	dangling []string
}

func newSubgraph(root string) *Subgraph {
	return &Subgraph{
		root:     root,
		entities: make(map[string]domain.Entity),
		incoming: make(map[string][]int),
		linkSeen: make(map[string]struct{}),
	}
}

// NewSubgraph builds a subgraph from already materialised entities and links.
// Links whose owner is not among entities are recorded as dangling.
func NewSubgraph(root domain.Entity, entities []domain.Entity, links []domain.OwnershipLink) *Subgraph {
	g := newSubgraph(root.ID)
	g.addEntity(root)
	for _, e := range entities {
		g.addEntity(e)
	}
	for _, l := range links {
		if _, ok := g.entities[l.OwnerID]; !ok {
			g.dangling = append(g.dangling, l.ID)
			continue
		}
		g.addLink(l)
	}
	return g
}

// LoadSubgraph reads the upward graph of rootID from src in one snapshot.
func LoadSubgraph(ctx context.Context, src Source, orgID, rootID string) (*Subgraph, error) {
	snap, err := src.UpwardGraph(ctx, orgID, rootID)
	if err != nil {
		return nil, err
	}
	return NewSubgraph(snap.Root, snap.Entities, snap.Links), nil
}

func (g *Subgraph) addEntity(e domain.Entity) {
	if _, ok := g.entities[e.ID]; ok {
		return
	}
	g.entities[e.ID] = e
}

func (g *Subgraph) addLink(l domain.OwnershipLink) {
	if l.ID != "" {
		if _, ok := g.linkSeen[l.ID]; ok {
			return
		}
		g.linkSeen[l.ID] = struct{}{}
	}
	g.links = append(g.links, l)
	g.incoming[l.OwnedID] = append(g.incoming[l.OwnedID], len(g.links)-1)
}

// RootID returns the id of the entity the subgraph was built around.
func (g *Subgraph) RootID() string {
	return g.root
}

// Root returns the root entity.
func (g *Subgraph) Root() domain.Entity {
	return g.entities[g.root]
}

// Entity looks up an entity by id.
func (g *Subgraph) Entity(id string) (domain.Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// Name returns the entity's name, falling back to its id.
func (g *Subgraph) Name(id string) string {
	if e, ok := g.entities[id]; ok && e.Name != "" {
		return e.Name
	}
	return id
}

// Incoming returns links pointing at id, filtered by type (default ownership),
// in the order they were loaded.
func (g *Subgraph) Incoming(id string, types ...domain.LinkType) []domain.OwnershipLink {
	types = domain.NormalizeLinkTypes(types)
	var out []domain.OwnershipLink
	for _, idx := range g.incoming[id] {
		if domain.ContainsLinkType(types, g.links[idx].Type) {
			out = append(out, g.links[idx])
		}
	}
	return out
}

// Links returns every loaded link of the given types (default ownership).
func (g *Subgraph) Links(types ...domain.LinkType) []domain.OwnershipLink {
	types = domain.NormalizeLinkTypes(types)
	var out []domain.OwnershipLink
	for _, l := range g.links {
		if domain.ContainsLinkType(types, l.Type) {
			out = append(out, l)
		}
	}
	return out
}

// EntityIDs returns all loaded entity ids in sorted order.
func (g *Subgraph) EntityIDs() []string {
	ids := make([]string, 0, len(g.entities))
	for id := range g.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DanglingLinks lists links whose owner does not exist in the store.
func (g *Subgraph) DanglingLinks() []string {
	return append([]string(nil), g.dangling...)
}
