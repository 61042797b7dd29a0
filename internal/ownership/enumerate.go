package ownership

import (
	"sort"
	"strings"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

// Path is one simple ownership chain from an individual down to the root.
// Percentage is on the 0–100 scale.
type Path struct {
	IndividualID string
	Percentage   float64
	Nodes        []string
}

// Enumeration is everything the ownership walk learned about a subgraph.
type Enumeration struct {
	// Ownership is each reached individual's share of the root on the 0–100
	// scale, summed over every simple ownership path. Individuals reached
	// only over zero or missing percentages are present with 0.
	Ownership map[string]float64
	// Cycles are listed in ownership direction (A owns B owns C owns A is
	// [A B C]), rotated so the smallest id comes first.
	Cycles [][]string
	// DeadEnds are companies reached by the walk with no ownership links.
	DeadEnds []string
	// MissingPercentages are ownership links traversed without a percentage.
	MissingPercentages []string
}

// Enumerate walks the ownership links above the root toward natural persons
// and aggregates each individual's share. A branch never revisits a node
// already on it, so the walk terminates on arbitrary cycles; each revisit is
// recorded as a cycle.
//
// Shares of a company outside every ownership cycle do not depend on the
// branch that reached it, so they are computed once and reused. Only
// companies on a cycle are walked once per branch.
func Enumerate(g *Subgraph) Enumeration {
	w := &walker{
		g:        g,
		cyclic:   cyclicCompanies(g),
		onPath:   make(map[string]bool),
		memo:     make(map[string]map[string]float64),
		cycles:   make(map[string][]string),
		deadEnds: make(map[string]struct{}),
		missing:  make(map[string]struct{}),
	}
	shares := w.walk(g.RootID(), nil)

	out := w.result()
	out.Ownership = make(map[string]float64, len(shares))
	for id, share := range shares {
		out.Ownership[id] = share * 100
	}
	return out
}

type walker struct {
	g        *Subgraph
	cyclic   map[string]bool
	onPath   map[string]bool
	memo     map[string]map[string]float64
	cycles   map[string][]string
	deadEnds map[string]struct{}
	missing  map[string]struct{}
}

// walk returns the shares, on the 0–1 scale, that individuals hold in node.
// path holds the nodes from the root to node's child. Callers must not
// modify the returned map.
func (w *walker) walk(node string, path []string) map[string]float64 {
	if shares, ok := w.memo[node]; ok {
		return shares
	}

	path = append(path, node)
	w.onPath[node] = true
	defer delete(w.onPath, node)

	shares := make(map[string]float64)
	if entity, known := w.g.Entity(node); known && entity.IsIndividual() {
		shares[node] = 1
		w.memo[node] = shares
		return shares
	}

	owners := w.g.Incoming(node, domain.LinkOwnership)
	if len(owners) == 0 {
		w.deadEnds[node] = struct{}{}
	}
	for _, link := range owners {
		if w.onPath[link.OwnerID] {
			w.recordCycle(path, link.OwnerID)
			continue
		}
		if link.Percentage == nil {
			w.missing[link.ID] = struct{}{}
		}
		fraction := link.PercentageOrZero() / 100
		for id, share := range w.walk(link.OwnerID, path) {
			shares[id] += fraction * share
		}
	}

	if !w.cyclic[node] {
		w.memo[node] = shares
	}
	return shares
}

// recordCycle stores the loop closed by an edge from repeated onto the tail
// of path. path runs owned → owner, so the ownership order is its reverse.
func (w *walker) recordCycle(path []string, repeated string) {
	start := -1
	for i, id := range path {
		if id == repeated {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}
	loop := path[start:]
	cycle := make([]string, len(loop))
	for i, id := range loop {
		cycle[len(loop)-1-i] = id
	}
	cycle = normalizeCycle(cycle)
	w.cycles[strings.Join(cycle, "\x00")] = cycle
}

func (w *walker) result() Enumeration {
	var out Enumeration

	keys := make([]string, 0, len(w.cycles))
	for k := range w.cycles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Cycles = append(out.Cycles, w.cycles[k])
	}

	out.DeadEnds = sortedKeys(w.deadEnds)
	out.MissingPercentages = sortedKeys(w.missing)
	return out
}

// walkOwners returns the ids the walk descends to from id. Individuals end a
// chain and have none.
func walkOwners(g *Subgraph, id string) []string {
	if e, ok := g.Entity(id); ok && e.IsIndividual() {
		return nil
	}
	links := g.Incoming(id, domain.LinkOwnership)
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.OwnerID)
	}
	return ids
}

// cyclicCompanies marks the nodes that share a strongly connected component
// with at least one other node in the walk graph (Tarjan). A self-owning
// company alone is not marked: its self link is always cut by the on-path
// check, so its shares are branch independent.
func cyclicCompanies(g *Subgraph) map[string]bool {
	var (
		next    int
		index   = make(map[string]int)
		low     = make(map[string]int)
		onStack = make(map[string]bool)
		stack   []string
		cyclic  = make(map[string]bool)
	)

	var connect func(v string)
	connect = func(v string) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, owner := range walkOwners(g, v) {
			if _, seen := index[owner]; !seen {
				connect(owner)
				low[v] = min(low[v], low[owner])
			} else if onStack[owner] {
				low[v] = min(low[v], index[owner])
			}
		}

		if low[v] != index[v] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == v {
				break
			}
		}
		if len(component) > 1 {
			for _, id := range component {
				cyclic[id] = true
			}
		}
	}
	connect(g.RootID())
	return cyclic
}

// Paths materialises simple ownership paths from individuals down to the
// root, at most limit of them (all when limit <= 0). Their number can grow
// exponentially with the depth of a holding structure, so callers that only
// need shares should use Enumerate.
func Paths(g *Subgraph, limit int) []Path {
	var (
		out    []Path
		onPath = make(map[string]bool)
	)

	var visit func(node string, path []string, fraction float64) bool
	visit = func(node string, path []string, fraction float64) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		path = append(path, node)
		onPath[node] = true
		defer delete(onPath, node)

		if e, ok := g.Entity(node); ok && e.IsIndividual() {
			nodes := make([]string, len(path))
			for i, id := range path {
				nodes[len(path)-1-i] = id
			}
			out = append(out, Path{IndividualID: node, Percentage: fraction * 100, Nodes: nodes})
			return true
		}
		for _, link := range g.Incoming(node, domain.LinkOwnership) {
			if onPath[link.OwnerID] {
				continue
			}
			if !visit(link.OwnerID, path, fraction*link.PercentageOrZero()/100) {
				return false
			}
		}
		return true
	}
	visit(g.RootID(), nil, 1)
	return out
}

// normalizeCycle rotates a cycle so its smallest id comes first.
func normalizeCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	first := 0
	for i, id := range cycle {
		if id < cycle[first] {
			first = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[first:]...)
	out = append(out, cycle[:first]...)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
