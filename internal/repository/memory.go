package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

// Memory is an in-process store with the same contract as Repository. Each
// organization has its own lock: mutations are serialized per organization
// and never block readers of another one. Organizations come into existence
// on their first write; reads of an unknown organization see an empty graph.
type Memory struct {
	mu   sync.Mutex
	orgs map[string]*orgStore
	now  func() time.Time
}

type orgStore struct {
	mu       sync.RWMutex
	entities map[string]domain.Entity
	links    map[string]domain.OwnershipLink
	order    []string
	incoming map[string][]string
	outgoing map[string][]string
	layouts  map[string]domain.Layout
	risks    map[string]domain.RiskScore
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		orgs: make(map[string]*orgStore),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// writable returns the organization's store, creating it on first use.
func (m *Memory) writable(orgID string) *orgStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.orgs[orgID]
	if !ok {
		s = &orgStore{
			entities: make(map[string]domain.Entity),
			links:    make(map[string]domain.OwnershipLink),
			incoming: make(map[string][]string),
			outgoing: make(map[string][]string),
			layouts:  make(map[string]domain.Layout),
			risks:    make(map[string]domain.RiskScore),
		}
		m.orgs[orgID] = s
	}
	return s
}

// readable returns the organization's store or nil when nothing was ever
// written for it.
func (m *Memory) readable(orgID string) *orgStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orgs[orgID]
}

// EnsureSchema is a no-op kept for parity with Repository.
func (m *Memory) EnsureSchema(context.Context) error {
	return nil
}

// UpsertEntity creates or replaces a contact.
func (m *Memory) UpsertEntity(_ context.Context, e domain.Entity) error {
	if e.OrgID == "" || e.ID == "" {
		return fmt.Errorf("%w: org id and contact id are required", domain.ErrInvalidInput)
	}
	s := m.writable(e.OrgID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = cloneEntity(e)
	return nil
}

// GetEntity loads one contact.
func (m *Memory) GetEntity(_ context.Context, orgID, id string) (domain.Entity, error) {
	s := m.readable(orgID)
	if s == nil {
		return domain.Entity{}, fmt.Errorf("contact %s: %w", id, domain.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return domain.Entity{}, fmt.Errorf("contact %s: %w", id, domain.ErrNotFound)
	}
	return cloneEntity(e), nil
}

// ListEntities returns contacts ordered by id.
func (m *Memory) ListEntities(_ context.Context, orgID string, opts ListEntitiesOptions) ([]domain.Entity, error) {
	s := m.readable(orgID)
	if s == nil {
		return []domain.Entity{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(opts.Search))
	ids := make([]string, 0, len(s.entities))
	for id, e := range s.entities {
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) && !strings.Contains(strings.ToLower(id), search) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if opts.Limit > 0 {
		offset := opts.Offset
		if offset < 0 {
			offset = 0
		}
		if offset > len(ids) {
			offset = len(ids)
		}
		end := offset + opts.Limit
		if end > len(ids) {
			end = len(ids)
		}
		ids = ids[offset:end]
	}

	out := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneEntity(s.entities[id]))
	}
	return out, nil
}

// CreateLink stores a link between two existing contacts. A reused link id is
// invalid input.
func (m *Memory) CreateLink(_ context.Context, link domain.OwnershipLink) (domain.OwnershipLink, error) {
	if link.ID == "" {
		return domain.OwnershipLink{}, fmt.Errorf("%w: link id is required", domain.ErrInvalidInput)
	}
	s := m.writable(link.OrgID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[link.ID]; ok {
		return domain.OwnershipLink{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, link.ID, errLinkExists)
	}
	for _, id := range []string{link.OwnerID, link.OwnedID} {
		if _, ok := s.entities[id]; !ok {
			return domain.OwnershipLink{}, fmt.Errorf("contact %s: %w", id, domain.ErrNotFound)
		}
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = m.now()
	}
	link = cloneLink(link)
	s.links[link.ID] = link
	s.order = append(s.order, link.ID)
	s.incoming[link.OwnedID] = append(s.incoming[link.OwnedID], link.ID)
	s.outgoing[link.OwnerID] = append(s.outgoing[link.OwnerID], link.ID)
	return cloneLink(link), nil
}

// UpdateLink replaces the attributes of an existing link. Endpoints, id and
// creation time are kept from the stored link.
func (m *Memory) UpdateLink(_ context.Context, link domain.OwnershipLink) (domain.OwnershipLink, error) {
	s := m.readable(link.OrgID)
	if s == nil {
		return domain.OwnershipLink{}, fmt.Errorf("link %s: %w", link.ID, domain.ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.links[link.ID]
	if !ok {
		return domain.OwnershipLink{}, fmt.Errorf("link %s: %w", link.ID, domain.ErrNotFound)
	}
	link.OwnerID = stored.OwnerID
	link.OwnedID = stored.OwnedID
	link.CreatedAt = stored.CreatedAt
	s.links[link.ID] = cloneLink(link)
	return cloneLink(link), nil
}

// DeleteLink removes a link by id.
func (m *Memory) DeleteLink(_ context.Context, orgID, id string) error {
	s := m.readable(orgID)
	if s == nil {
		return fmt.Errorf("link %s: %w", id, domain.ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return fmt.Errorf("link %s: %w", id, domain.ErrNotFound)
	}
	delete(s.links, id)
	s.order = without(s.order, id)
	s.incoming[link.OwnedID] = without(s.incoming[link.OwnedID], id)
	s.outgoing[link.OwnerID] = without(s.outgoing[link.OwnerID], id)
	return nil
}

// GetLink loads one link by id.
func (m *Memory) GetLink(_ context.Context, orgID, id string) (domain.OwnershipLink, error) {
	s := m.readable(orgID)
	if s == nil {
		return domain.OwnershipLink{}, fmt.Errorf("link %s: %w", id, domain.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok {
		return domain.OwnershipLink{}, fmt.Errorf("link %s: %w", id, domain.ErrNotFound)
	}
	return cloneLink(link), nil
}

// ListLinks returns links matching opts in creation order.
func (m *Memory) ListLinks(_ context.Context, orgID string, opts ListLinksOptions) ([]domain.OwnershipLink, error) {
	s := m.readable(orgID)
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.OwnershipLink
	for _, id := range s.order {
		l := s.links[id]
		if opts.OwnerID != "" && l.OwnerID != opts.OwnerID {
			continue
		}
		if opts.OwnedID != "" && l.OwnedID != opts.OwnedID {
			continue
		}
		if len(opts.Types) > 0 && !domain.ContainsLinkType(opts.Types, l.Type) {
			continue
		}
		out = append(out, cloneLink(l))
	}
	return out, nil
}

// IncomingLinks returns links pointing at id. No types means ownership only.
func (m *Memory) IncomingLinks(_ context.Context, orgID, id string, types ...domain.LinkType) ([]domain.OwnershipLink, error) {
	s := m.readable(orgID)
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.incoming[id], domain.NormalizeLinkTypes(types)), nil
}

// OutgoingLinks returns links leaving id. No types means ownership only.
func (m *Memory) OutgoingLinks(_ context.Context, orgID, id string, types ...domain.LinkType) ([]domain.OwnershipLink, error) {
	s := m.readable(orgID)
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.outgoing[id], domain.NormalizeLinkTypes(types)), nil
}

// UpwardGraph walks from rootID toward owners over ownership and control
// links under one read lock. Every compliance link pointing at a reached
// contact is returned with its owner.
func (m *Memory) UpwardGraph(_ context.Context, orgID, rootID string) (domain.GraphSnapshot, error) {
	s := m.readable(orgID)
	if s == nil {
		return domain.GraphSnapshot{}, fmt.Errorf("contact %s: %w", rootID, domain.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	root, ok := s.entities[rootID]
	if !ok {
		return domain.GraphSnapshot{}, fmt.Errorf("contact %s: %w", rootID, domain.ErrNotFound)
	}
	snap := domain.GraphSnapshot{Root: cloneEntity(root)}
	added := map[string]bool{rootID: true}
	queued := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, link := range s.collect(s.incoming[id], domain.ComplianceLinkTypes()) {
			snap.Links = append(snap.Links, link)
			owner, known := s.entities[link.OwnerID]
			if !known {
				continue
			}
			if !added[owner.ID] {
				added[owner.ID] = true
				snap.Entities = append(snap.Entities, cloneEntity(owner))
			}
			if !walksUpward(link.Type) || queued[owner.ID] {
				continue
			}
			queued[owner.ID] = true
			queue = append(queue, owner.ID)
		}
	}
	return snap, nil
}

// ConnectedGraph collects the contacts reachable from rootID over links of
// the given types in either direction, and the links among them, under one
// read lock. Links to a missing contact are left out.
func (m *Memory) ConnectedGraph(_ context.Context, orgID, rootID string, types []domain.LinkType) (domain.GraphSnapshot, error) {
	s := m.readable(orgID)
	if s == nil {
		return domain.GraphSnapshot{}, fmt.Errorf("contact %s: %w", rootID, domain.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	root, ok := s.entities[rootID]
	if !ok {
		return domain.GraphSnapshot{}, fmt.Errorf("contact %s: %w", rootID, domain.ErrNotFound)
	}
	types = domain.NormalizeLinkTypes(types)
	snap := domain.GraphSnapshot{Root: cloneEntity(root)}
	visited := map[string]bool{rootID: true}
	linkSeen := map[string]bool{}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		touching := append(s.collect(s.incoming[id], types), s.collect(s.outgoing[id], types)...)
		for _, link := range touching {
			other := link.OwnerID
			if other == id {
				other = link.OwnedID
			}
			e, known := s.entities[other]
			if !known {
				continue
			}
			if !visited[other] {
				visited[other] = true
				snap.Entities = append(snap.Entities, cloneEntity(e))
				queue = append(queue, other)
			}
			if !linkSeen[link.ID] {
				linkSeen[link.ID] = true
				snap.Links = append(snap.Links, link)
			}
		}
	}
	return snap, nil
}

func walksUpward(t domain.LinkType) bool {
	switch t.Role() {
	case domain.RoleOwnership, domain.RoleControl:
		return true
	case domain.RoleManagement, domain.RolePersonal:
		return false
	}
	return false
}

func (s *orgStore) collect(ids []string, types []domain.LinkType) []domain.OwnershipLink {
	var out []domain.OwnershipLink
	for _, id := range ids {
		if l := s.links[id]; domain.ContainsLinkType(types, l.Type) {
			out = append(out, cloneLink(l))
		}
	}
	return out
}

// SaveLayout stores node positions for a root contact.
func (m *Memory) SaveLayout(_ context.Context, orgID string, layout domain.Layout) error {
	s := m.writable(orgID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[layout.RootID] = cloneLayout(layout)
	return nil
}

// GetLayout loads saved positions for a root contact.
func (m *Memory) GetLayout(_ context.Context, orgID, rootID string) (domain.Layout, error) {
	s := m.readable(orgID)
	if s == nil {
		return domain.Layout{}, fmt.Errorf("layout %s: %w", rootID, domain.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	layout, ok := s.layouts[rootID]
	if !ok {
		return domain.Layout{}, fmt.Errorf("layout %s: %w", rootID, domain.ErrNotFound)
	}
	return cloneLayout(layout), nil
}

// SaveRisk stores the latest risk score of a contact, replacing any earlier one.
func (m *Memory) SaveRisk(_ context.Context, orgID string, risk domain.RiskScore) error {
	s := m.writable(orgID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.risks[risk.ContactID] = risk
	return nil
}

// GetRisk loads the stored risk score of a contact.
func (m *Memory) GetRisk(_ context.Context, orgID, contactID string) (domain.RiskScore, error) {
	s := m.readable(orgID)
	if s == nil {
		return domain.RiskScore{}, fmt.Errorf("risk of %s: %w", contactID, domain.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	risk, ok := s.risks[contactID]
	if !ok {
		return domain.RiskScore{}, fmt.Errorf("risk of %s: %w", contactID, domain.ErrNotFound)
	}
	return risk, nil
}

// organizations reports how many organizations hold data.
func (m *Memory) organizations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orgs)
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func cloneEntity(e domain.Entity) domain.Entity {
	if e.Attributes != nil {
		attrs := make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			attrs[k] = v
		}
		e.Attributes = attrs
	}
	return e
}

func cloneLink(l domain.OwnershipLink) domain.OwnershipLink {
	if l.Percentage != nil {
		l.Percentage = domain.Float64Ptr(*l.Percentage)
	}
	if l.VotingPercentage != nil {
		l.VotingPercentage = domain.Float64Ptr(*l.VotingPercentage)
	}
	return l
}

func cloneLayout(layout domain.Layout) domain.Layout {
	positions := make(map[string]domain.Position, len(layout.Positions))
	for k, v := range layout.Positions {
		positions[k] = v
	}
	layout.Positions = positions
	return layout
}
