package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vanshika/ownergraph/backend/internal/domain"
	"github.com/vanshika/ownergraph/backend/internal/metrics"
	"github.com/vanshika/ownergraph/backend/internal/ownership"
	"github.com/vanshika/ownergraph/backend/internal/repository"
)

const testOrg = "org-1"

// failingStore wraps the in-memory store and fails selected calls.
type failingStore struct {
	*repository.Memory
	listErr   error
	createErr error
}

func (s *failingStore) ListEntities(ctx context.Context, orgID string, opts repository.ListEntitiesOptions) ([]domain.Entity, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Memory.ListEntities(ctx, orgID, opts)
}

func (s *failingStore) CreateLink(ctx context.Context, link domain.OwnershipLink) (domain.OwnershipLink, error) {
	if s.createErr != nil {
		return domain.OwnershipLink{}, s.createErr
	}
	return s.Memory.CreateLink(ctx, link)
}

func newTestService(t *testing.T) (*ComplianceService, *repository.Memory) {
	t.Helper()
	store := repository.NewMemory()
	svc := NewComplianceService(store, nil)
	svc.WithMetrics(metrics.New(prometheus.NewRegistry()))
	return svc, store
}

func mustEntity(t *testing.T, svc *ComplianceService, id, kind string) {
	t.Helper()
	if _, err := svc.UpsertEntity(context.Background(), testOrg, EntityInput{ID: id, Name: "Contact " + id, Kind: kind}); err != nil {
		t.Fatalf("upsert %s: %v", id, err)
	}
}

func mustLink(t *testing.T, svc *ComplianceService, input LinkInput) domain.OwnershipLink {
	t.Helper()
	link, err := svc.AddLink(context.Background(), testOrg, input)
	if err != nil {
		t.Fatalf("add link %s -> %s: %v", input.OwnerID, input.OwnedID, err)
	}
	return link
}

func pct(v float64) *float64 { return domain.Float64Ptr(v) }

func TestComplianceService_ResolveUBOs(t *testing.T) {
	svc, _ := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "C-2", "company")
	mustEntity(t, svc, "P-1", "individual")
	mustEntity(t, svc, "P-2", "individual")
	mustLink(t, svc, LinkInput{OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(60)})
	mustLink(t, svc, LinkInput{OwnerID: "C-2", OwnedID: "C-1", Percentage: pct(40)})
	mustLink(t, svc, LinkInput{OwnerID: "P-2", OwnedID: "C-2", Percentage: pct(100)})

	res, err := svc.ResolveUBOs(context.Background(), testOrg, " C-1 ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.UBOs) != 2 {
		t.Fatalf("expected 2 UBOs, got %+v", res.UBOs)
	}
	if res.UBOs[0].ContactID != "P-1" || *res.UBOs[0].EffectivePercentage != 60 {
		t.Errorf("unexpected first UBO %+v", res.UBOs[0])
	}
	if res.UBOs[1].ContactID != "P-2" || *res.UBOs[1].EffectivePercentage != 40 {
		t.Errorf("unexpected second UBO %+v", res.UBOs[1])
	}
	if res.EntityID != "C-1" {
		t.Errorf("expected trimmed entity id, got %q", res.EntityID)
	}
}

func TestComplianceService_AnalysisRequiresKnownRoot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ResolveUBOs(ctx, testOrg, "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Validate(ctx, testOrg, "C-404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Audit(ctx, testOrg, "C-404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestComplianceService_ValidateAndAudit(t *testing.T) {
	svc, _ := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "C-2", "company")
	mustEntity(t, svc, "P-1", "individual")
	mustLink(t, svc, LinkInput{OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(50)})
	mustLink(t, svc, LinkInput{OwnerID: "C-2", OwnedID: "C-1", Percentage: pct(50)})

	res, err := svc.Validate(context.Background(), testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.OwnershipSumValid || res.TotalPercentage != 100 {
		t.Fatalf("expected valid sum, got %+v", res)
	}
	if len(res.DeadEnds) != 1 || res.DeadEnds[0].ContactID != "C-2" {
		t.Fatalf("expected C-2 dead end, got %+v", res.DeadEnds)
	}

	audit, err := svc.Audit(context.Background(), testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(audit.Nodes) != 1 || audit.Nodes[0].ContactID != "C-1" {
		t.Fatalf("expected only C-1 to be sum-checked, got %+v", audit.Nodes)
	}
}

func TestComplianceService_AddLinkDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })
	svc.WithIDGenerator(func() string { return "L-generated" })
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "P-1", "individual")

	link := mustLink(t, svc, LinkInput{OwnerID: " P-1 ", OwnedID: "C-1", Type: "Director", RoleLabel: "  Chair  "})
	if link.ID != "L-generated" || !link.CreatedAt.Equal(now) {
		t.Fatalf("unexpected defaults %+v", link)
	}
	if link.Type != domain.LinkDirectorship || link.OwnerID != "P-1" || link.RoleLabel != "Chair" {
		t.Fatalf("unexpected normalization %+v", link)
	}

	created := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	imported := mustLink(t, svc, LinkInput{ID: "L-7", OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(10), CreatedAt: &created})
	if imported.ID != "L-7" || !imported.CreatedAt.Equal(created) {
		t.Fatalf("supplied id and timestamp must be kept: %+v", imported)
	}

	stored, err := svc.GetLink(context.Background(), testOrg, "L-7")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if *stored.Percentage != 10 {
		t.Fatalf("unexpected stored link %+v", stored)
	}
}

func TestComplianceService_AddLinkValidation(t *testing.T) {
	svc, _ := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "P-1", "individual")

	cases := []struct {
		name  string
		input LinkInput
		want  error
	}{
		{name: "missing owner", input: LinkInput{OwnedID: "C-1"}, want: domain.ErrInvalidInput},
		{name: "self loop", input: LinkInput{OwnerID: "C-1", OwnedID: "C-1"}, want: domain.ErrInvalidInput},
		{name: "unknown type", input: LinkInput{OwnerID: "P-1", OwnedID: "C-1", Type: "sponsor"}, want: domain.ErrInvalidInput},
		{name: "percentage above range", input: LinkInput{OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(100.5)}, want: domain.ErrInvalidInput},
		{name: "negative voting", input: LinkInput{OwnerID: "P-1", OwnedID: "C-1", VotingPercentage: pct(-1)}, want: domain.ErrInvalidInput},
		{name: "family without kind", input: LinkInput{OwnerID: "P-1", OwnedID: "C-1", Type: "family"}, want: domain.ErrInvalidInput},
		{name: "unknown endpoint", input: LinkInput{OwnerID: "P-9", OwnedID: "C-1"}, want: domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddLink(context.Background(), testOrg, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	links, err := svc.ListLinks(context.Background(), testOrg, LinkFilter{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("rejected links must not be stored: %+v", links)
	}
}

func TestComplianceService_AddLinkAllowsCyclesAndOverfullSums(t *testing.T) {
	svc, _ := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "C-2", "company")
	mustLink(t, svc, LinkInput{OwnerID: "C-1", OwnedID: "C-2", Percentage: pct(80)})
	mustLink(t, svc, LinkInput{OwnerID: "C-2", OwnedID: "C-1", Percentage: pct(80)})
	mustLink(t, svc, LinkInput{OwnerID: "C-2", OwnedID: "C-1", Percentage: pct(80)})

	res, err := svc.Validate(context.Background(), testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.OwnershipSumValid || len(res.Cycles) != 1 {
		t.Fatalf("expected invalid sum and one cycle, got %+v", res)
	}
}

func TestComplianceService_RemoveLink(t *testing.T) {
	svc, _ := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "P-1", "individual")
	link := mustLink(t, svc, LinkInput{OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(100)})

	if err := svc.RemoveLink(context.Background(), testOrg, link.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.RemoveLink(context.Background(), testOrg, link.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := svc.RemoveLink(context.Background(), testOrg, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	res, err := svc.ResolveUBOs(context.Background(), testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.UBOs) != 0 {
		t.Fatalf("removed link must no longer count: %+v", res.UBOs)
	}
}

func TestComplianceService_ListLinksFilter(t *testing.T) {
	svc, _ := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "P-1", "individual")
	mustLink(t, svc, LinkInput{OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(100)})
	mustLink(t, svc, LinkInput{OwnerID: "P-1", OwnedID: "C-1", Type: "directorship"})

	links, err := svc.ListLinks(context.Background(), testOrg, LinkFilter{OwnerID: "P-1", Type: "director"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(links) != 1 || links[0].Type != domain.LinkDirectorship {
		t.Fatalf("unexpected links %+v", links)
	}

	if _, err := svc.ListLinks(context.Background(), testOrg, LinkFilter{Type: "sponsor"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestComplianceService_UpsertEntity(t *testing.T) {
	svc, store := newTestService(t)

	e, err := svc.UpsertEntity(context.Background(), testOrg, EntityInput{
		ID:           " C-1 ",
		Name:         "  Acme   Holdings ",
		Kind:         "legal_person",
		Jurisdiction: " gb ",
		Attributes:   map[string]string{" risk ": " low ", " ": "dropped"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e.ID != "C-1" || e.Name != "Acme Holdings" || e.Kind != domain.KindCompany || e.Jurisdiction != "GB" {
		t.Fatalf("unexpected normalization %+v", e)
	}
	if e.Status != domain.StatusActive {
		t.Errorf("expected default status, got %q", e.Status)
	}
	if len(e.Attributes) != 1 || e.Attributes["risk"] != "low" {
		t.Errorf("unexpected attributes %v", e.Attributes)
	}

	stored, err := store.GetEntity(context.Background(), testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected stored entity, got %v", err)
	}
	if stored.Name != "Acme Holdings" {
		t.Fatalf("unexpected stored entity %+v", stored)
	}

	bad := []EntityInput{
		{ID: "", Kind: "company"},
		{ID: "C-2", Kind: "trust"},
		{ID: "C-2", Kind: "company", Status: "deleted"},
		{ID: "C-2", Kind: "company", SeniorManagerID: "C-2"},
	}
	for _, input := range bad {
		if _, err := svc.UpsertEntity(context.Background(), testOrg, input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected invalid input for %+v, got %v", input, err)
		}
	}
}

func TestComplianceService_Graph(t *testing.T) {
	svc, _ := newTestService(t)
	for _, id := range []string{"C-1", "C-2", "C-3"} {
		mustEntity(t, svc, id, "company")
	}
	for _, id := range []string{"P-1", "P-2", "P-3"} {
		mustEntity(t, svc, id, "individual")
	}
	mustLink(t, svc, LinkInput{ID: "L-1", OwnerID: "C-2", OwnedID: "C-1", Percentage: pct(100)})
	mustLink(t, svc, LinkInput{ID: "L-2", OwnerID: "P-1", OwnedID: "C-2", Percentage: pct(100)})
	mustLink(t, svc, LinkInput{ID: "L-3", OwnerID: "C-1", OwnedID: "C-3", Percentage: pct(30)})
	mustLink(t, svc, LinkInput{ID: "L-4", OwnerID: "P-2", OwnedID: "C-1", Type: "directorship"})
	mustLink(t, svc, LinkInput{ID: "L-5", OwnerID: "P-3", OwnedID: "C-1", Type: "employee"})

	view, err := svc.Graph(context.Background(), testOrg, "C-1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if view.Nodes[0].ID != "C-1" {
		t.Fatalf("root must come first, got %+v", view.Nodes[0])
	}
	if len(view.Nodes) != 5 || len(view.Edges) != 4 {
		t.Fatalf("expected 5 nodes and 4 edges, got %d and %d", len(view.Nodes), len(view.Edges))
	}
	for _, e := range view.Edges {
		if e.ID == "L-5" {
			t.Fatalf("employee links are excluded by default")
		}
	}
	if view.Positions == nil {
		t.Fatalf("positions must be an empty map when no layout is saved")
	}

	all, err := svc.Graph(context.Background(), testOrg, "C-1", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(all.Nodes) != 6 || len(all.Edges) != 5 {
		t.Fatalf("expected 6 nodes and 5 edges, got %d and %d", len(all.Nodes), len(all.Edges))
	}

	if _, err := svc.Graph(context.Background(), testOrg, "C-404", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestComplianceService_ContactLinks(t *testing.T) {
	svc, _ := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "C-2", "company")
	mustEntity(t, svc, "P-1", "individual")
	mustLink(t, svc, LinkInput{OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(100)})
	mustLink(t, svc, LinkInput{OwnerID: "C-1", OwnedID: "C-2", Type: "control"})

	links, err := svc.ContactLinks(context.Background(), testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(links.Outgoing) != 1 || links.Outgoing[0].Other.ID != "C-2" || links.Outgoing[0].Direction != domain.DirectionOutgoing {
		t.Fatalf("unexpected outgoing %+v", links.Outgoing)
	}
	if len(links.Incoming) != 1 || links.Incoming[0].Other.Name != "Contact P-1" {
		t.Fatalf("unexpected incoming %+v", links.Incoming)
	}
}

func TestComplianceService_Layout(t *testing.T) {
	svc, _ := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	ctx := context.Background()

	empty, err := svc.GetLayout(ctx, testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if empty.RootID != "C-1" || len(empty.Positions) != 0 {
		t.Fatalf("unexpected empty layout %+v", empty)
	}

	if err := svc.SaveLayout(ctx, testOrg, "C-404", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.SaveLayout(ctx, testOrg, "C-1", map[string]domain.Position{"C-1": {X: 3, Y: 4}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	view, err := svc.Graph(ctx, testOrg, "C-1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if view.Positions["C-1"] != (domain.Position{X: 3, Y: 4}) {
		t.Fatalf("saved layout missing from graph: %+v", view.Positions)
	}
}

func TestComplianceService_DashboardSummary(t *testing.T) {
	svc, _ := newTestService(t)
	svc.WithDashboardConcurrency(2)
	for _, id := range []string{"C-1", "C-2", "C-3"} {
		mustEntity(t, svc, id, "company")
	}
	mustEntity(t, svc, "P-1", "individual")
	mustLink(t, svc, LinkInput{OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(100)})
	mustLink(t, svc, LinkInput{OwnerID: "C-2", OwnedID: "C-3", Percentage: pct(60)})
	mustLink(t, svc, LinkInput{OwnerID: "C-3", OwnedID: "C-2", Percentage: pct(60)})

	rows, err := svc.DashboardSummary(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected only companies, got %d rows", len(rows))
	}
	if rows[0].Entity.ID != "C-1" || rows[0].UBOCount != 1 || !rows[0].OwnershipSumValid || rows[0].HasCycles {
		t.Errorf("unexpected C-1 row %+v", rows[0])
	}
	if !rows[1].HasCycles || rows[1].OwnershipSumValid {
		t.Errorf("unexpected C-2 row %+v", rows[1])
	}
	seen := map[string]bool{}
	for _, w := range rows[1].Warnings {
		if seen[w] {
			t.Fatalf("duplicate warning %q", w)
		}
		seen[w] = true
	}
}

func TestComplianceService_DashboardSummaryPropagatesStoreErrors(t *testing.T) {
	store := &failingStore{Memory: repository.NewMemory(), listErr: errors.New("graph down")}
	svc := NewComplianceService(store, ownership.NewPolicySet(ownership.DefaultPolicy()))

	if _, err := svc.DashboardSummary(context.Background(), testOrg); err == nil {
		t.Fatalf("expected error")
	}
}

// countingStore counts whole-graph reads and per-contact reads.
type countingStore struct {
	*repository.Memory
	graphReads   int
	contactReads int
}

func (s *countingStore) ConnectedGraph(ctx context.Context, orgID, rootID string, types []domain.LinkType) (domain.GraphSnapshot, error) {
	s.graphReads++
	return s.Memory.ConnectedGraph(ctx, orgID, rootID, types)
}

func (s *countingStore) GetEntity(ctx context.Context, orgID, id string) (domain.Entity, error) {
	s.contactReads++
	return s.Memory.GetEntity(ctx, orgID, id)
}

func (s *countingStore) IncomingLinks(ctx context.Context, orgID, id string, types ...domain.LinkType) ([]domain.OwnershipLink, error) {
	s.contactReads++
	return s.Memory.IncomingLinks(ctx, orgID, id, types...)
}

func (s *countingStore) OutgoingLinks(ctx context.Context, orgID, id string, types ...domain.LinkType) ([]domain.OwnershipLink, error) {
	s.contactReads++
	return s.Memory.OutgoingLinks(ctx, orgID, id, types...)
}

func TestComplianceService_GraphReadsOneSnapshot(t *testing.T) {
	store := &countingStore{Memory: repository.NewMemory()}
	svc := NewComplianceService(store, nil)
	for _, id := range []string{"C-1", "C-2", "P-1"} {
		kind := "company"
		if id[0] == 'P' {
			kind = "individual"
		}
		mustEntity(t, svc, id, kind)
	}
	mustLink(t, svc, LinkInput{ID: "L-1", OwnerID: "C-2", OwnedID: "C-1", Percentage: pct(100)})
	mustLink(t, svc, LinkInput{ID: "L-2", OwnerID: "P-1", OwnedID: "C-2", Percentage: pct(100)})
	store.graphReads, store.contactReads = 0, 0

	view, err := svc.Graph(context.Background(), testOrg, "C-1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(view.Nodes) != 3 || len(view.Edges) != 2 {
		t.Fatalf("expected 3 nodes and 2 edges, got %d and %d", len(view.Nodes), len(view.Edges))
	}
	if store.graphReads != 1 || store.contactReads != 0 {
		t.Fatalf("expected a single graph read, got %d graph and %d contact reads", store.graphReads, store.contactReads)
	}
}

func TestComplianceService_UpdateLink(t *testing.T) {
	svc, store := newTestService(t)
	mustEntity(t, svc, "C-1", "company")
	mustEntity(t, svc, "P-1", "individual")
	created := mustLink(t, svc, LinkInput{ID: "L-1", OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(40), RoleLabel: "founder"})
	ctx := context.Background()

	control := "control"
	nominee := true
	updated, err := svc.UpdateLink(ctx, testOrg, " L-1 ", LinkUpdate{Type: &control, Percentage: pct(55), IsNominee: &nominee})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Type != domain.LinkControl || *updated.Percentage != 55 || !updated.IsNominee {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.RoleLabel != "founder" || updated.OwnerID != "P-1" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unset fields must keep their value: %+v", updated)
	}
	stored, err := store.GetLink(ctx, testOrg, "L-1")
	if err != nil || stored.Type != domain.LinkControl {
		t.Fatalf("update not stored: %+v, %v", stored, err)
	}

	if _, err := svc.UpdateLink(ctx, testOrg, "L-1", LinkUpdate{Percentage: pct(120)}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	family := "family"
	if _, err := svc.UpdateLink(ctx, testOrg, "L-1", LinkUpdate{Type: &family}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("family without relationship kind must be rejected, got %v", err)
	}
	if _, err := svc.UpdateLink(ctx, testOrg, "L-404", LinkUpdate{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.UpdateLink(ctx, testOrg, " ", LinkUpdate{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestComplianceService_RiskScore(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if _, err := svc.UpsertEntity(ctx, testOrg, EntityInput{ID: "C-1", Name: "Target", Kind: "company", Jurisdiction: "GB"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	risk, err := svc.RiskScore(ctx, testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if risk.Score != 23 || risk.Band != domain.RiskLow || !risk.CalculatedAt.Equal(now) {
		t.Fatalf("unexpected risk %+v", risk)
	}
	if _, err := store.GetRisk(ctx, testOrg, "C-1"); err != nil {
		t.Fatalf("first read must store the score: %v", err)
	}

	// A stored score is served until it is recalculated.
	mustEntity(t, svc, "P-1", "individual")
	mustLink(t, svc, LinkInput{OwnerID: "P-1", OwnedID: "C-1", Percentage: pct(100)})
	later := now.Add(time.Hour)
	svc.WithClock(func() time.Time { return later })

	cached, err := svc.RiskScore(ctx, testOrg, "C-1")
	if err != nil || cached.Factors.Complexity != 20 || !cached.CalculatedAt.Equal(now) {
		t.Fatalf("expected the stored score, got %+v, %v", cached, err)
	}
	fresh, err := svc.RecalculateRisk(ctx, testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// Depth 1 and two link ends: 20 + 15 + 4.
	if fresh.Factors.Complexity != 39 || !fresh.CalculatedAt.Equal(later) {
		t.Fatalf("unexpected recalculated risk %+v", fresh)
	}

	if _, err := svc.RiskScore(ctx, testOrg, "C-404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestComplianceService_RiskWeights(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.UpsertEntity(ctx, testOrg, EntityInput{ID: "C-1", Name: "Target", Kind: "company", Jurisdiction: "IR"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	svc.WithRiskWeights(ownership.RiskWeights{Nationality: 1})

	risk, err := svc.RecalculateRisk(ctx, testOrg, "C-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if risk.Score != 90 || risk.Band != domain.RiskHigh {
		t.Fatalf("nationality only weighting should score 90, got %+v", risk)
	}
}
