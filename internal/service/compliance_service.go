package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vanshika/ownergraph/backend/internal/domain"
	"github.com/vanshika/ownergraph/backend/internal/metrics"
	"github.com/vanshika/ownergraph/backend/internal/ownership"
	"github.com/vanshika/ownergraph/backend/internal/repository"
)

// Store is the persistence contract required by the compliance service.
type Store interface {
	ownership.Source
	ConnectedGraph(ctx context.Context, orgID, rootID string, types []domain.LinkType) (domain.GraphSnapshot, error)
	GetEntity(ctx context.Context, orgID, id string) (domain.Entity, error)
	UpsertEntity(ctx context.Context, e domain.Entity) error
	ListEntities(ctx context.Context, orgID string, opts repository.ListEntitiesOptions) ([]domain.Entity, error)
	IncomingLinks(ctx context.Context, orgID, id string, types ...domain.LinkType) ([]domain.OwnershipLink, error)
	OutgoingLinks(ctx context.Context, orgID, id string, types ...domain.LinkType) ([]domain.OwnershipLink, error)
	CreateLink(ctx context.Context, link domain.OwnershipLink) (domain.OwnershipLink, error)
	UpdateLink(ctx context.Context, link domain.OwnershipLink) (domain.OwnershipLink, error)
	DeleteLink(ctx context.Context, orgID, id string) error
	GetLink(ctx context.Context, orgID, id string) (domain.OwnershipLink, error)
	ListLinks(ctx context.Context, orgID string, opts repository.ListLinksOptions) ([]domain.OwnershipLink, error)
	SaveLayout(ctx context.Context, orgID string, layout domain.Layout) error
	GetLayout(ctx context.Context, orgID, rootID string) (domain.Layout, error)
	SaveRisk(ctx context.Context, orgID string, risk domain.RiskScore) error
	GetRisk(ctx context.Context, orgID, contactID string) (domain.RiskScore, error)
}

const defaultDashboardConcurrency = 8

// ComplianceService exposes UBO resolution, structural validation and link
// mutation for one store. Every call is scoped to an organization.
type ComplianceService struct {
	store          Store
	engine         *ownership.Engine
	metrics        *metrics.Metrics
	nowFn          func() time.Time
	newID          func() string
	dashboardLimit int
	riskWeights    ownership.RiskWeights
}

// NewComplianceService wires a service. A nil policy set applies the default
// policy everywhere.
func NewComplianceService(store Store, policies *ownership.PolicySet) *ComplianceService {
	return &ComplianceService{
		store:          store,
		engine:         ownership.NewEngine(store, policies),
		nowFn:          time.Now,
		newID:          uuid.NewString,
		dashboardLimit: defaultDashboardConcurrency,
		riskWeights:    ownership.DefaultRiskWeights(),
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *ComplianceService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// WithIDGenerator overrides link id generation (used primarily in tests).
func (s *ComplianceService) WithIDGenerator(newID func() string) {
	if newID != nil {
		s.newID = newID
	}
}

// WithMetrics records analysis and mutation metrics on m.
func (s *ComplianceService) WithMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// WithDashboardConcurrency bounds the analyses run in parallel by
// DashboardSummary.
func (s *ComplianceService) WithDashboardConcurrency(n int) {
	if n > 0 {
		s.dashboardLimit = n
	}
}

// WithRiskWeights overrides the risk factor weighting.
func (s *ComplianceService) WithRiskWeights(w ownership.RiskWeights) {
	s.riskWeights = w
}

// ResolveUBOs determines the ultimate beneficial owners of an entity.
func (s *ComplianceService) ResolveUBOs(ctx context.Context, orgID, entityID string) (domain.UBOResult, error) {
	entityID, err := normalizeID("entity_contact_id", entityID)
	if err != nil {
		return domain.UBOResult{}, err
	}
	defer s.metrics.ObserveAnalysis("resolve", time.Now())

	res, err := s.engine.ResolveUBOs(ctx, orgID, entityID)
	if err != nil {
		return domain.UBOResult{}, err
	}
	s.recordUBOs(res)
	return res, nil
}

// Validate runs the structural checks on an entity's ownership graph.
func (s *ComplianceService) Validate(ctx context.Context, orgID, entityID string) (domain.ValidationResult, error) {
	entityID, err := normalizeID("entity_contact_id", entityID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	defer s.metrics.ObserveAnalysis("validate", time.Now())

	res, err := s.engine.Validate(ctx, orgID, entityID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	s.recordFindings(res)
	return res, nil
}

// Audit validates an entity and sum-checks every company above it.
func (s *ComplianceService) Audit(ctx context.Context, orgID, entityID string) (domain.AuditResult, error) {
	entityID, err := normalizeID("entity_contact_id", entityID)
	if err != nil {
		return domain.AuditResult{}, err
	}
	defer s.metrics.ObserveAnalysis("audit", time.Now())

	res, err := s.engine.Audit(ctx, orgID, entityID)
	if err != nil {
		return domain.AuditResult{}, err
	}
	s.recordFindings(res.ValidationResult)
	return res, nil
}

// DashboardSummary analyses every company of the organization.
func (s *ComplianceService) DashboardSummary(ctx context.Context, orgID string) ([]domain.EntitySummary, error) {
	defer s.metrics.ObserveAnalysis("dashboard", time.Now())

	companies, err := s.store.ListEntities(ctx, orgID, repository.ListEntitiesOptions{Kind: domain.KindCompany})
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.EntitySummary, len(companies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.dashboardLimit)
	for i, company := range companies {
		g.Go(func() error {
			a, err := s.engine.Analyze(gctx, orgID, company.ID)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", company.ID, err)
			}
			ubo := a.Resolve()
			validation := a.Validate()
			summaries[i] = domain.EntitySummary{
				Entity:            company,
				UBOCount:          len(ubo.UBOs),
				OwnershipSumValid: validation.OwnershipSumValid,
				HasCycles:         len(validation.Cycles) > 0,
				DeadEndCount:      len(validation.DeadEnds),
				Warnings:          dedupe(append(append([]string(nil), ubo.Warnings...), validation.Warnings...)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Graph collects the nodes and edges connected to rootID in either direction
// over compliance links, or over every link type when includeAll is set.
func (s *ComplianceService) Graph(ctx context.Context, orgID, rootID string, includeAll bool) (domain.GraphView, error) {
	rootID, err := normalizeID("root_contact_id", rootID)
	if err != nil {
		return domain.GraphView{}, err
	}
	types := domain.ComplianceLinkTypes()
	if includeAll {
		types = domain.AllLinkTypes()
	}

	snap, err := s.store.ConnectedGraph(ctx, orgID, rootID, types)
	if err != nil {
		return domain.GraphView{}, err
	}
	view := domain.GraphView{
		RootID: rootID,
		Nodes:  append([]domain.Entity{snap.Root}, snap.Entities...),
		Edges:  snap.Links,
	}

	layout, err := s.GetLayout(ctx, orgID, rootID)
	if err != nil {
		return domain.GraphView{}, err
	}
	view.Positions = layout.Positions
	return view, nil
}

// ContactLinks lists every link touching a contact together with the
// contact on the other end.
func (s *ComplianceService) ContactLinks(ctx context.Context, orgID, contactID string) (domain.ContactLinks, error) {
	contactID, err := normalizeID("contact_id", contactID)
	if err != nil {
		return domain.ContactLinks{}, err
	}
	contact, err := s.store.GetEntity(ctx, orgID, contactID)
	if err != nil {
		return domain.ContactLinks{}, err
	}

	out, err := s.store.OutgoingLinks(ctx, orgID, contactID, domain.AllLinkTypes()...)
	if err != nil {
		return domain.ContactLinks{}, err
	}
	in, err := s.store.IncomingLinks(ctx, orgID, contactID, domain.AllLinkTypes()...)
	if err != nil {
		return domain.ContactLinks{}, err
	}

	result := domain.ContactLinks{Contact: contact}
	if result.Outgoing, err = s.linkedContacts(ctx, orgID, out, domain.DirectionOutgoing); err != nil {
		return domain.ContactLinks{}, err
	}
	if result.Incoming, err = s.linkedContacts(ctx, orgID, in, domain.DirectionIncoming); err != nil {
		return domain.ContactLinks{}, err
	}
	return result, nil
}

func (s *ComplianceService) linkedContacts(ctx context.Context, orgID string, links []domain.OwnershipLink, dir domain.Direction) ([]domain.LinkedContact, error) {
	out := make([]domain.LinkedContact, 0, len(links))
	for _, link := range links {
		otherID := link.OwnedID
		if dir == domain.DirectionIncoming {
			otherID = link.OwnerID
		}
		other, err := s.store.GetEntity(ctx, orgID, otherID)
		if errors.Is(err, domain.ErrNotFound) {
			other = domain.Entity{ID: otherID, OrgID: orgID}
		} else if err != nil {
			return nil, err
		}
		out = append(out, domain.LinkedContact{Link: link, Direction: dir, Other: other})
	}
	return out, nil
}

// UpsertEntity validates and stores a contact.
func (s *ComplianceService) UpsertEntity(ctx context.Context, orgID string, input EntityInput) (domain.Entity, error) {
	id, err := normalizeID("contact id", input.ID)
	if err != nil {
		return domain.Entity{}, err
	}
	kind, err := domain.ParseEntityKind(input.Kind)
	if err != nil {
		return domain.Entity{}, err
	}
	status, err := domain.ParseEntityStatus(input.Status)
	if err != nil {
		return domain.Entity{}, err
	}
	managerID := sanitizeString(input.SeniorManagerID)
	if managerID == id {
		return domain.Entity{}, fmt.Errorf("%w: a contact cannot be its own senior manager", domain.ErrInvalidInput)
	}

	e := domain.Entity{
		ID:              id,
		OrgID:           orgID,
		Name:            sanitizeString(input.Name),
		Kind:            kind,
		Jurisdiction:    normalizeJurisdiction(input.Jurisdiction),
		Status:          status,
		SeniorManagerID: managerID,
		Attributes:      normalizeAttributes(input.Attributes),
	}
	if err := s.store.UpsertEntity(ctx, e); err != nil {
		return domain.Entity{}, err
	}
	return e, nil
}

// AddLink validates and stores a link. It does not check acyclicity or
// ownership sums; those are reported by Validate.
func (s *ComplianceService) AddLink(ctx context.Context, orgID string, input LinkInput) (link domain.OwnershipLink, err error) {
	defer func() { s.metrics.IncLinkMutation("create", err) }()

	link, err = s.buildLink(orgID, input)
	if err != nil {
		return domain.OwnershipLink{}, err
	}
	for _, id := range []string{link.OwnerID, link.OwnedID} {
		if _, err := s.store.GetEntity(ctx, orgID, id); err != nil {
			return domain.OwnershipLink{}, err
		}
	}
	return s.store.CreateLink(ctx, link)
}

func (s *ComplianceService) buildLink(orgID string, input LinkInput) (domain.OwnershipLink, error) {
	ownerID, err := normalizeID("owner_contact_id", input.OwnerID)
	if err != nil {
		return domain.OwnershipLink{}, err
	}
	ownedID, err := normalizeID("owned_contact_id", input.OwnedID)
	if err != nil {
		return domain.OwnershipLink{}, err
	}
	if ownerID == ownedID {
		return domain.OwnershipLink{}, fmt.Errorf("%w: a contact cannot be linked to itself", domain.ErrInvalidInput)
	}
	linkType, err := domain.ParseLinkType(input.Type)
	if err != nil {
		return domain.OwnershipLink{}, err
	}
	if err := checkPercentage("percentage", input.Percentage); err != nil {
		return domain.OwnershipLink{}, err
	}
	if err := checkPercentage("voting_percentage", input.VotingPercentage); err != nil {
		return domain.OwnershipLink{}, err
	}
	kind := sanitizeString(input.RelationshipKind)
	if linkType == domain.LinkFamily && kind == "" {
		return domain.OwnershipLink{}, fmt.Errorf("%w: family links require a relationship_kind", domain.ErrInvalidInput)
	}

	id := sanitizeString(input.ID)
	if id == "" {
		id = s.newID()
	}
	created := s.nowFn().UTC()
	if input.CreatedAt != nil {
		created = input.CreatedAt.UTC()
	}

	return domain.OwnershipLink{
		ID:               id,
		OrgID:            orgID,
		OwnerID:          ownerID,
		OwnedID:          ownedID,
		Type:             linkType,
		Percentage:       input.Percentage,
		VotingPercentage: input.VotingPercentage,
		IsNominee:        input.IsNominee,
		RoleLabel:        sanitizeString(input.RoleLabel),
		RelationshipKind: kind,
		CreatedAt:        created,
	}, nil
}

// UpdateLink applies the set fields of input to an existing link. Endpoints
// and creation time never change.
func (s *ComplianceService) UpdateLink(ctx context.Context, orgID, linkID string, input LinkUpdate) (link domain.OwnershipLink, err error) {
	defer func() { s.metrics.IncLinkMutation("update", err) }()

	linkID, err = normalizeID("link id", linkID)
	if err != nil {
		return domain.OwnershipLink{}, err
	}
	link, err = s.store.GetLink(ctx, orgID, linkID)
	if err != nil {
		return domain.OwnershipLink{}, err
	}

	if input.Type != nil {
		if link.Type, err = domain.ParseLinkType(*input.Type); err != nil {
			return domain.OwnershipLink{}, err
		}
	}
	if input.Percentage != nil {
		if err := checkPercentage("percentage", input.Percentage); err != nil {
			return domain.OwnershipLink{}, err
		}
		link.Percentage = input.Percentage
	}
	if input.VotingPercentage != nil {
		if err := checkPercentage("voting_percentage", input.VotingPercentage); err != nil {
			return domain.OwnershipLink{}, err
		}
		link.VotingPercentage = input.VotingPercentage
	}
	if input.IsNominee != nil {
		link.IsNominee = *input.IsNominee
	}
	if input.RoleLabel != nil {
		link.RoleLabel = sanitizeString(*input.RoleLabel)
	}
	if input.RelationshipKind != nil {
		link.RelationshipKind = sanitizeString(*input.RelationshipKind)
	}
	if link.Type == domain.LinkFamily && link.RelationshipKind == "" {
		return domain.OwnershipLink{}, fmt.Errorf("%w: family links require a relationship_kind", domain.ErrInvalidInput)
	}
	return s.store.UpdateLink(ctx, link)
}

// RemoveLink deletes a link. Unknown ids report domain.ErrNotFound.
func (s *ComplianceService) RemoveLink(ctx context.Context, orgID, linkID string) (err error) {
	defer func() { s.metrics.IncLinkMutation("delete", err) }()

	linkID, err = normalizeID("link id", linkID)
	if err != nil {
		return err
	}
	return s.store.DeleteLink(ctx, orgID, linkID)
}

// GetLink loads one link.
func (s *ComplianceService) GetLink(ctx context.Context, orgID, linkID string) (domain.OwnershipLink, error) {
	linkID, err := normalizeID("link id", linkID)
	if err != nil {
		return domain.OwnershipLink{}, err
	}
	return s.store.GetLink(ctx, orgID, linkID)
}

// ListLinks lists links matching filter.
func (s *ComplianceService) ListLinks(ctx context.Context, orgID string, filter LinkFilter) ([]domain.OwnershipLink, error) {
	opts := repository.ListLinksOptions{
		OwnerID: sanitizeString(filter.OwnerID),
		OwnedID: sanitizeString(filter.OwnedID),
	}
	if filter.Type != "" {
		t, err := domain.ParseLinkType(filter.Type)
		if err != nil {
			return nil, err
		}
		opts.Types = []domain.LinkType{t}
	}
	return s.store.ListLinks(ctx, orgID, opts)
}

// SaveLayout stores node positions for a root contact.
func (s *ComplianceService) SaveLayout(ctx context.Context, orgID, rootID string, positions map[string]domain.Position) error {
	rootID, err := normalizeID("root_contact_id", rootID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetEntity(ctx, orgID, rootID); err != nil {
		return err
	}
	if positions == nil {
		positions = map[string]domain.Position{}
	}
	return s.store.SaveLayout(ctx, orgID, domain.Layout{RootID: rootID, Positions: positions})
}

// GetLayout returns saved positions, or an empty layout when none exist.
func (s *ComplianceService) GetLayout(ctx context.Context, orgID, rootID string) (domain.Layout, error) {
	rootID, err := normalizeID("root_contact_id", rootID)
	if err != nil {
		return domain.Layout{}, err
	}
	layout, err := s.store.GetLayout(ctx, orgID, rootID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Layout{RootID: rootID, Positions: map[string]domain.Position{}}, nil
	}
	if err != nil {
		return domain.Layout{}, err
	}
	return layout, nil
}

// RiskScore returns the stored risk of a contact, scoring and storing it
// first when none exists.
func (s *ComplianceService) RiskScore(ctx context.Context, orgID, contactID string) (domain.RiskScore, error) {
	contactID, err := normalizeID("contact_id", contactID)
	if err != nil {
		return domain.RiskScore{}, err
	}
	risk, err := s.store.GetRisk(ctx, orgID, contactID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.RecalculateRisk(ctx, orgID, contactID)
	}
	return risk, err
}

// RecalculateRisk scores a contact over every link around it and stores the
// result.
func (s *ComplianceService) RecalculateRisk(ctx context.Context, orgID, contactID string) (domain.RiskScore, error) {
	contactID, err := normalizeID("contact_id", contactID)
	if err != nil {
		return domain.RiskScore{}, err
	}
	defer s.metrics.ObserveAnalysis("risk", time.Now())

	snap, err := s.store.ConnectedGraph(ctx, orgID, contactID, domain.AllLinkTypes())
	if err != nil {
		return domain.RiskScore{}, err
	}
	risk := ownership.ScoreRisk(snap, s.riskWeights)
	risk.CalculatedAt = s.nowFn().UTC()
	if err := s.store.SaveRisk(ctx, orgID, risk); err != nil {
		return domain.RiskScore{}, err
	}
	return risk, nil
}

func (s *ComplianceService) recordUBOs(res domain.UBOResult) {
	if len(res.UBOs) == 0 {
		s.metrics.IncUBO("none")
		return
	}
	for _, item := range res.UBOs {
		switch {
		case item.IsSeniorManagerFallback:
			s.metrics.IncUBO("fallback")
		case item.IsControl:
			s.metrics.IncUBO("control")
		default:
			s.metrics.IncUBO("ownership")
		}
	}
}

func (s *ComplianceService) recordFindings(res domain.ValidationResult) {
	if !res.OwnershipSumValid {
		s.metrics.AddFindings("sum_mismatch", 1)
	}
	s.metrics.AddFindings("dead_end", len(res.DeadEnds))
	s.metrics.AddFindings("cycle", len(res.Cycles))
}
