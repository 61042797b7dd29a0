package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vanshika/ownergraph/backend/internal/domain"
	"github.com/vanshika/ownergraph/backend/internal/graph"
)

// ListEntitiesOptions filters and paginates contact listings. A zero Limit
// returns every match.
type ListEntitiesOptions struct {
	Kind   domain.EntityKind
	Search string
	Offset int
	Limit  int
}

// ListLinksOptions filters link listings. Empty fields match everything, and
// an empty Types matches every link type.
type ListLinksOptions struct {
	OwnerID string
	OwnedID string
	Types   []domain.LinkType
}

// Repository persists contacts, links and layouts in Neo4j. Every node and
// relationship carries its orgId; mutations take a write lock on the
// organization node so writes within one organization are serialized.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// EnsureSchema creates the uniqueness constraints the repository relies on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertEntity creates or replaces a contact.
func (r *Repository) UpsertEntity(ctx context.Context, e domain.Entity) error {
	if e.OrgID == "" || e.ID == "" {
		return fmt.Errorf("%w: org id and contact id are required", domain.ErrInvalidInput)
	}
	props, err := entityProperties(e)
	if err != nil {
		return err
	}
	params := map[string]any{
		"orgId":     e.OrgID,
		"contactId": e.ID,
		"props":     props,
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertEntityCypher, params); err != nil {
		return fmt.Errorf("upsert contact %s: %w", e.ID, err)
	}
	return nil
}

// GetEntity loads one contact.
func (r *Repository) GetEntity(ctx context.Context, orgID, id string) (domain.Entity, error) {
	res, err := r.client.ExecuteRead(ctx, getEntityCypher, map[string]any{
		"orgId":     orgID,
		"contactId": id,
	})
	if err != nil {
		return domain.Entity{}, fmt.Errorf("get contact %s: %w", id, err)
	}
	record := res.First()
	if record == nil {
		return domain.Entity{}, fmt.Errorf("contact %s: %w", id, domain.ErrNotFound)
	}
	return entityFromRecord(orgID, record)
}

// ListEntities returns contacts ordered by id.
func (r *Repository) ListEntities(ctx context.Context, orgID string, opts ListEntitiesOptions) ([]domain.Entity, error) {
	params := map[string]any{
		"orgId":  orgID,
		"kind":   string(opts.Kind),
		"search": strings.ToLower(strings.TrimSpace(opts.Search)),
	}
	page := ""
	if opts.Limit > 0 {
		offset := opts.Offset
		if offset < 0 {
			offset = 0
		}
		params["skip"] = offset
		params["limit"] = opts.Limit
		page = "SKIP $skip LIMIT $limit"
	}

	res, err := r.client.ExecuteRead(ctx, fmt.Sprintf(listEntitiesCypherTemplate, page), params)
	if err != nil {
		return nil, fmt.Errorf("list contacts query: %w", err)
	}
	entities := make([]domain.Entity, 0, len(res.Records))
	for _, record := range res.Records {
		e, err := entityFromRecord(orgID, record)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// CreateLink stores a link between two existing contacts.
func (r *Repository) CreateLink(ctx context.Context, link domain.OwnershipLink) (domain.OwnershipLink, error) {
	if link.ID == "" {
		return domain.OwnershipLink{}, fmt.Errorf("%w: link id is required", domain.ErrInvalidInput)
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	params := map[string]any{
		"orgId":   link.OrgID,
		"ownerId": link.OwnerID,
		"ownedId": link.OwnedID,
		"linkId":  link.ID,
		"props":   linkProperties(link),
	}
	res, err := r.client.ExecuteWrite(ctx, createLinkCypher, params)
	if errors.Is(err, graph.ErrConstraintViolation) {
		return domain.OwnershipLink{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, link.ID, errLinkExists)
	}
	if err != nil {
		return domain.OwnershipLink{}, fmt.Errorf("create link %s: %w", link.ID, err)
	}
	if res.First() == nil {
		return domain.OwnershipLink{}, fmt.Errorf("link %s endpoints: %w", link.ID, domain.ErrNotFound)
	}
	return link, nil
}

// UpdateLink replaces the attributes of an existing link. Endpoints, id and
// creation time are kept from the stored link.
func (r *Repository) UpdateLink(ctx context.Context, link domain.OwnershipLink) (domain.OwnershipLink, error) {
	props := linkProperties(link)
	delete(props, "createdAt")
	for _, key := range []string{"percentage", "votingPercentage"} {
		if _, ok := props[key]; !ok {
			props[key] = nil
		}
	}
	res, err := r.client.ExecuteWrite(ctx, updateLinkCypher, map[string]any{
		"orgId":  link.OrgID,
		"linkId": link.ID,
		"props":  props,
	})
	if err != nil {
		return domain.OwnershipLink{}, fmt.Errorf("update link %s: %w", link.ID, err)
	}
	record := res.First()
	if record == nil {
		return domain.OwnershipLink{}, fmt.Errorf("link %s: %w", link.ID, domain.ErrNotFound)
	}
	return linkFromRecord(link.OrgID, record)
}

// DeleteLink removes a link by id.
func (r *Repository) DeleteLink(ctx context.Context, orgID, id string) error {
	res, err := r.client.ExecuteWrite(ctx, deleteLinkCypher, map[string]any{
		"orgId":  orgID,
		"linkId": id,
	})
	if err != nil {
		return fmt.Errorf("delete link %s: %w", id, err)
	}
	record := res.First()
	if record == nil || toInt64(record["deleted"]) == 0 {
		return fmt.Errorf("link %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetLink loads one link by id.
func (r *Repository) GetLink(ctx context.Context, orgID, id string) (domain.OwnershipLink, error) {
	res, err := r.client.ExecuteRead(ctx, getLinkCypher, map[string]any{
		"orgId":  orgID,
		"linkId": id,
	})
	if err != nil {
		return domain.OwnershipLink{}, fmt.Errorf("get link %s: %w", id, err)
	}
	record := res.First()
	if record == nil {
		return domain.OwnershipLink{}, fmt.Errorf("link %s: %w", id, domain.ErrNotFound)
	}
	return linkFromRecord(orgID, record)
}

// ListLinks returns links matching opts in creation order.
func (r *Repository) ListLinks(ctx context.Context, orgID string, opts ListLinksOptions) ([]domain.OwnershipLink, error) {
	params := map[string]any{
		"orgId":   orgID,
		"ownerId": strings.TrimSpace(opts.OwnerID),
		"ownedId": strings.TrimSpace(opts.OwnedID),
		"types":   typeNames(opts.Types),
	}
	return r.queryLinks(ctx, orgID, listLinksCypher, params, "list links")
}

// IncomingLinks returns links pointing at id. No types means ownership only.
func (r *Repository) IncomingLinks(ctx context.Context, orgID, id string, types ...domain.LinkType) ([]domain.OwnershipLink, error) {
	params := map[string]any{
		"orgId":     orgID,
		"contactId": id,
		"types":     typeNames(domain.NormalizeLinkTypes(types)),
	}
	return r.queryLinks(ctx, orgID, incomingLinksCypher, params, "incoming links of "+id)
}

// OutgoingLinks returns links leaving id. No types means ownership only.
func (r *Repository) OutgoingLinks(ctx context.Context, orgID, id string, types ...domain.LinkType) ([]domain.OwnershipLink, error) {
	params := map[string]any{
		"orgId":     orgID,
		"contactId": id,
		"types":     typeNames(domain.NormalizeLinkTypes(types)),
	}
	return r.queryLinks(ctx, orgID, outgoingLinksCypher, params, "outgoing links of "+id)
}

func (r *Repository) queryLinks(ctx context.Context, orgID, cypher string, params map[string]any, what string) ([]domain.OwnershipLink, error) {
	res, err := r.client.ExecuteRead(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	links := make([]domain.OwnershipLink, 0, len(res.Records))
	for _, record := range res.Records {
		link, err := linkFromRecord(orgID, record)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

// UpwardGraph walks from rootID toward owners over ownership and control
// links in a single read transaction. Every compliance link pointing at a
// reached contact is returned with its owner.
func (r *Repository) UpwardGraph(ctx context.Context, orgID, rootID string) (domain.GraphSnapshot, error) {
	params := map[string]any{
		"orgId":     orgID,
		"rootId":    rootID,
		"walkTypes": typeNames([]domain.LinkType{domain.LinkOwnership, domain.LinkControl}),
		"types":     typeNames(domain.ComplianceLinkTypes()),
	}
	return r.readSnapshot(ctx, orgID, rootID, upwardGraphCypher, params, "upward graph")
}

// ConnectedGraph collects the contacts reachable from rootID over links of
// the given types in either direction, and the links among them, in a single
// read transaction. No types means ownership only.
func (r *Repository) ConnectedGraph(ctx context.Context, orgID, rootID string, types []domain.LinkType) (domain.GraphSnapshot, error) {
	params := map[string]any{
		"orgId":  orgID,
		"rootId": rootID,
		"types":  typeNames(domain.NormalizeLinkTypes(types)),
	}
	snap, err := r.readSnapshot(ctx, orgID, rootID, connectedGraphCypher, params, "connected graph")
	if err != nil {
		return domain.GraphSnapshot{}, err
	}
	sort.Slice(snap.Entities, func(i, j int) bool { return snap.Entities[i].ID < snap.Entities[j].ID })
	return snap, nil
}

func (r *Repository) readSnapshot(ctx context.Context, orgID, rootID, cypher string, params map[string]any, what string) (domain.GraphSnapshot, error) {
	res, err := r.client.ExecuteRead(ctx, cypher, params)
	if err != nil {
		return domain.GraphSnapshot{}, fmt.Errorf("%s of %s: %w", what, rootID, err)
	}
	record := res.First()
	if record == nil {
		return domain.GraphSnapshot{}, fmt.Errorf("contact %s: %w", rootID, domain.ErrNotFound)
	}

	root, err := entityFromRecord(orgID, toRecord(record["root"]))
	if err != nil {
		return domain.GraphSnapshot{}, err
	}
	snap := domain.GraphSnapshot{Root: root}
	for _, raw := range toList(record["entities"]) {
		e, err := entityFromRecord(orgID, toRecord(raw))
		if err != nil {
			return domain.GraphSnapshot{}, err
		}
		snap.Entities = append(snap.Entities, e)
	}
	for _, raw := range toList(record["links"]) {
		link, err := linkFromRecord(orgID, toRecord(raw))
		if err != nil {
			return domain.GraphSnapshot{}, err
		}
		snap.Links = append(snap.Links, link)
	}
	return snap, nil
}

// SaveLayout stores node positions for a root contact.
func (r *Repository) SaveLayout(ctx context.Context, orgID string, layout domain.Layout) error {
	positions, err := json.Marshal(layout.Positions)
	if err != nil {
		return fmt.Errorf("encode layout positions: %w", err)
	}
	_, err = r.client.ExecuteWrite(ctx, saveLayoutCypher, map[string]any{
		"orgId":         orgID,
		"rootContactId": layout.RootID,
		"positions":     string(positions),
		"updatedAt":     formatTime(time.Now()),
	})
	if err != nil {
		return fmt.Errorf("save layout %s: %w", layout.RootID, err)
	}
	return nil
}

// GetLayout loads saved positions for a root contact.
func (r *Repository) GetLayout(ctx context.Context, orgID, rootID string) (domain.Layout, error) {
	res, err := r.client.ExecuteRead(ctx, getLayoutCypher, map[string]any{
		"orgId":         orgID,
		"rootContactId": rootID,
	})
	if err != nil {
		return domain.Layout{}, fmt.Errorf("get layout %s: %w", rootID, err)
	}
	record := res.First()
	if record == nil {
		return domain.Layout{}, fmt.Errorf("layout %s: %w", rootID, domain.ErrNotFound)
	}
	layout := domain.Layout{RootID: rootID, Positions: map[string]domain.Position{}}
	if raw := toString(record["positions"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &layout.Positions); err != nil {
			return domain.Layout{}, fmt.Errorf("decode layout %s: %w", rootID, err)
		}
	}
	return layout, nil
}

// SaveRisk stores the latest risk score of a contact, replacing any earlier one.
func (r *Repository) SaveRisk(ctx context.Context, orgID string, risk domain.RiskScore) error {
	_, err := r.client.ExecuteWrite(ctx, saveRiskCypher, map[string]any{
		"orgId":        orgID,
		"contactId":    risk.ContactID,
		"score":        risk.Score,
		"band":         string(risk.Band),
		"nationality":  risk.Factors.Nationality,
		"industry":     risk.Factors.Industry,
		"complexity":   risk.Factors.Complexity,
		"calculatedAt": formatTime(risk.CalculatedAt),
	})
	if err != nil {
		return fmt.Errorf("save risk of %s: %w", risk.ContactID, err)
	}
	return nil
}

// GetRisk loads the stored risk score of a contact.
func (r *Repository) GetRisk(ctx context.Context, orgID, contactID string) (domain.RiskScore, error) {
	res, err := r.client.ExecuteRead(ctx, getRiskCypher, map[string]any{
		"orgId":     orgID,
		"contactId": contactID,
	})
	if err != nil {
		return domain.RiskScore{}, fmt.Errorf("get risk of %s: %w", contactID, err)
	}
	record := res.First()
	if record == nil {
		return domain.RiskScore{}, fmt.Errorf("risk of %s: %w", contactID, domain.ErrNotFound)
	}
	risk := domain.RiskScore{
		ContactID: contactID,
		Score:     toFloat64(record["score"]),
		Band:      domain.RiskBand(toString(record["band"])),
		Factors: domain.RiskFactors{
			Nationality: toFloat64(record["nationality"]),
			Industry:    toFloat64(record["industry"]),
			Complexity:  toFloat64(record["complexity"]),
		},
	}
	if at := toTimePtr(record["calculatedAt"]); at != nil {
		risk.CalculatedAt = *at
	}
	return risk, nil
}

func entityProperties(e domain.Entity) (map[string]any, error) {
	props := map[string]any{
		"name":            e.Name,
		"kind":            string(e.Kind),
		"jurisdiction":    e.Jurisdiction,
		"status":          string(e.Status),
		"seniorManagerId": e.SeniorManagerID,
		"updatedAt":       formatTime(time.Now()),
	}
	if len(e.Attributes) > 0 {
		serialized, err := json.Marshal(e.Attributes)
		if err != nil {
			return nil, fmt.Errorf("encode attributes of %s: %w", e.ID, err)
		}
		props["attributesJson"] = string(serialized)
	} else {
		props["attributesJson"] = nil
	}
	return props, nil
}

func entityFromRecord(orgID string, record graph.Record) (domain.Entity, error) {
	id := toString(record["contactId"])
	kind, err := domain.ParseEntityKind(toString(record["kind"]))
	if err != nil {
		return domain.Entity{}, fmt.Errorf("decode contact %s: %w", id, err)
	}
	status, err := domain.ParseEntityStatus(toString(record["status"]))
	if err != nil {
		return domain.Entity{}, fmt.Errorf("decode contact %s: %w", id, err)
	}
	e := domain.Entity{
		ID:              id,
		OrgID:           orgID,
		Name:            toString(record["name"]),
		Kind:            kind,
		Jurisdiction:    toString(record["jurisdiction"]),
		Status:          status,
		SeniorManagerID: toString(record["seniorManagerId"]),
	}
	if raw := toString(record["attributesJson"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Attributes); err != nil {
			return domain.Entity{}, fmt.Errorf("decode attributes of %s: %w", id, err)
		}
	}
	return e, nil
}

func linkProperties(l domain.OwnershipLink) map[string]any {
	props := map[string]any{
		"orgId":            l.OrgID,
		"linkType":         string(l.Type),
		"isNominee":        l.IsNominee,
		"roleLabel":        l.RoleLabel,
		"relationshipKind": l.RelationshipKind,
		"createdAt":        formatTime(l.CreatedAt),
	}
	if l.Percentage != nil {
		props["percentage"] = *l.Percentage
	}
	if l.VotingPercentage != nil {
		props["votingPercentage"] = *l.VotingPercentage
	}
	return props
}

func linkFromRecord(orgID string, record graph.Record) (domain.OwnershipLink, error) {
	id := toString(record["linkId"])
	linkType, err := domain.ParseLinkType(toString(record["linkType"]))
	if err != nil {
		return domain.OwnershipLink{}, fmt.Errorf("decode link %s: %w", id, err)
	}
	link := domain.OwnershipLink{
		ID:               id,
		OrgID:            orgID,
		OwnerID:          toString(record["ownerId"]),
		OwnedID:          toString(record["ownedId"]),
		Type:             linkType,
		Percentage:       toFloat64Ptr(record["percentage"]),
		VotingPercentage: toFloat64Ptr(record["votingPercentage"]),
		IsNominee:        toBool(record["isNominee"]),
		RoleLabel:        toString(record["roleLabel"]),
		RelationshipKind: toString(record["relationshipKind"]),
	}
	if created := toTimePtr(record["createdAt"]); created != nil {
		link.CreatedAt = *created
	}
	return link, nil
}

func typeNames(types []domain.LinkType) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64Ptr(val any) *float64 {
	switch v := val.(type) {
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func toFloat64(val any) float64 {
	if f := toFloat64Ptr(val); f != nil {
		return *f
	}
	return 0
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func toRecord(val any) graph.Record {
	switch v := val.(type) {
	case graph.Record:
		return v
	case map[string]any:
		return graph.Record(v)
	default:
		return graph.Record{}
	}
}

func toList(val any) []any {
	list, _ := val.([]any)
	return list
}

func toBool(val any) bool {
	b, _ := val.(bool)
	return b
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}

// errLinkExists is returned by stores that detect a reused link id.
var errLinkExists = errors.New("link id already exists")

var schemaStatements = []string{
	`CREATE CONSTRAINT organization_key IF NOT EXISTS FOR (o:Organization) REQUIRE o.orgId IS UNIQUE`,
	`CREATE CONSTRAINT contact_key IF NOT EXISTS FOR (c:Contact) REQUIRE (c.orgId, c.contactId) IS UNIQUE`,
	`CREATE CONSTRAINT layout_key IF NOT EXISTS FOR (g:GraphLayout) REQUIRE (g.orgId, g.rootContactId) IS UNIQUE`,
	`CREATE CONSTRAINT risk_key IF NOT EXISTS FOR (r:ComplianceRisk) REQUIRE (r.orgId, r.contactId) IS UNIQUE`,
	`CREATE CONSTRAINT link_key IF NOT EXISTS FOR ()-[l:LINK]-() REQUIRE l.linkId IS UNIQUE`,
}

// lockOrganizationCypher opens every mutation. Writing a property on the
// organization node takes its write lock for the rest of the transaction.
const lockOrganizationCypher = `
MERGE (o:Organization {orgId: $orgId})
SET o.lastMutationAt = datetime()
WITH o
`

const upsertEntityCypher = lockOrganizationCypher + `
MERGE (c:Contact {orgId: $orgId, contactId: $contactId})
SET c += $props
MERGE (o)-[:HAS_CONTACT]->(c)
RETURN c.contactId AS contactId
`

const entityProjection = `
RETURN c.contactId AS contactId,
       c.name AS name,
       c.kind AS kind,
       c.jurisdiction AS jurisdiction,
       c.status AS status,
       c.seniorManagerId AS seniorManagerId,
       c.attributesJson AS attributesJson
`

const getEntityCypher = `
MATCH (c:Contact {orgId: $orgId, contactId: $contactId})
` + entityProjection

const listEntitiesCypherTemplate = `
MATCH (c:Contact {orgId: $orgId})
WHERE ($kind = "" OR c.kind = $kind)
  AND ($search = "" OR toLower(c.name) CONTAINS $search OR toLower(c.contactId) CONTAINS $search)
` + entityProjection + `ORDER BY c.contactId
%s
`

const createLinkCypher = lockOrganizationCypher + `
MATCH (owner:Contact {orgId: $orgId, contactId: $ownerId})
MATCH (owned:Contact {orgId: $orgId, contactId: $ownedId})
CREATE (owner)-[l:LINK {linkId: $linkId}]->(owned)
SET l += $props
RETURN l.linkId AS linkId
`

const deleteLinkCypher = lockOrganizationCypher + `
OPTIONAL MATCH (:Contact {orgId: $orgId})-[l:LINK {linkId: $linkId}]->(:Contact {orgId: $orgId})
WITH collect(l) AS links
FOREACH (l IN links | DELETE l)
RETURN size(links) AS deleted
`

const linkProjection = `
RETURN l.linkId AS linkId,
       owner.contactId AS ownerId,
       owned.contactId AS ownedId,
       l.linkType AS linkType,
       l.percentage AS percentage,
       l.votingPercentage AS votingPercentage,
       l.isNominee AS isNominee,
       l.roleLabel AS roleLabel,
       l.relationshipKind AS relationshipKind,
       l.createdAt AS createdAt
ORDER BY datetime(l.createdAt), l.linkId
`

const getLinkCypher = `
MATCH (owner:Contact {orgId: $orgId})-[l:LINK {linkId: $linkId}]->(owned:Contact {orgId: $orgId})
` + linkProjection

const listLinksCypher = `
MATCH (owner:Contact {orgId: $orgId})-[l:LINK]->(owned:Contact {orgId: $orgId})
WHERE ($ownerId = "" OR owner.contactId = $ownerId)
  AND ($ownedId = "" OR owned.contactId = $ownedId)
  AND (size($types) = 0 OR l.linkType IN $types)
` + linkProjection

const incomingLinksCypher = `
MATCH (owner:Contact {orgId: $orgId})-[l:LINK]->(owned:Contact {orgId: $orgId, contactId: $contactId})
WHERE l.linkType IN $types
` + linkProjection

const outgoingLinksCypher = `
MATCH (owner:Contact {orgId: $orgId, contactId: $contactId})-[l:LINK]->(owned:Contact {orgId: $orgId})
WHERE l.linkType IN $types
` + linkProjection

const updateLinkCypher = lockOrganizationCypher + `
MATCH (owner:Contact {orgId: $orgId})-[l:LINK {linkId: $linkId}]->(owned:Contact {orgId: $orgId})
SET l += $props
` + linkProjection

const contactMap = `{.contactId, .name, .kind, .jurisdiction, .status, .seniorManagerId, .attributesJson}`

const collectedLinkMap = `CASE WHEN l IS NULL THEN NULL ELSE {
         linkId: l.linkId,
         ownerId: owner.contactId,
         ownedId: owned.contactId,
         linkType: l.linkType,
         percentage: l.percentage,
         votingPercentage: l.votingPercentage,
         isNominee: l.isNominee,
         roleLabel: l.roleLabel,
         relationshipKind: l.relationshipKind,
         createdAt: l.createdAt
       } END`

// upwardGraphCypher returns one row, or none when the root is missing.
const upwardGraphCypher = `
MATCH (root:Contact {orgId: $orgId, contactId: $rootId})
OPTIONAL MATCH (root)<-[walk:LINK*1..]-(up:Contact {orgId: $orgId})
WHERE all(w IN walk WHERE w.linkType IN $walkTypes)
WITH root, collect(DISTINCT up) AS above
WITH root, [root] + [u IN above WHERE u <> root] AS reached
UNWIND reached AS owned
OPTIONAL MATCH (owner:Contact {orgId: $orgId})-[l:LINK]->(owned)
WHERE l.linkType IN $types
WITH root, owner, owned, l
ORDER BY datetime(l.createdAt), l.linkId
WITH root,
     collect(DISTINCT owner) AS owners,
     collect(` + collectedLinkMap + `) AS links
RETURN root ` + contactMap + ` AS root,
       [o IN owners WHERE o <> root | o ` + contactMap + `] AS entities,
       links
`

// connectedGraphCypher returns one row, or none when the root is missing.
const connectedGraphCypher = `
MATCH (root:Contact {orgId: $orgId, contactId: $rootId})
OPTIONAL MATCH (root)-[walk:LINK*1..]-(near:Contact {orgId: $orgId})
WHERE all(w IN walk WHERE w.linkType IN $types)
WITH root, collect(DISTINCT near) AS around
WITH root, [n IN around WHERE n <> root] AS others
WITH root, others, [root] + others AS reached
UNWIND reached AS owner
OPTIONAL MATCH (owner)-[l:LINK]->(owned:Contact {orgId: $orgId})
WHERE l.linkType IN $types AND owned IN reached
WITH root, others, owner, owned, l
ORDER BY datetime(l.createdAt), l.linkId
WITH root, others, collect(` + collectedLinkMap + `) AS links
RETURN root ` + contactMap + ` AS root,
       [o IN others | o ` + contactMap + `] AS entities,
       links
`

const saveLayoutCypher = lockOrganizationCypher + `
MERGE (g:GraphLayout {orgId: $orgId, rootContactId: $rootContactId})
SET g.positions = $positions,
    g.updatedAt = $updatedAt
MERGE (o)-[:HAS_LAYOUT]->(g)
RETURN g.rootContactId AS rootContactId
`

const getLayoutCypher = `
MATCH (g:GraphLayout {orgId: $orgId, rootContactId: $rootContactId})
RETURN g.positions AS positions
`

// saveRiskCypher writes nothing when the contact is gone.
const saveRiskCypher = lockOrganizationCypher + `
MATCH (c:Contact {orgId: $orgId, contactId: $contactId})
MERGE (r:ComplianceRisk {orgId: $orgId, contactId: $contactId})
SET r.score = $score,
    r.band = $band,
    r.nationality = $nationality,
    r.industry = $industry,
    r.complexity = $complexity,
    r.calculatedAt = $calculatedAt
MERGE (c)-[:HAS_RISK]->(r)
RETURN r.contactId AS contactId
`

const getRiskCypher = `
MATCH (r:ComplianceRisk {orgId: $orgId, contactId: $contactId})
RETURN r.score AS score,
       r.band AS band,
       r.nationality AS nationality,
       r.industry AS industry,
       r.complexity AS complexity,
       r.calculatedAt AS calculatedAt
`
