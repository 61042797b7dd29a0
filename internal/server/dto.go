package server

import (
	"github.com/vanshika/ownergraph/backend/internal/domain"
	"github.com/vanshika/ownergraph/backend/internal/service"
)

// --- Request DTOs ---

type contactRequest struct {
	Name            string            `json:"name"`
	Kind            string            `json:"kind"`
	Jurisdiction    string            `json:"jurisdiction"`
	Status          string            `json:"status"`
	SeniorManagerID string            `json:"senior_manager_id"`
	Attributes      map[string]string `json:"attributes"`
}

type linkRequest struct {
	ID               string   `json:"id"`
	OwnerContactID   string   `json:"owner_contact_id"`
	OwnedContactID   string   `json:"owned_contact_id"`
	LinkType         string   `json:"link_type"`
	Percentage       *float64 `json:"percentage"`
	VotingPercentage *float64 `json:"voting_percentage"`
	IsNominee        bool     `json:"is_nominee"`
	RoleLabel        string   `json:"role_label"`
	RelationshipKind string   `json:"relationship_kind"`
	CreatedAt        string   `json:"created_at"`
}

type linkUpdateRequest struct {
	LinkType         *string  `json:"link_type"`
	Percentage       *float64 `json:"percentage"`
	VotingPercentage *float64 `json:"voting_percentage"`
	IsNominee        *bool    `json:"is_nominee"`
	RoleLabel        *string  `json:"role_label"`
	RelationshipKind *string  `json:"relationship_kind"`
}

type positionDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type layoutRequest struct {
	RootContactID string                 `json:"root_contact_id"`
	Positions     map[string]positionDTO `json:"positions"`
}

// --- Response DTOs ---

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type contactResponse struct {
	ContactID       string            `json:"contact_id"`
	Name            string            `json:"name"`
	Kind            string            `json:"kind"`
	Jurisdiction    string            `json:"jurisdiction,omitempty"`
	Status          string            `json:"status"`
	SeniorManagerID string            `json:"senior_manager_id,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

type linkResponse struct {
	ID               string   `json:"id"`
	OwnerContactID   string   `json:"owner_contact_id"`
	OwnedContactID   string   `json:"owned_contact_id"`
	LinkType         string   `json:"link_type"`
	Percentage       *float64 `json:"percentage"`
	VotingPercentage *float64 `json:"voting_percentage"`
	IsNominee        bool     `json:"is_nominee"`
	RoleLabel        string   `json:"role_label,omitempty"`
	RelationshipKind string   `json:"relationship_kind,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

type riskFactorsResponse struct {
	Nationality float64 `json:"nationality"`
	Industry    float64 `json:"industry"`
	Complexity  float64 `json:"complexity"`
}

type riskResponse struct {
	ContactID        string              `json:"contact_id"`
	RiskScore        float64             `json:"risk_score"`
	RiskBand         string              `json:"risk_band"`
	Factors          riskFactorsResponse `json:"factors"`
	LastCalculatedAt string              `json:"last_calculated_at"`
}

type linkListResponse struct {
	Links []linkResponse `json:"links"`
}

type graphResponse struct {
	RootContactID string                 `json:"root_contact_id"`
	Nodes         []contactResponse      `json:"nodes"`
	Edges         []linkResponse         `json:"edges"`
	Positions     map[string]positionDTO `json:"positions"`
}

type layoutResponse struct {
	RootContactID string                 `json:"root_contact_id"`
	Positions     map[string]positionDTO `json:"positions"`
}

type uboItemResponse struct {
	ContactID               string   `json:"contact_id"`
	Name                    string   `json:"name"`
	EffectivePercentage     *float64 `json:"effective_percentage"`
	IsControl               bool     `json:"is_control"`
	IsSeniorManagerFallback bool     `json:"is_senior_manager_fallback"`
}

type uboResponse struct {
	EntityContactID    string             `json:"entity_contact_id"`
	Policy             string             `json:"policy"`
	UBOs               []uboItemResponse  `json:"ubos"`
	EffectiveOwnership map[string]float64 `json:"effective_ownership"`
	Cycles             [][]string         `json:"cycles"`
	Warnings           []string           `json:"warnings"`
}

type deadEndResponse struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
}

type validationResponse struct {
	EntityContactID   string            `json:"entity_contact_id"`
	OwnershipSumValid bool              `json:"ownership_sum_valid"`
	TotalPercentage   float64           `json:"total_percentage"`
	DeadEnds          []deadEndResponse `json:"dead_ends"`
	Cycles            [][]string        `json:"cycles"`
	Warnings          []string          `json:"warnings"`
}

type nodeSumResponse struct {
	ContactID       string  `json:"contact_id"`
	Name            string  `json:"name"`
	TotalPercentage float64 `json:"total_percentage"`
	OwnershipLinks  int     `json:"ownership_links"`
	Valid           bool    `json:"valid"`
}

type auditResponse struct {
	validationResponse
	Nodes []nodeSumResponse `json:"nodes"`
}

type dashboardEntityResponse struct {
	ContactID         string   `json:"contact_id"`
	Name              string   `json:"name"`
	Jurisdiction      string   `json:"jurisdiction,omitempty"`
	Status            string   `json:"status"`
	UBOCount          int      `json:"ubo_count"`
	OwnershipSumValid bool     `json:"ownership_sum_valid"`
	HasCycles         bool     `json:"has_cycles"`
	DeadEndCount      int      `json:"dead_end_count"`
	Warnings          []string `json:"warnings"`
}

type dashboardResponse struct {
	Entities []dashboardEntityResponse `json:"entities"`
}

type linkedContactResponse struct {
	Link      linkResponse    `json:"link"`
	Direction string          `json:"direction"`
	Contact   contactResponse `json:"contact"`
}

type contactLinksResponse struct {
	Contact  contactResponse         `json:"contact"`
	Outgoing []linkedContactResponse `json:"outgoing"`
	Incoming []linkedContactResponse `json:"incoming"`
}

// --- Mapping ---

func (req contactRequest) toServiceInput(id string) service.EntityInput {
	return service.EntityInput{
		ID:              id,
		Name:            req.Name,
		Kind:            req.Kind,
		Jurisdiction:    req.Jurisdiction,
		Status:          req.Status,
		SeniorManagerID: req.SeniorManagerID,
		Attributes:      req.Attributes,
	}
}

func (req linkRequest) toServiceInput() (service.LinkInput, error) {
	created, err := parseTimePtr("created_at", req.CreatedAt)
	if err != nil {
		return service.LinkInput{}, err
	}
	return service.LinkInput{
		ID:               req.ID,
		OwnerID:          req.OwnerContactID,
		OwnedID:          req.OwnedContactID,
		Type:             req.LinkType,
		Percentage:       req.Percentage,
		VotingPercentage: req.VotingPercentage,
		IsNominee:        req.IsNominee,
		RoleLabel:        req.RoleLabel,
		RelationshipKind: req.RelationshipKind,
		CreatedAt:        created,
	}, nil
}

func (req linkUpdateRequest) toServiceInput() service.LinkUpdate {
	return service.LinkUpdate{
		Type:             req.LinkType,
		Percentage:       req.Percentage,
		VotingPercentage: req.VotingPercentage,
		IsNominee:        req.IsNominee,
		RoleLabel:        req.RoleLabel,
		RelationshipKind: req.RelationshipKind,
	}
}

func toRiskResponse(risk domain.RiskScore) riskResponse {
	return riskResponse{
		ContactID: risk.ContactID,
		RiskScore: risk.Score,
		RiskBand:  string(risk.Band),
		Factors: riskFactorsResponse{
			Nationality: risk.Factors.Nationality,
			Industry:    risk.Factors.Industry,
			Complexity:  risk.Factors.Complexity,
		},
		LastCalculatedAt: formatTime(risk.CalculatedAt),
	}
}

func toContactResponse(e domain.Entity) contactResponse {
	return contactResponse{
		ContactID:       e.ID,
		Name:            e.Name,
		Kind:            string(e.Kind),
		Jurisdiction:    e.Jurisdiction,
		Status:          string(e.Status),
		SeniorManagerID: e.SeniorManagerID,
		Attributes:      e.Attributes,
	}
}

func toLinkResponse(l domain.OwnershipLink) linkResponse {
	return linkResponse{
		ID:               l.ID,
		OwnerContactID:   l.OwnerID,
		OwnedContactID:   l.OwnedID,
		LinkType:         string(l.Type),
		Percentage:       l.Percentage,
		VotingPercentage: l.VotingPercentage,
		IsNominee:        l.IsNominee,
		RoleLabel:        l.RoleLabel,
		RelationshipKind: l.RelationshipKind,
		CreatedAt:        formatTime(l.CreatedAt),
	}
}

func toPositions(positions map[string]domain.Position) map[string]positionDTO {
	out := make(map[string]positionDTO, len(positions))
	for id, p := range positions {
		out[id] = positionDTO{X: p.X, Y: p.Y}
	}
	return out
}

func toGraphResponse(view domain.GraphView) graphResponse {
	resp := graphResponse{
		RootContactID: view.RootID,
		Nodes:         make([]contactResponse, 0, len(view.Nodes)),
		Edges:         make([]linkResponse, 0, len(view.Edges)),
		Positions:     toPositions(view.Positions),
	}
	for _, n := range view.Nodes {
		resp.Nodes = append(resp.Nodes, toContactResponse(n))
	}
	for _, e := range view.Edges {
		resp.Edges = append(resp.Edges, toLinkResponse(e))
	}
	return resp
}

func toLayoutResponse(layout domain.Layout) layoutResponse {
	return layoutResponse{RootContactID: layout.RootID, Positions: toPositions(layout.Positions)}
}

func toUBOResponse(res domain.UBOResult) uboResponse {
	resp := uboResponse{
		EntityContactID:    res.EntityID,
		Policy:             res.Policy,
		UBOs:               make([]uboItemResponse, 0, len(res.UBOs)),
		EffectiveOwnership: make(map[string]float64, len(res.EffectiveOwnership)),
		Cycles:             nonNilCycles(res.Cycles),
		Warnings:           nonNilStrings(res.Warnings),
	}
	for _, item := range res.UBOs {
		resp.UBOs = append(resp.UBOs, uboItemResponse{
			ContactID:               item.ContactID,
			Name:                    item.Name,
			EffectivePercentage:     round2Ptr(item.EffectivePercentage),
			IsControl:               item.IsControl,
			IsSeniorManagerFallback: item.IsSeniorManagerFallback,
		})
	}
	for id, pct := range res.EffectiveOwnership {
		resp.EffectiveOwnership[id] = round2(pct)
	}
	return resp
}

func toValidationResponse(res domain.ValidationResult) validationResponse {
	resp := validationResponse{
		EntityContactID:   res.EntityID,
		OwnershipSumValid: res.OwnershipSumValid,
		TotalPercentage:   round2(res.TotalPercentage),
		DeadEnds:          make([]deadEndResponse, 0, len(res.DeadEnds)),
		Cycles:            nonNilCycles(res.Cycles),
		Warnings:          nonNilStrings(res.Warnings),
	}
	for _, d := range res.DeadEnds {
		resp.DeadEnds = append(resp.DeadEnds, deadEndResponse{ContactID: d.ContactID, Name: d.Name})
	}
	return resp
}

func toAuditResponse(res domain.AuditResult) auditResponse {
	resp := auditResponse{
		validationResponse: toValidationResponse(res.ValidationResult),
		Nodes:              make([]nodeSumResponse, 0, len(res.Nodes)),
	}
	for _, n := range res.Nodes {
		resp.Nodes = append(resp.Nodes, nodeSumResponse{
			ContactID:       n.ContactID,
			Name:            n.Name,
			TotalPercentage: round2(n.TotalPercentage),
			OwnershipLinks:  n.OwnershipLinks,
			Valid:           n.Valid,
		})
	}
	return resp
}

func toDashboardEntity(row domain.EntitySummary) dashboardEntityResponse {
	return dashboardEntityResponse{
		ContactID:         row.Entity.ID,
		Name:              row.Entity.Name,
		Jurisdiction:      row.Entity.Jurisdiction,
		Status:            string(row.Entity.Status),
		UBOCount:          row.UBOCount,
		OwnershipSumValid: row.OwnershipSumValid,
		HasCycles:         row.HasCycles,
		DeadEndCount:      row.DeadEndCount,
		Warnings:          nonNilStrings(row.Warnings),
	}
}

func toContactLinksResponse(links domain.ContactLinks) contactLinksResponse {
	resp := contactLinksResponse{
		Contact:  toContactResponse(links.Contact),
		Outgoing: make([]linkedContactResponse, 0, len(links.Outgoing)),
		Incoming: make([]linkedContactResponse, 0, len(links.Incoming)),
	}
	for _, l := range links.Outgoing {
		resp.Outgoing = append(resp.Outgoing, toLinkedContact(l))
	}
	for _, l := range links.Incoming {
		resp.Incoming = append(resp.Incoming, toLinkedContact(l))
	}
	return resp
}

func toLinkedContact(l domain.LinkedContact) linkedContactResponse {
	return linkedContactResponse{
		Link:      toLinkResponse(l.Link),
		Direction: string(l.Direction),
		Contact:   toContactResponse(l.Other),
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilCycles(cycles [][]string) [][]string {
	if cycles == nil {
		return [][]string{}
	}
	return cycles
}
