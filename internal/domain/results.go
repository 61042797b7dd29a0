package domain

import "time"

// UBOItem is a single beneficial owner determination.
type UBOItem struct {
	ContactID               string
	Name                    string
	EffectivePercentage     *float64
	IsControl               bool
	IsSeniorManagerFallback bool
}

// UBOResult is the outcome of resolving beneficial owners for one entity.
type UBOResult struct {
	EntityID           string
	Policy             string
	UBOs               []UBOItem
	EffectiveOwnership map[string]float64
	Cycles             [][]string
	Warnings           []string
}

// DeadEnd names a company whose ownership chain cannot be traced further.
type DeadEnd struct {
	ContactID string
	Name      string
}

// ValidationResult is the structural health check of an ownership graph.
type ValidationResult struct {
	EntityID          string
	OwnershipSumValid bool
	TotalPercentage   float64
	DeadEnds          []DeadEnd
	Cycles            [][]string
	Warnings          []string
}

// NodeSumCheck is the ownership-sum check of one company in a full audit.
type NodeSumCheck struct {
	ContactID       string
	Name            string
	TotalPercentage float64
	OwnershipLinks  int
	Valid           bool
}

// AuditResult extends the root validation with a check of every company
// that has at least one ownership link in the structure.
type AuditResult struct {
	ValidationResult
	Nodes []NodeSumCheck
}

// Position is an opaque node coordinate persisted for the UI.
type Position struct {
	X float64
	Y float64
}

// Layout stores node positions for a graph rooted at RootID.
type Layout struct {
	RootID    string
	Positions map[string]Position
}

// RiskBand buckets a risk score.
type RiskBand string

const (
	RiskLow    RiskBand = "low"
	RiskMedium RiskBand = "medium"
	RiskHigh   RiskBand = "high"
)

// RiskFactors are the per-factor scores, each on the 0–100 scale.
type RiskFactors struct {
	Nationality float64
	Industry    float64
	Complexity  float64
}

// RiskScore is the weighted AML risk of one contact.
type RiskScore struct {
	ContactID    string
	Score        float64
	Band         RiskBand
	Factors      RiskFactors
	CalculatedAt time.Time
}

// GraphSnapshot is a part of an organization's graph around Root read in one
// consistent view of the store. Entities excludes Root. Links may name owners
// missing from Entities when the store holds dangling links.
type GraphSnapshot struct {
	Root     Entity
	Entities []Entity
	Links    []OwnershipLink
}

// GraphView is the node/edge set around a root entity.
type GraphView struct {
	RootID    string
	Nodes     []Entity
	Edges     []OwnershipLink
	Positions map[string]Position
}

// EntitySummary is one dashboard row.
type EntitySummary struct {
	Entity            Entity
	UBOCount          int
	OwnershipSumValid bool
	HasCycles         bool
	DeadEndCount      int
	Warnings          []string
}

// Direction tells whether a profile link points away from or into a contact.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// LinkedContact is one edge seen from a contact's profile.
type LinkedContact struct {
	Link      OwnershipLink
	Direction Direction
	Other     Entity
}

// ContactLinks groups a contact's outgoing and incoming links.
type ContactLinks struct {
	Contact  Entity
	Outgoing []LinkedContact
	Incoming []LinkedContact
}
