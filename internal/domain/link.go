package domain

import (
	"fmt"
	"strings"
	"time"
)

// LinkType is the closed set of relationships an edge can carry.
type LinkType string

const (
	LinkOwnership    LinkType = "ownership"
	LinkControl      LinkType = "control"
	LinkDirectorship LinkType = "directorship"
	LinkManages      LinkType = "manages"
	LinkFamily       LinkType = "family"
	LinkEmployee     LinkType = "employee"
)

// LinkRole groups link types by how the engine interprets them.
type LinkRole int

const (
	// RoleOwnership edges carry economic percentages that multiply along chains.
	RoleOwnership LinkRole = iota
	// RoleControl edges confer control independent of percentage.
	RoleControl
	// RoleManagement edges name directors and senior managers.
	RoleManagement
	// RolePersonal edges are informational only.
	RolePersonal
)

// Role maps a link type onto its engine semantics.
func (t LinkType) Role() LinkRole {
	switch t {
	case LinkOwnership:
		return RoleOwnership
	case LinkControl:
		return RoleControl
	case LinkDirectorship, LinkManages:
		return RoleManagement
	case LinkFamily, LinkEmployee:
		return RolePersonal
	default:
		panic(fmt.Sprintf("domain: unhandled link type %q", string(t)))
	}
}

// Valid reports whether t is one of the known link types.
func (t LinkType) Valid() bool {
	switch t {
	case LinkOwnership, LinkControl, LinkDirectorship, LinkManages, LinkFamily, LinkEmployee:
		return true
	}
	return false
}

// ParseLinkType converts a wire string into a LinkType. Empty means ownership.
func ParseLinkType(s string) (LinkType, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "":
		return LinkOwnership, nil
	case "director":
		return LinkDirectorship, nil
	case "controls":
		return LinkControl, nil
	default:
		t := LinkType(v)
		if !t.Valid() {
			return "", fmt.Errorf("%w: unknown link type %q", ErrInvalidInput, s)
		}
		return t, nil
	}
}

// AllLinkTypes lists every link type in declaration order.
func AllLinkTypes() []LinkType {
	return []LinkType{LinkOwnership, LinkControl, LinkDirectorship, LinkManages, LinkFamily, LinkEmployee}
}

// ComplianceLinkTypes are the types that shape an ownership structure.
func ComplianceLinkTypes() []LinkType {
	return []LinkType{LinkOwnership, LinkControl, LinkDirectorship, LinkManages}
}

// NormalizeLinkTypes applies the store default: no filter means ownership only.
func NormalizeLinkTypes(types []LinkType) []LinkType {
	if len(types) == 0 {
		return []LinkType{LinkOwnership}
	}
	return types
}

// ContainsLinkType reports whether t is present in types.
func ContainsLinkType(types []LinkType, t LinkType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// OwnershipLink is a directed edge: OwnerID owns or controls OwnedID.
type OwnershipLink struct {
	ID               string
	OrgID            string
	OwnerID          string
	OwnedID          string
	Type             LinkType
	Percentage       *float64
	VotingPercentage *float64
	IsNominee        bool
	RoleLabel        string
	RelationshipKind string
	CreatedAt        time.Time
}

// PercentageOrZero returns the ownership percentage, treating nil as 0.
func (l OwnershipLink) PercentageOrZero() float64 {
	if l.Percentage == nil {
		return 0
	}
	return *l.Percentage
}

// Float64Ptr is a small helper for optional percentages.
func Float64Ptr(v float64) *float64 {
	return &v
}
