package domain

import (
	"fmt"
	"strings"
)

// EntityKind distinguishes natural persons from legal persons.
type EntityKind string

const (
	KindIndividual EntityKind = "individual"
	KindCompany    EntityKind = "company"
)

// ParseEntityKind normalises the provided kind string.
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindIndividual), "person", "natural_person":
		return KindIndividual, nil
	case string(KindCompany), "entity", "legal_person":
		return KindCompany, nil
	default:
		return "", fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, s)
	}
}

// EntityStatus is the lifecycle status managed by the contact system.
type EntityStatus string

const (
	StatusActive   EntityStatus = "active"
	StatusInactive EntityStatus = "inactive"
	StatusArchived EntityStatus = "archived"
	StatusProspect EntityStatus = "prospect"
)

// ParseEntityStatus normalises a status string; empty means active.
func ParseEntityStatus(s string) (EntityStatus, error) {
	switch v := EntityStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return StatusActive, nil
	case StatusActive, StatusInactive, StatusArchived, StatusProspect:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown entity status %q", ErrInvalidInput, s)
	}
}

// Entity is a node of the ownership graph. Risk and KYC attributes are opaque
// to the engine and only carried through to callers.
type Entity struct {
	ID              string
	OrgID           string
	Name            string
	Kind            EntityKind
	Jurisdiction    string
	Status          EntityStatus
	SeniorManagerID string
	Attributes      map[string]string
}

// IsIndividual reports whether the entity is a natural person.
func (e Entity) IsIndividual() bool {
	return e.Kind == KindIndividual
}

// IsCompany reports whether the entity is a legal person.
func (e Entity) IsCompany() bool {
	return e.Kind == KindCompany
}
