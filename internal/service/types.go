package service

import (
	"time"
)

// EntityInput is the inbound payload for creating or replacing a contact.
type EntityInput struct {
	ID              string            `json:"contact_id"`
	Name            string            `json:"name"`
	Kind            string            `json:"kind"`
	Jurisdiction    string            `json:"jurisdiction,omitempty"`
	Status          string            `json:"status,omitempty"`
	SeniorManagerID string            `json:"senior_manager_id,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// LinkInput describes a link to create. ID is optional; imports supply one to
// keep identifiers stable across runs.
type LinkInput struct {
	ID               string     `json:"id,omitempty"`
	OwnerID          string     `json:"owner_contact_id"`
	OwnedID          string     `json:"owned_contact_id"`
	Type             string     `json:"link_type"`
	Percentage       *float64   `json:"percentage,omitempty"`
	VotingPercentage *float64   `json:"voting_percentage,omitempty"`
	IsNominee        bool       `json:"is_nominee,omitempty"`
	RoleLabel        string     `json:"role_label,omitempty"`
	RelationshipKind string     `json:"relationship_kind,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// LinkUpdate carries the fields of a partial link update. Nil fields keep
// their stored value.
type LinkUpdate struct {
	Type             *string  `json:"link_type,omitempty"`
	Percentage       *float64 `json:"percentage,omitempty"`
	VotingPercentage *float64 `json:"voting_percentage,omitempty"`
	IsNominee        *bool    `json:"is_nominee,omitempty"`
	RoleLabel        *string  `json:"role_label,omitempty"`
	RelationshipKind *string  `json:"relationship_kind,omitempty"`
}

// LinkFilter narrows link listings. Empty fields match everything.
type LinkFilter struct {
	OwnerID string
	OwnedID string
	Type    string
}
