package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by collaborators when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// EntityType names a regulated entity that can be exported in HACT format.
type EntityType string

const (
	EntityProperty EntityType = "property"
	EntityTenant   EntityType = "tenant"
	EntityCase     EntityType = "case"
)

// EntityTypes returns every exportable entity type.
func EntityTypes() []EntityType {
	return []EntityType{EntityProperty, EntityTenant, EntityCase}
}

// ParseEntityType parses a path segment into an EntityType.
func ParseEntityType(raw string) (EntityType, bool) {
	switch EntityType(raw) {
	case EntityProperty, EntityTenant, EntityCase:
		return EntityType(raw), true
	default:
		return "", false
	}
}

// DisplayName is the capitalized entity name used in client messages.
func (e EntityType) DisplayName() string {
	switch e {
	case EntityProperty:
		return "Property"
	case EntityTenant:
		return "Tenant"
	case EntityCase:
		return "Case"
	default:
		return "Entity"
	}
}

// HACTRecord is one entity already shaped to the HACT exchange schema.
// Document is forwarded as-is and never inspected.
type HACTRecord struct {
	EntityType EntityType      `json:"entity_type"`
	ID         string          `json:"id"`
	Document   json.RawMessage `json:"document"`
}

// OutcomeKind is the closed set of expected export results. Faults are
// reported through the error return instead.
type OutcomeKind string

const (
	OutcomeDelivered OutcomeKind = "delivered"
	OutcomeDenied    OutcomeKind = "denied"
	OutcomeNotFound  OutcomeKind = "not_found"
)

// ExportOutcome is the result of one export request.
type ExportOutcome struct {
	Kind   OutcomeKind
	Entity EntityType
	ID     string
	Record *HACTRecord
	// Reason is the client-safe message for Denied and NotFound outcomes.
	Reason string
}

// Filename is the attachment name for a delivered export.
func (o ExportOutcome) Filename() string {
	return fmt.Sprintf("%s-%s-hact.json", o.Entity, o.ID)
}
