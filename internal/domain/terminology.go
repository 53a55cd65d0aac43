package domain

import "strings"

// SNOMED CT description type ids.
const (
	DescriptionTypeIDFSN        = "900000000000003001"
	DescriptionTypeIDSynonym    = "900000000000013009"
	DescriptionTypeIDDefinition = "900000000000550004"
)

// Semantic labels stored on Description.type.
const (
	DescriptionTypeFSN        = "FSN"
	DescriptionTypeSynonym    = "SYNONYM"
	DescriptionTypeDefinition = "DEFINITION"
)

// SNOMED CT relationship type ids that are materialized as edges.
const (
	RelTypeIsA               = "116680003"
	RelTypeAssociatedWith    = "47429007"
	RelTypeDueTo             = "42752001"
	RelTypeAssociatedFinding = "246090004"
)

type EdgeKind string

const (
	EdgeIsA            EdgeKind = "IS_A"
	EdgeAssociatedWith EdgeKind = "ASSOCIATED_WITH"
	EdgeHasDescription EdgeKind = "HAS_DESCRIPTION"
)

var relationshipKinds = map[string]EdgeKind{
	RelTypeIsA:               EdgeIsA,
	RelTypeAssociatedWith:    EdgeAssociatedWith,
	RelTypeDueTo:             EdgeAssociatedWith,
	RelTypeAssociatedFinding: EdgeAssociatedWith,
}

// RelationshipKind maps an external relationship type id to its edge label.
// Finer clinical association subtypes collapse into ASSOCIATED_WITH.
func RelationshipKind(typeID string) (EdgeKind, bool) {
	k, ok := relationshipKinds[strings.TrimSpace(typeID)]
	return k, ok
}

// DescriptionTypeLabel returns the semantic label for a description type id; unknown ids are kept verbatim.
func DescriptionTypeLabel(typeID string) string {
	switch strings.TrimSpace(typeID) {
	case DescriptionTypeIDFSN, DescriptionTypeFSN:
		return DescriptionTypeFSN
	case DescriptionTypeIDSynonym, DescriptionTypeSynonym:
		return DescriptionTypeSynonym
	case DescriptionTypeIDDefinition, DescriptionTypeDefinition:
		return DescriptionTypeDefinition
	default:
		return strings.TrimSpace(typeID)
	}
}

type Concept struct {
	ID     string
	Active bool
}

type Description struct {
	ID        string
	ConceptID string
	Term      string
	Type      string
	TypeID    string
	Embedding []float32
}

type Relationship struct {
	SourceID      string
	DestinationID string
	Kind          EdgeKind
}
