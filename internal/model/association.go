package model

import "time"

// AssociationSource indicates who created an association.
type AssociationSource string

const (
	// SourceUser marks an association confirmed by a person.
	SourceUser AssociationSource = "user"
	// SourceSystem marks an association recorded by tooling.
	SourceSystem AssociationSource = "system"
)

// Association maps a normalized ticket item text to a confirmed product.
type Association struct {
	SavedAt             time.Time
	Key                 string
	ProductID           string
	OriginalProductName string
	Source              AssociationSource
}
