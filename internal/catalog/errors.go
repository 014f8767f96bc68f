package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnknownAttribute is returned for predicates on missing or non-filterable attributes.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrMalformedVariantGraph marks a variant chain or category cycle that violates the catalog invariants.
	ErrMalformedVariantGraph = errors.New("malformed variant graph")
)

// AttributeError describes a rejected filter predicate
type AttributeError struct {
	AttributeID string
	Reason      string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %s: %s", e.AttributeID, e.Reason)
}

func (e *AttributeError) Unwrap() error {
	return ErrUnknownAttribute
}

// GraphError describes a broken product or category graph
type GraphError struct {
	Kind   string
	ID     uuid.UUID
	Detail string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.ID, e.Detail)
}

func (e *GraphError) Unwrap() error {
	return ErrMalformedVariantGraph
}

func variantGraphError(id uuid.UUID, detail string) error {
	return &GraphError{Kind: "product", ID: id, Detail: detail}
}

func categoryGraphError(id uuid.UUID, detail string) error {
	return &GraphError{Kind: "category", ID: id, Detail: detail}
}
