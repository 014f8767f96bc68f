package models

import (
	"github.com/google/uuid"
)

type AttributeType string

const (
	AttributeTypeText   AttributeType = "text"
	AttributeTypeNumber AttributeType = "number"
	AttributeTypeSelect AttributeType = "select"
)

// Valid reports whether t is one of the known attribute types
func (t AttributeType) Valid() bool {
	switch t {
	case AttributeTypeText, AttributeTypeNumber, AttributeTypeSelect:
		return true
	}
	return false
}

// StepPolicy controls how Number attributes are split into facet ranges
type StepPolicy string

const (
	StepAutomatic StepPolicy = "automatic"
	StepFixed     StepPolicy = "fixed"
	StepManual    StepPolicy = "manual"
)

// Attribute is a product property stored as EAV rows
type Attribute struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	Name             string            `json:"name" db:"name"`
	Unit             string            `json:"unit" db:"unit"`
	Type             AttributeType     `json:"type" db:"type"`
	Filterable       bool              `json:"filterable" db:"filterable"`
	DisplayNoResults bool              `json:"display_no_results" db:"display_no_results"`
	StepPolicy       StepPolicy        `json:"step_policy" db:"step_policy"`
	Step             *float64          `json:"step,omitempty" db:"step"`
	Position         int               `json:"position" db:"position"`
	Local            bool              `json:"local" db:"local"`
	OwnerProductID   *uuid.UUID        `json:"owner_product_id,omitempty" db:"owner_product_id"`
	Options          []AttributeOption `json:"options,omitempty" db:"-"`
	Steps            []FilterStep      `json:"steps,omitempty" db:"-"`
}

// Option returns the option with the given id string
func (a *Attribute) Option(value string) (*AttributeOption, bool) {
	for i := range a.Options {
		if a.Options[i].ID.String() == value {
			return &a.Options[i], true
		}
	}
	return nil, false
}

type AttributeOption struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AttributeID uuid.UUID `json:"attribute_id" db:"attribute_id"`
	Name        string    `json:"name" db:"name"`
	Price       *float64  `json:"price,omitempty" db:"price"`
	Position    int       `json:"position" db:"position"`
}

// FilterStep is a manual breakpoint of a Number attribute
type FilterStep struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AttributeID uuid.UUID `json:"attribute_id" db:"attribute_id"`
	Start       float64   `json:"start" db:"start"`
}

// AttributeValue is one EAV row. ParentID is the family owner id.
type AttributeValue struct {
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	AttributeID  uuid.UUID `json:"attribute_id" db:"attribute_id"`
	Value        string    `json:"value" db:"value"`
	ValueAsFloat *float64  `json:"value_as_float,omitempty" db:"value_as_float"`
	ParentID     uuid.UUID `json:"parent_id" db:"parent_id"`
}
