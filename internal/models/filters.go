package models

import (
	"github.com/google/uuid"
)

// NumericRange is a closed [Min, Max] interval
type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the closed range
func (r NumericRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Predicate is one attribute_id=value filter. Range is set for numeric range filters.
type Predicate struct {
	AttributeID uuid.UUID     `json:"attribute_id"`
	Value       string        `json:"value"`
	Range       *NumericRange `json:"range,omitempty"`
}

// FilterQuery carries everything the storefront sends with a category listing
type FilterQuery struct {
	Predicates []Predicate   `json:"predicates"`
	PriceRange *NumericRange `json:"price_range,omitempty"`
	Sort       string        `json:"sort"`
}

type FacetItem struct {
	Value        string        `json:"value"`
	DisplayName  string        `json:"display_name"`
	Count        int           `json:"count"`
	IsSelected   bool          `json:"is_selected"`
	ShowQuantity bool          `json:"show_quantity"`
	Range        *NumericRange `json:"range,omitempty"`
}

type FacetGroup struct {
	AttributeID uuid.UUID     `json:"attribute_id"`
	Name        string        `json:"name"`
	Unit        string        `json:"unit,omitempty"`
	Type        AttributeType `json:"type"`
	Position    int           `json:"position"`
	Items       []FacetItem   `json:"items"`
}

type PriceBucket struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Quantity int     `json:"quantity"`
}
