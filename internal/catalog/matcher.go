package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
)

// rangeSeparator splits "lo..hi" range values of Number attributes
const rangeSeparator = ".."

// NormalizePredicates checks every predicate against the attribute metadata and
// turns Number predicates into numeric ranges. It fails on the first predicate
// that names a missing or non-filterable attribute.
func NormalizePredicates(predicates []models.Predicate, attributes map[uuid.UUID]*models.Attribute) ([]models.Predicate, error) {
	out := make([]models.Predicate, 0, len(predicates))
	for _, pred := range predicates {
		attr, ok := attributes[pred.AttributeID]
		if !ok {
			return nil, &AttributeError{AttributeID: pred.AttributeID.String(), Reason: "does not exist"}
		}
		if !attr.Filterable {
			return nil, &AttributeError{AttributeID: pred.AttributeID.String(), Reason: "is not filterable"}
		}
		if attr.Type == models.AttributeTypeNumber && pred.Range == nil {
			r, err := ParseRange(pred.Value)
			if err != nil {
				return nil, &AttributeError{AttributeID: pred.AttributeID.String(), Reason: err.Error()}
			}
			pred.Range = &r
		}
		out = append(out, pred)
	}
	return out, nil
}

// ParseRange parses "lo..hi" or a single number into a closed range
func ParseRange(value string) (models.NumericRange, error) {
	loText, hiText, isRange := strings.Cut(value, rangeSeparator)
	if !isRange {
		hiText = loText
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(loText), 64)
	if err != nil {
		return models.NumericRange{}, fmt.Errorf("value %q is not numeric", value)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(hiText), 64)
	if err != nil {
		return models.NumericRange{}, fmt.Errorf("value %q is not numeric", value)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return models.NumericRange{Min: lo, Max: hi}, nil
}

// FormatRange is the inverse of ParseRange
func FormatRange(r models.NumericRange) string {
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + rangeSeparator + strconv.FormatFloat(r.Max, 'f', -1, 64)
}

func satisfies(pred models.Predicate, v models.AttributeValue) bool {
	if pred.AttributeID != v.AttributeID {
		return false
	}
	if pred.Range != nil {
		return v.ValueAsFloat != nil && pred.Range.Contains(*v.ValueAsFloat)
	}
	return v.Value == pred.Value
}

// Match returns the candidates whose family satisfies every predicate.
// values must hold the attribute rows of the candidates and their variants.
// A product matches when it satisfies all predicates on its own; a matching
// variant counts as a match of its parent. The candidates' order is kept.
func Match(candidates []*models.Product, values []models.AttributeValue, predicates []models.Predicate, attributes map[uuid.UUID]*models.Attribute) ([]*models.Product, error) {
	predicates, err := NormalizePredicates(predicates, attributes)
	if err != nil {
		return nil, err
	}
	if len(predicates) == 0 {
		return candidates, nil
	}

	families := make(map[uuid.UUID]bool, len(candidates))
	for _, p := range candidates {
		families[p.ID] = true
	}

	satisfied := make(map[uuid.UUID][]bool)
	counts := make(map[uuid.UUID]int)
	for _, v := range values {
		if !families[v.ParentID] {
			continue
		}
		for i, pred := range predicates {
			if !satisfies(pred, v) {
				continue
			}
			hits, ok := satisfied[v.ProductID]
			if !ok {
				hits = make([]bool, len(predicates))
				satisfied[v.ProductID] = hits
			}
			if !hits[i] {
				hits[i] = true
				counts[v.ProductID]++
			}
		}
	}

	matchedFamilies := make(map[uuid.UUID]bool)
	for _, v := range values {
		if counts[v.ProductID] == len(predicates) {
			matchedFamilies[v.ParentID] = true
		}
	}

	out := make([]*models.Product, 0, len(candidates))
	for _, p := range candidates {
		if matchedFamilies[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// ExpandFamilies returns the products together with their variants, parents first.
func ExpandFamilies(products []*models.Product, variants map[uuid.UUID][]*models.Product) []*models.Product {
	out := make([]*models.Product, 0, len(products))
	for _, p := range products {
		out = append(out, p)
		out = append(out, variants[p.ID]...)
	}
	return out
}

// FamilyIDs returns the ids of the given products
func FamilyIDs(products []*models.Product) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.FamilyID())
	}
	return ids
}
