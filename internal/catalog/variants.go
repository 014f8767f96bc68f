package catalog

import (
	"sort"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
)

// LinkVariants points every variant at its loaded parent and groups variants by parent id.
func LinkVariants(parents []*models.Product, variants []*models.Product) map[uuid.UUID][]*models.Product {
	byID := make(map[uuid.UUID]*models.Product, len(parents))
	for _, p := range parents {
		byID[p.ID] = p
	}
	grouped := make(map[uuid.UUID][]*models.Product)
	for _, v := range variants {
		if v.ParentID == nil {
			continue
		}
		if parent, ok := byID[*v.ParentID]; ok {
			v.Parent = parent
		}
		grouped[*v.ParentID] = append(grouped[*v.ParentID], v)
	}
	for id, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Position < list[j].Position })
		grouped[id] = list
	}
	return grouped
}

// FindVariant returns the variant whose attribute values equal options exactly.
// Without an exact match it falls back to the parent's default variant, then to
// the first variant by position. It returns nil when the parent has no variants.
func FindVariant(parent *models.Product, variants []*models.Product, values []models.AttributeValue, options map[uuid.UUID]string) *models.Product {
	if len(variants) == 0 {
		return nil
	}
	own := make(map[uuid.UUID]map[uuid.UUID]string, len(variants))
	for _, v := range values {
		if own[v.ProductID] == nil {
			own[v.ProductID] = make(map[uuid.UUID]string)
		}
		own[v.ProductID][v.AttributeID] = v.Value
	}
	for _, variant := range variants {
		if sameOptions(own[variant.ID], options) {
			return variant
		}
	}
	if parent.DefaultVariantID != nil {
		for _, variant := range variants {
			if variant.ID == *parent.DefaultVariantID {
				return variant
			}
		}
	}
	return variants[0]
}

func sameOptions(have, want map[uuid.UUID]string) bool {
	if len(have) != len(want) || len(want) == 0 {
		return false
	}
	for attr, value := range want {
		if have[attr] != value {
			return false
		}
	}
	return true
}
