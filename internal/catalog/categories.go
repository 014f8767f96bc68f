package catalog

import (
	"sort"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
)

// CategoryTree is an index over the category forest
type CategoryTree struct {
	byID     map[uuid.UUID]*models.Category
	children map[uuid.UUID][]uuid.UUID
}

// NewCategoryTree indexes categories by id and parent. Children are ordered by position.
func NewCategoryTree(categories []*models.Category) *CategoryTree {
	t := &CategoryTree{
		byID:     make(map[uuid.UUID]*models.Category, len(categories)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, c := range categories {
		t.byID[c.ID] = c
	}
	for _, c := range categories {
		if c.ParentID != nil {
			t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
		}
	}
	for parent, ids := range t.children {
		sort.SliceStable(ids, func(i, j int) bool {
			return t.byID[ids[i]].Position < t.byID[ids[j]].Position
		})
		t.children[parent] = ids
	}
	return t
}

// Get returns the category with the given id
func (t *CategoryTree) Get(id uuid.UUID) (*models.Category, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Descendants returns the transitive child closure of id, excluding id itself.
func (t *CategoryTree) Descendants(id uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{id: true}
	queue := append([]uuid.UUID(nil), t.children[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			return nil, categoryGraphError(next, "category is its own descendant")
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, t.children[next]...)
	}
	return out, nil
}

// Ancestors returns the parent chain of id, nearest parent first.
func (t *CategoryTree) Ancestors(id uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{id: true}
	c, ok := t.byID[id]
	for ok && c.ParentID != nil {
		parentID := *c.ParentID
		if seen[parentID] {
			return nil, categoryGraphError(parentID, "category is its own ancestor")
		}
		seen[parentID] = true
		out = append(out, parentID)
		c, ok = t.byID[parentID]
	}
	return out, nil
}

// Scope returns the categories whose products are listed for category id:
// the category itself, plus its descendants when show_all_products is set.
func (t *CategoryTree) Scope(id uuid.UUID) ([]uuid.UUID, error) {
	c, ok := t.byID[id]
	if !ok || !c.ShowAllProducts {
		return []uuid.UUID{id}, nil
	}
	descendants, err := t.Descendants(id)
	if err != nil {
		return nil, err
	}
	return append([]uuid.UUID{id}, descendants...), nil
}

// CandidateProducts keeps the non-variant products of a category scope, each once,
// in their incoming order.
func CandidateProducts(products []*models.Product) []*models.Product {
	seen := make(map[uuid.UUID]bool, len(products))
	out := make([]*models.Product, 0, len(products))
	for _, p := range products {
		if p.IsVariant() || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
