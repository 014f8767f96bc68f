package catalog

import (
	"math"
	"sort"
	"strconv"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
)

// OptionMiss records a Select value whose option no longer exists.
// The raw value is shown instead of the option name.
type OptionMiss struct {
	AttributeID uuid.UUID
	Value       string
}

type familyValue struct {
	family uuid.UUID
	number *float64
}

// observed holds the deduplicated values of one attribute over the matched families
type observed struct {
	counts  map[string]int
	numbers []familyValue
}

// Facets builds the facet groups for the matched families. Every (family, attribute, value)
// combination is counted once no matter how many variants carry it.
func Facets(familyIDs []uuid.UUID, values []models.AttributeValue, attributes []*models.Attribute, selected []models.Predicate) ([]models.FacetGroup, []OptionMiss) {
	families := make(map[uuid.UUID]bool, len(familyIDs))
	for _, id := range familyIDs {
		families[id] = true
	}

	type rowKey struct {
		family    uuid.UUID
		attribute uuid.UUID
		value     string
	}
	seen := make(map[rowKey]bool)
	byAttribute := make(map[uuid.UUID]*observed)
	for _, v := range values {
		if !families[v.ParentID] {
			continue
		}
		key := rowKey{family: v.ParentID, attribute: v.AttributeID, value: v.Value}
		if seen[key] {
			continue
		}
		seen[key] = true
		obs, ok := byAttribute[v.AttributeID]
		if !ok {
			obs = &observed{counts: make(map[string]int)}
			byAttribute[v.AttributeID] = obs
		}
		obs.counts[v.Value]++
		obs.numbers = append(obs.numbers, familyValue{family: v.ParentID, number: v.ValueAsFloat})
	}

	selectedByAttribute := make(map[uuid.UUID][]models.Predicate)
	for _, pred := range selected {
		selectedByAttribute[pred.AttributeID] = append(selectedByAttribute[pred.AttributeID], pred)
	}

	ordered := append([]*models.Attribute(nil), attributes...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].Name < ordered[j].Name
	})

	var groups []models.FacetGroup
	var misses []OptionMiss
	for _, attr := range ordered {
		if !attr.Filterable {
			continue
		}
		obs := byAttribute[attr.ID]
		chosen := selectedByAttribute[attr.ID]
		if obs == nil && len(chosen) == 0 {
			continue
		}
		if obs == nil {
			obs = &observed{counts: map[string]int{}}
		}

		var items []models.FacetItem
		if len(chosen) > 0 {
			items = selectedItems(attr, obs, chosen, &misses)
		} else {
			items = attributeItems(attr, obs, &misses)
			if !attr.DisplayNoResults {
				items = dropEmpty(items)
			}
		}
		if len(items) == 0 {
			continue
		}
		groups = append(groups, models.FacetGroup{
			AttributeID: attr.ID,
			Name:        attr.Name,
			Unit:        attr.Unit,
			Type:        attr.Type,
			Position:    attr.Position,
			Items:       items,
		})
	}
	return groups, misses
}

func selectedItems(attr *models.Attribute, obs *observed, chosen []models.Predicate, misses *[]OptionMiss) []models.FacetItem {
	items := make([]models.FacetItem, 0, len(chosen))
	for _, pred := range chosen {
		item := models.FacetItem{IsSelected: true, ShowQuantity: false}
		if pred.Range != nil {
			r := *pred.Range
			item.Value = FormatRange(r)
			item.DisplayName = rangeLabel(r)
			item.Range = &r
			item.Count = countInRange(obs, r, true)
		} else {
			item.Value = pred.Value
			item.DisplayName = displayName(attr, pred.Value, misses)
			item.Count = obs.counts[pred.Value]
		}
		items = append(items, item)
	}
	return items
}

func attributeItems(attr *models.Attribute, obs *observed, misses *[]OptionMiss) []models.FacetItem {
	switch attr.Type {
	case models.AttributeTypeSelect:
		return selectItems(attr, obs, misses)
	case models.AttributeTypeNumber:
		if ranges := numericRanges(attr, obs); ranges != nil {
			items := make([]models.FacetItem, 0, len(ranges))
			for i, r := range ranges {
				r := r
				items = append(items, models.FacetItem{
					Value:        FormatRange(r),
					DisplayName:  rangeLabel(r),
					Count:        countInRange(obs, r, i == len(ranges)-1),
					ShowQuantity: true,
					Range:        &r,
				})
			}
			return items
		}
	}
	return plainItems(attr, obs)
}

func selectItems(attr *models.Attribute, obs *observed, misses *[]OptionMiss) []models.FacetItem {
	type ranked struct {
		item     models.FacetItem
		position int
	}
	var list []ranked
	listed := make(map[string]bool)
	if attr.DisplayNoResults {
		for _, opt := range attr.Options {
			value := opt.ID.String()
			listed[value] = true
			list = append(list, ranked{
				item:     models.FacetItem{Value: value, DisplayName: opt.Name, Count: obs.counts[value], ShowQuantity: true},
				position: opt.Position,
			})
		}
	}
	for value, count := range obs.counts {
		if listed[value] {
			continue
		}
		position := math.MaxInt
		if opt, ok := attr.Option(value); ok {
			position = opt.Position
		}
		list = append(list, ranked{
			item:     models.FacetItem{Value: value, DisplayName: displayName(attr, value, misses), Count: count, ShowQuantity: true},
			position: position,
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].position != list[j].position {
			return list[i].position < list[j].position
		}
		return list[i].item.Value < list[j].item.Value
	})
	items := make([]models.FacetItem, 0, len(list))
	for _, r := range list {
		items = append(items, r.item)
	}
	return items
}

func plainItems(attr *models.Attribute, obs *observed) []models.FacetItem {
	items := make([]models.FacetItem, 0, len(obs.counts))
	for value, count := range obs.counts {
		items = append(items, models.FacetItem{Value: value, DisplayName: value, Count: count, ShowQuantity: true})
	}
	numeric := attr.Type == models.AttributeTypeNumber
	sort.SliceStable(items, func(i, j int) bool {
		if numeric {
			a, errA := strconv.ParseFloat(items[i].Value, 64)
			b, errB := strconv.ParseFloat(items[j].Value, 64)
			if errA == nil && errB == nil && a != b {
				return a < b
			}
		}
		return items[i].Value < items[j].Value
	})
	return items
}

// displayName maps a Select value to its option name, falling back to the raw value.
func displayName(attr *models.Attribute, value string, misses *[]OptionMiss) string {
	if attr.Type != models.AttributeTypeSelect {
		return value
	}
	if opt, ok := attr.Option(value); ok {
		return opt.Name
	}
	*misses = append(*misses, OptionMiss{AttributeID: attr.ID, Value: value})
	return value
}

func dropEmpty(items []models.FacetItem) []models.FacetItem {
	out := items[:0]
	for _, item := range items {
		if item.Count > 0 {
			out = append(out, item)
		}
	}
	return out
}

// numericRanges splits a Number attribute by its step policy. nil means list raw values.
func numericRanges(attr *models.Attribute, obs *observed) []models.NumericRange {
	lo, hi, ok := numberBounds(obs)
	if !ok {
		return nil
	}
	switch attr.StepPolicy {
	case models.StepFixed:
		if attr.Step == nil || *attr.Step <= 0 {
			return nil
		}
		step := *attr.Step
		var ranges []models.NumericRange
		for start := math.Floor(lo/step) * step; start <= hi; start += step {
			ranges = append(ranges, models.NumericRange{Min: start, Max: start + step})
		}
		return ranges
	case models.StepManual:
		if len(attr.Steps) == 0 {
			return nil
		}
		starts := make([]float64, 0, len(attr.Steps))
		for _, s := range attr.Steps {
			starts = append(starts, s.Start)
		}
		sort.Float64s(starts)
		if lo < starts[0] {
			starts[0] = lo
		}
		ranges := make([]models.NumericRange, 0, len(starts))
		for i, start := range starts {
			end := hi
			if i+1 < len(starts) {
				end = starts[i+1]
			}
			if end < start {
				end = start
			}
			ranges = append(ranges, models.NumericRange{Min: start, Max: end})
		}
		return ranges
	}
	return nil
}

func numberBounds(obs *observed) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, fv := range obs.numbers {
		if fv.number == nil {
			continue
		}
		lo = math.Min(lo, *fv.number)
		hi = math.Max(hi, *fv.number)
	}
	return lo, hi, !math.IsInf(lo, 1)
}

// countInRange counts distinct families in [Min, Max), or [Min, Max] when closed.
func countInRange(obs *observed, r models.NumericRange, closed bool) int {
	families := make(map[uuid.UUID]bool)
	for _, fv := range obs.numbers {
		if fv.number == nil {
			continue
		}
		n := *fv.number
		if n < r.Min || n > r.Max || (!closed && n == r.Max) {
			continue
		}
		families[fv.family] = true
	}
	return len(families)
}

func rangeLabel(r models.NumericRange) string {
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + " - " + strconv.FormatFloat(r.Max, 'f', -1, 64)
}
