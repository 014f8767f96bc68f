package catalog

import (
	"math"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
)

// stepLadder holds the bucket widths a raw step is rounded up to.
var stepLadder = []float64{3, 5, 10, 50, 100, 500, 1000}

// PricedProduct is a product's effective price tagged with its family
type PricedProduct struct {
	FamilyID uuid.UUID
	Price    float64
}

// PriceProducts resolves the effective price of every product, variants included.
func PriceProducts(products []*models.Product) ([]PricedProduct, error) {
	out := make([]PricedProduct, 0, len(products))
	for _, p := range products {
		price, err := EffectivePrice(p)
		if err != nil {
			return nil, err
		}
		out = append(out, PricedProduct{FamilyID: p.FamilyID(), Price: price})
	}
	return out, nil
}

// SnapStep rounds a raw step up to the next ladder value. Steps beyond the
// ladder keep growing in the same 1-5-10 pattern.
func SnapStep(raw float64) float64 {
	for _, step := range stepLadder {
		if step >= raw {
			return step
		}
	}
	step := stepLadder[len(stepLadder)-1]
	for step < raw {
		if step*5 >= raw {
			return step * 5
		}
		step *= 10
	}
	return step
}

// RawPriceBuckets partitions [0, max price] into buckets of the snapped step
// width before empty buckets are merged. Bucket i covers (i*step, (i+1)*step],
// bucket 0 also takes a price of exactly 0. It returns nil for an empty input.
func RawPriceBuckets(priced []PricedProduct) []models.PriceBucket {
	if len(priced) == 0 {
		return nil
	}
	lo, hi := priced[0].Price, priced[0].Price
	for _, p := range priced[1:] {
		lo = math.Min(lo, p.Price)
		hi = math.Max(hi, p.Price)
	}
	if lo == hi {
		return []models.PriceBucket{{Min: lo, Max: hi, Quantity: countFamilies(priced, func(float64) bool { return true })}}
	}

	step := SnapStep((hi - lo) / 3)
	n := int(math.Ceil(hi / step))
	if n < 1 {
		n = 1
	}
	buckets := make([]models.PriceBucket, 0, n)
	for i := 0; i < n; i++ {
		lower, upper := float64(i)*step, float64(i+1)*step
		first := i == 0
		buckets = append(buckets, models.PriceBucket{
			Min: lower + 1,
			Max: upper,
			Quantity: countFamilies(priced, func(price float64) bool {
				return (price > lower || (first && price >= lower)) && price <= upper
			}),
		})
	}
	return buckets
}

// PriceBuckets computes the price filter buckets for the priced products.
// A bucket without products hands its lower bound to the next bucket; a
// trailing empty bucket is dropped.
func PriceBuckets(priced []PricedProduct) []models.PriceBucket {
	raw := RawPriceBuckets(priced)
	out := make([]models.PriceBucket, 0, len(raw))
	var carried *float64
	for _, b := range raw {
		if b.Quantity == 0 {
			if carried == nil {
				lower := b.Min
				carried = &lower
			}
			continue
		}
		if carried != nil {
			b.Min = *carried
			carried = nil
		}
		out = append(out, b)
	}
	return out
}

func countFamilies(priced []PricedProduct, in func(float64) bool) int {
	families := make(map[uuid.UUID]bool)
	for _, p := range priced {
		if in(p.Price) {
			families[p.FamilyID] = true
		}
	}
	return len(families)
}
