package catalog

import (
	"fmt"
	"strings"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field describes one inheritable product field: the flag that makes a variant's
// own value authoritative and the accessor for the value.
type Field[T any] struct {
	Name   string
	active func(*models.Product) bool
	value  func(*models.Product) T
}

var (
	FieldName = Field[string]{
		Name:   "name",
		active: func(p *models.Product) bool { return p.ActiveName },
		value:  func(p *models.Product) string { return p.Name },
	}
	FieldSKU = Field[string]{
		Name:   "sku",
		active: func(p *models.Product) bool { return p.ActiveSKU },
		value:  func(p *models.Product) string { return p.SKU },
	}
	FieldShortDescription = Field[string]{
		Name:   "short_description",
		active: func(p *models.Product) bool { return p.ActiveShortDescription },
		value:  func(p *models.Product) string { return p.ShortDescription },
	}
	FieldDescription = Field[string]{
		Name:   "description",
		active: func(p *models.Product) bool { return p.ActiveDescription },
		value:  func(p *models.Product) string { return p.Description },
	}
	FieldMetaKeywords = Field[string]{
		Name:   "meta_keywords",
		active: func(p *models.Product) bool { return p.ActiveMetaKeywords },
		value:  func(p *models.Product) string { return p.MetaKeywords },
	}
	FieldMetaDescription = Field[string]{
		Name:   "meta_description",
		active: func(p *models.Product) bool { return p.ActiveMetaDescription },
		value:  func(p *models.Product) string { return p.MetaDescription },
	}
	FieldImages = Field[[]string]{
		Name:   "images",
		active: func(p *models.Product) bool { return p.ActiveImages },
		value:  func(p *models.Product) []string { return p.Images },
	}
	FieldRelatedProducts = Field[[]uuid.UUID]{
		Name:   "related_products",
		active: func(p *models.Product) bool { return p.ActiveRelatedProducts },
		value:  relatedProductIDs,
	}
	FieldAccessories = Field[[]models.Accessory]{
		Name:   "accessories",
		active: func(p *models.Product) bool { return p.ActiveAccessories },
		value:  func(p *models.Product) []models.Accessory { return p.Accessories },
	}
	// FieldPrice resolves to the effective price of the price owner.
	FieldPrice = Field[float64]{
		Name:   "price",
		active: func(p *models.Product) bool { return p.ActivePrice },
		value:  effectivePriceOf,
	}
)

// Resolve returns the value of f for p, falling back to the parent when p is a
// variant that does not override f.
func Resolve[T any](p *models.Product, f Field[T]) (T, error) {
	owner, err := fieldOwner(p, f.active)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.value(owner), nil
}

// ResolveByName resolves a field addressed by its name
func ResolveByName(p *models.Product, name string) (any, error) {
	switch name {
	case FieldName.Name:
		return Resolve(p, FieldName)
	case FieldSKU.Name:
		return Resolve(p, FieldSKU)
	case FieldShortDescription.Name:
		return Resolve(p, FieldShortDescription)
	case FieldDescription.Name:
		return Resolve(p, FieldDescription)
	case FieldMetaKeywords.Name:
		return MetaKeywords(p)
	case FieldMetaDescription.Name:
		return Resolve(p, FieldMetaDescription)
	case FieldImages.Name:
		return Resolve(p, FieldImages)
	case FieldRelatedProducts.Name:
		return Resolve(p, FieldRelatedProducts)
	case FieldAccessories.Name:
		return Resolve(p, FieldAccessories)
	case FieldPrice.Name:
		return Resolve(p, FieldPrice)
	}
	return nil, fmt.Errorf("unknown product field %q", name)
}

// fieldOwner picks the product whose value is authoritative for a field
func fieldOwner(p *models.Product, active func(*models.Product) bool) (*models.Product, error) {
	if !p.IsVariant() || active(p) {
		return p, nil
	}
	return parentOf(p)
}

func parentOf(p *models.Product) (*models.Product, error) {
	if p.Parent == nil {
		return nil, variantGraphError(p.ID, "variant has no parent")
	}
	if p.Parent.IsVariant() {
		return nil, variantGraphError(p.ID, fmt.Sprintf("parent %s is itself a variant", p.Parent.ID))
	}
	return p.Parent, nil
}

// relatedProductIDs leaves out products with variants; shoppers are pointed at
// standalone products and variants only.
func relatedProductIDs(p *models.Product) []uuid.UUID {
	var ids []uuid.UUID
	for _, r := range p.RelatedProducts {
		if r.SubType == models.SubTypeParent {
			continue
		}
		ids = append(ids, r.ProductID)
	}
	return ids
}

func effectivePriceOf(p *models.Product) float64 {
	if p.ForSale {
		return p.ForSalePrice
	}
	return p.Price
}

// EffectivePrice is the for-sale price if the price owner is for sale, else its regular price.
func EffectivePrice(p *models.Product) (float64, error) {
	return Resolve(p, FieldPrice)
}

// StandardPrice is the regular price of the price owner, ignoring any sale.
func StandardPrice(p *models.Product) (float64, error) {
	owner, err := fieldOwner(p, FieldPrice.active)
	if err != nil {
		return 0, err
	}
	return owner.Price, nil
}

// ForSale reads the sale flag from the same product that owns the price.
func ForSale(p *models.Product) (bool, error) {
	owner, err := fieldOwner(p, FieldPrice.active)
	if err != nil {
		return false, err
	}
	return owner.ForSale, nil
}

// TaxRate returns the tax rate in percent. Variants always use the parent's rate.
func TaxRate(p *models.Product) (float64, error) {
	owner := p
	if p.IsVariant() {
		parent, err := parentOf(p)
		if err != nil {
			return 0, err
		}
		owner = parent
	}
	if owner.TaxRate == nil {
		return 0, nil
	}
	return *owner.TaxRate, nil
}

// Tax is the tax amount included in the gross effective price.
func Tax(p *models.Product) (float64, error) {
	gross, err := EffectivePrice(p)
	if err != nil {
		return 0, err
	}
	rate, err := TaxRate(p)
	if err != nil {
		return 0, err
	}
	return includedTax(gross, rate), nil
}

// PriceNet is the gross effective price without tax.
func PriceNet(p *models.Product) (float64, error) {
	gross, err := EffectivePrice(p)
	if err != nil {
		return 0, err
	}
	rate, err := TaxRate(p)
	if err != nil {
		return 0, err
	}
	net, _ := decimal.NewFromFloat(gross).Sub(decimal.NewFromFloat(includedTax(gross, rate))).Float64()
	return net, nil
}

func includedTax(gross, rate float64) float64 {
	r := decimal.NewFromFloat(rate)
	hundred := decimal.NewFromInt(100)
	if r.Add(hundred).IsZero() {
		return 0
	}
	tax, _ := decimal.NewFromFloat(gross).Mul(r).Div(r.Add(hundred)).Round(4).Float64()
	return tax
}

const titlePlaceholder = "<title>"

// MetaKeywords resolves meta keywords and substitutes the product name for <title>.
func MetaKeywords(p *models.Product) (string, error) {
	raw, err := Resolve(p, FieldMetaKeywords)
	if err != nil {
		return "", err
	}
	if !strings.Contains(raw, titlePlaceholder) {
		return raw, nil
	}
	name, err := Resolve(p, FieldName)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(raw, titlePlaceholder, name), nil
}

// View resolves every inheritable field of p
func View(p *models.Product) (*models.ProductView, error) {
	v := &models.ProductView{ID: p.ID, SubType: p.SubType, ParentID: p.ParentID}
	var err error
	if v.Name, err = Resolve(p, FieldName); err != nil {
		return nil, err
	}
	if v.SKU, err = Resolve(p, FieldSKU); err != nil {
		return nil, err
	}
	if v.ShortDescription, err = Resolve(p, FieldShortDescription); err != nil {
		return nil, err
	}
	if v.Description, err = Resolve(p, FieldDescription); err != nil {
		return nil, err
	}
	if v.MetaKeywords, err = MetaKeywords(p); err != nil {
		return nil, err
	}
	if v.MetaDescription, err = Resolve(p, FieldMetaDescription); err != nil {
		return nil, err
	}
	if v.Images, err = Resolve(p, FieldImages); err != nil {
		return nil, err
	}
	if v.RelatedProductIDs, err = Resolve(p, FieldRelatedProducts); err != nil {
		return nil, err
	}
	if v.Accessories, err = Resolve(p, FieldAccessories); err != nil {
		return nil, err
	}
	if v.Price, err = EffectivePrice(p); err != nil {
		return nil, err
	}
	if v.StandardPrice, err = StandardPrice(p); err != nil {
		return nil, err
	}
	if v.ForSale, err = ForSale(p); err != nil {
		return nil, err
	}
	if v.TaxRate, err = TaxRate(p); err != nil {
		return nil, err
	}
	v.Tax = includedTax(v.Price, v.TaxRate)
	if v.PriceNet, err = PriceNet(p); err != nil {
		return nil, err
	}
	return v, nil
}
