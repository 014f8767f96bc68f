package models

import (
	"time"

	"github.com/google/uuid"
)

// SubType distinguishes standalone products, parents with variants and variants.
type SubType string

const (
	SubTypeStandalone SubType = "standalone"
	SubTypeParent     SubType = "parent"
	SubTypeVariant    SubType = "variant"
)

// Accessory links a product to another product sold alongside it
type Accessory struct {
	AccessoryID uuid.UUID `json:"accessory_id" db:"accessory_id"`
	Position    int       `json:"position" db:"position"`
	Quantity    float64   `json:"quantity" db:"quantity"`
}

// RelatedProduct is a product recommended next to another one
type RelatedProduct struct {
	ProductID uuid.UUID `json:"product_id" db:"related_id"`
	SubType   SubType   `json:"sub_type" db:"sub_type"`
}

type Product struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	SubType          SubType    `json:"sub_type" db:"sub_type"`
	ParentID         *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	DefaultVariantID *uuid.UUID `json:"default_variant_id,omitempty" db:"default_variant_id"`
	Parent           *Product   `json:"-" db:"-"`

	Name             string   `json:"name" db:"name"`
	Slug             string   `json:"slug" db:"slug"`
	SKU              string   `json:"sku" db:"sku"`
	ShortDescription string   `json:"short_description" db:"short_description"`
	Description      string   `json:"description" db:"description"`
	MetaKeywords     string   `json:"meta_keywords" db:"meta_keywords"`
	MetaDescription  string   `json:"meta_description" db:"meta_description"`
	Images           []string `json:"images" db:"images"`

	Price          float64  `json:"price" db:"price"`
	ForSale        bool     `json:"for_sale" db:"for_sale"`
	ForSalePrice   float64  `json:"for_sale_price" db:"for_sale_price"`
	EffectivePrice float64  `json:"effective_price" db:"effective_price"`
	TaxRate        *float64 `json:"tax_rate,omitempty" db:"tax_rate"`

	ActiveName             bool `json:"active_name" db:"active_name"`
	ActiveSKU              bool `json:"active_sku" db:"active_sku"`
	ActiveShortDescription bool `json:"active_short_description" db:"active_short_description"`
	ActiveDescription      bool `json:"active_description" db:"active_description"`
	ActivePrice            bool `json:"active_price" db:"active_price"`
	ActiveImages           bool `json:"active_images" db:"active_images"`
	ActiveRelatedProducts  bool `json:"active_related_products" db:"active_related_products"`
	ActiveAccessories      bool `json:"active_accessories" db:"active_accessories"`
	ActiveMetaKeywords     bool `json:"active_meta_keywords" db:"active_meta_keywords"`
	ActiveMetaDescription  bool `json:"active_meta_description" db:"active_meta_description"`

	RelatedProducts []RelatedProduct `json:"related_products,omitempty" db:"-"`
	Accessories     []Accessory      `json:"accessories,omitempty" db:"-"`

	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsVariant reports whether the product derives its fields from a parent
func (p *Product) IsVariant() bool {
	return p.SubType == SubTypeVariant
}

// FamilyID is the id of the non-variant product owning p
func (p *Product) FamilyID() uuid.UUID {
	if p.IsVariant() && p.ParentID != nil {
		return *p.ParentID
	}
	return p.ID
}

// ProductView is a product with every inheritable field resolved
type ProductView struct {
	ID                uuid.UUID   `json:"id"`
	SubType           SubType     `json:"sub_type"`
	ParentID          *uuid.UUID  `json:"parent_id,omitempty"`
	Name              string      `json:"name"`
	SKU               string      `json:"sku"`
	ShortDescription  string      `json:"short_description"`
	Description       string      `json:"description"`
	MetaKeywords      string      `json:"meta_keywords"`
	MetaDescription   string      `json:"meta_description"`
	Images            []string    `json:"images"`
	Price             float64     `json:"price"`
	StandardPrice     float64     `json:"standard_price"`
	PriceNet          float64     `json:"price_net"`
	Tax               float64     `json:"tax"`
	TaxRate           float64     `json:"tax_rate"`
	ForSale           bool        `json:"for_sale"`
	RelatedProductIDs []uuid.UUID `json:"related_product_ids"`
	Accessories       []Accessory `json:"accessories"`
	CategoryIDs       []uuid.UUID `json:"category_ids"`
}
