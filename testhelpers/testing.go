package testhelpers

import (
	"context"
	"os"
	"strconv"
	"testing"

	"catalogfacets/internal/models"
	"catalogfacets/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for integration tests
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema.
// The test is skipped when no database is configured.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	pool, err := database.NewPool(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.EnsureSchema(context.Background(), pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			_, err := pool.Exec(context.Background(),
				`TRUNCATE attribute_values, filter_steps, attribute_options, attributes,
				 product_categories, product_accessories, related_products, products, categories, taxes CASCADE`)
			pool.Close()
			return err
		},
	}
}

// NewProduct builds a standalone product with the given price
func NewProduct(name string, price float64) *models.Product {
	return &models.Product{
		ID:      uuid.New(),
		SubType: models.SubTypeStandalone,
		Name:    name,
		Slug:    name,
		SKU:     "SKU-" + name,
		Price:   price,
	}
}

// NewParent builds a product that owns variants
func NewParent(name string, price float64) *models.Product {
	p := NewProduct(name, price)
	p.SubType = models.SubTypeParent
	return p
}

// NewVariant builds a variant of parent that inherits every field
func NewVariant(parent *models.Product, name string) *models.Product {
	parentID := parent.ID
	return &models.Product{
		ID:       uuid.New(),
		SubType:  models.SubTypeVariant,
		ParentID: &parentID,
		Parent:   parent,
		Name:     name,
		Slug:     name,
		SKU:      "SKU-" + name,
	}
}

// WithSale marks p for sale at price
func WithSale(p *models.Product, price float64) *models.Product {
	p.ForSale = true
	p.ForSalePrice = price
	return p
}

// NewAttribute builds a filterable attribute
func NewAttribute(name string, attrType models.AttributeType, position int) *models.Attribute {
	return &models.Attribute{
		ID:         uuid.New(),
		Name:       name,
		Type:       attrType,
		Filterable: true,
		StepPolicy: models.StepAutomatic,
		Position:   position,
	}
}

// NewSelectAttribute builds a Select attribute with options in the given order
func NewSelectAttribute(name string, position int, options ...string) *models.Attribute {
	attr := NewAttribute(name, models.AttributeTypeSelect, position)
	for i, option := range options {
		attr.Options = append(attr.Options, models.AttributeOption{
			ID:          uuid.New(),
			AttributeID: attr.ID,
			Name:        option,
			Position:    (i + 1) * 10,
		})
	}
	return attr
}

// OptionValue returns the stored value of the named option
func OptionValue(attr *models.Attribute, name string) string {
	for _, opt := range attr.Options {
		if opt.Name == name {
			return opt.ID.String()
		}
	}
	return ""
}

// Value builds the EAV row of p for attr, with the family id and numeric shadow filled in
func Value(p *models.Product, attr *models.Attribute, value string) models.AttributeValue {
	v := models.AttributeValue{
		ProductID:   p.ID,
		AttributeID: attr.ID,
		Value:       value,
		ParentID:    p.FamilyID(),
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		v.ValueAsFloat = &f
	}
	return v
}

// AttributeMap indexes attributes by id
func AttributeMap(attrs ...*models.Attribute) map[uuid.UUID]*models.Attribute {
	m := make(map[uuid.UUID]*models.Attribute, len(attrs))
	for _, a := range attrs {
		m[a.ID] = a
	}
	return m
}

// NewCategory builds a category under parent, which may be nil
func NewCategory(name string, parent *models.Category, showAll bool) *models.Category {
	c := &models.Category{ID: uuid.New(), Name: name, Slug: name, ShowAllProducts: showAll}
	if parent != nil {
		parentID := parent.ID
		c.ParentID = &parentID
	}
	return c
}

func Float64Ptr(f float64) *float64 {
	return &f
}

func StringPtr(s string) *string {
	return &s
}
