package repositories

import (
	"context"
	"testing"
	"time"

	"catalogfacets/internal/models"
	"catalogfacets/testhelpers"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var productColumnNames = []string{
	"id", "sub_type", "parent_id", "default_variant_id", "name", "slug", "sku",
	"short_description", "description", "meta_keywords", "meta_description", "images",
	"price", "for_sale", "for_sale_price", "effective_price", "rate",
	"active_name", "active_sku", "active_short_description", "active_description", "active_price",
	"active_images", "active_related_products", "active_accessories", "active_meta_keywords",
	"active_meta_description", "position", "created_at", "updated_at",
}

func productRow(p *models.Product) []any {
	return []any{
		p.ID, p.SubType, p.ParentID, p.DefaultVariantID, p.Name, p.Slug, p.SKU,
		p.ShortDescription, p.Description, p.MetaKeywords, p.MetaDescription, p.Images,
		p.Price, p.ForSale, p.ForSalePrice, p.EffectivePrice, p.TaxRate,
		p.ActiveName, p.ActiveSKU, p.ActiveShortDescription, p.ActiveDescription, p.ActivePrice,
		p.ActiveImages, p.ActiveRelatedProducts, p.ActiveAccessories, p.ActiveMetaKeywords,
		p.ActiveMetaDescription, p.Position, p.CreatedAt, p.UpdatedAt,
	}
}

func productRows(products ...*models.Product) *pgxmock.Rows {
	rows := pgxmock.NewRows(productColumnNames)
	for _, p := range products {
		rows.AddRow(productRow(p)...)
	}
	return rows
}

type ProductRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    ProductRepository
	context context.Context
}

func (suite *ProductRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewProductRepo(mock)
	suite.context = context.Background()
}

func (suite *ProductRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestProductRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ProductRepoTestSuite))
}

func newStoredProduct(name string, price float64) *models.Product {
	p := testhelpers.NewProduct(name, price)
	p.Images = []string{name + ".jpg"}
	p.TaxRate = testhelpers.Float64Ptr(19)
	p.EffectivePrice = price
	p.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	return p
}

func (suite *ProductRepoTestSuite) expectRelations(productID uuid.UUID, related []models.RelatedProduct, accessories []models.Accessory) {
	relatedRows := pgxmock.NewRows([]string{"related_id", "sub_type"})
	for _, rel := range related {
		relatedRows.AddRow(rel.ProductID, rel.SubType)
	}
	suite.mock.ExpectQuery(`SELECT rp.related_id, rel.sub_type FROM related_products rp`).
		WithArgs(productID).
		WillReturnRows(relatedRows)

	accessoryRows := pgxmock.NewRows([]string{"accessory_id", "position", "quantity"})
	for _, a := range accessories {
		accessoryRows.AddRow(a.AccessoryID, a.Position, a.Quantity)
	}
	suite.mock.ExpectQuery(`SELECT accessory_id, position, quantity FROM product_accessories`).
		WithArgs(productID).
		WillReturnRows(accessoryRows)
}

func (suite *ProductRepoTestSuite) TestGetByID_Standalone() {
	p := newStoredProduct("lamp", 40)
	related := models.RelatedProduct{ProductID: uuid.New(), SubType: models.SubTypeParent}
	accessory := models.Accessory{AccessoryID: uuid.New(), Position: 1, Quantity: 2}

	suite.mock.ExpectQuery(`SELECT (.+) FROM products p LEFT JOIN taxes t ON t.id = p.tax_id WHERE p.id = \$1`).
		WithArgs(p.ID).
		WillReturnRows(productRows(p))
	suite.expectRelations(p.ID, []models.RelatedProduct{related}, []models.Accessory{accessory})

	got, err := suite.repo.GetByID(suite.context, p.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), p.Name, got.Name)
	assert.Equal(suite.T(), p.Images, got.Images)
	assert.Equal(suite.T(), 19.0, *got.TaxRate)
	assert.Equal(suite.T(), []models.RelatedProduct{related}, got.RelatedProducts)
	assert.Equal(suite.T(), []models.Accessory{accessory}, got.Accessories)
	assert.Nil(suite.T(), got.Parent)
}

func (suite *ProductRepoTestSuite) TestGetByID_VariantLoadsParent() {
	parent := newStoredProduct("shirt", 20)
	parent.SubType = models.SubTypeParent
	variant := newStoredProduct("shirt-red", 0)
	variant.SubType = models.SubTypeVariant
	variant.ParentID = &parent.ID

	suite.mock.ExpectQuery(`SELECT (.+) FROM products p`).
		WithArgs(variant.ID).
		WillReturnRows(productRows(variant))
	suite.expectRelations(variant.ID, nil, nil)
	suite.mock.ExpectQuery(`SELECT (.+) FROM products p`).
		WithArgs(parent.ID).
		WillReturnRows(productRows(parent))
	suite.expectRelations(parent.ID, nil, nil)

	got, err := suite.repo.GetByID(suite.context, variant.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got.Parent)
	assert.Equal(suite.T(), parent.ID, got.Parent.ID)
}

func (suite *ProductRepoTestSuite) TestGetByID_NotFound() {
	id := uuid.New()
	suite.mock.ExpectQuery(`SELECT (.+) FROM products p`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetByID(suite.context, id)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *ProductRepoTestSuite) TestListByCategories_SortsByEffectivePrice() {
	categoryIDs := []uuid.UUID{uuid.New(), uuid.New()}
	cheap := newStoredProduct("cheap", 5)
	dear := newStoredProduct("dear", 50)

	suite.mock.ExpectQuery(`WHERE p.sub_type <> 'variant' AND p.id IN \(SELECT product_id FROM product_categories WHERE category_id = ANY\(\$1\)\) ORDER BY p.effective_price DESC, p.position`).
		WithArgs(categoryIDs).
		WillReturnRows(productRows(dear, cheap))

	got, err := suite.repo.ListByCategories(suite.context, categoryIDs, "-price")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), got, 2)
	assert.Equal(suite.T(), dear.ID, got[0].ID)
}

func (suite *ProductRepoTestSuite) TestListByCategories_Empty() {
	got, err := suite.repo.ListByCategories(suite.context, nil, "")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), got)
}

func (suite *ProductRepoTestSuite) TestListVariants() {
	parent := newStoredProduct("shirt", 20)
	variant := newStoredProduct("shirt-red", 20)
	variant.SubType = models.SubTypeVariant
	variant.ParentID = &parent.ID

	suite.mock.ExpectQuery(`WHERE p.sub_type = 'variant' AND p.parent_id = ANY\(\$1\)`).
		WithArgs([]uuid.UUID{parent.ID}).
		WillReturnRows(productRows(variant))

	got, err := suite.repo.ListVariants(suite.context, []uuid.UUID{parent.ID})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), got, 1)
	assert.Equal(suite.T(), parent.ID, *got[0].ParentID)
}

func (suite *ProductRepoTestSuite) TestCategoryIDs() {
	productID := uuid.New()
	categoryID := uuid.New()
	suite.mock.ExpectQuery(`SELECT pc.category_id FROM product_categories pc`).
		WithArgs(productID).
		WillReturnRows(pgxmock.NewRows([]string{"category_id"}).AddRow(categoryID))

	got, err := suite.repo.CategoryIDs(suite.context, productID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []uuid.UUID{categoryID}, got)
}

func (suite *ProductRepoTestSuite) TestUpdateEffectivePrice() {
	id := uuid.New()
	suite.mock.ExpectExec(`UPDATE products SET effective_price = \$2`).
		WithArgs(id, 12.5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(suite.T(), suite.repo.UpdateEffectivePrice(suite.context, id, 12.5))

	suite.mock.ExpectExec(`UPDATE products SET effective_price = \$2`).
		WithArgs(id, 1.0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(suite.T(), suite.repo.UpdateEffectivePrice(suite.context, id, 1.0), ErrNotFound)
}

func TestSortOrder(t *testing.T) {
	assert.Equal(t, "p.position, p.name", SortOrder(""))
	assert.Equal(t, "p.position, p.name", SortOrder("; DROP TABLE products"))
	assert.Equal(t, "p.name DESC, p.position", SortOrder("-name"))
}
