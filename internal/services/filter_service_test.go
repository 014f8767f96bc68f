package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"catalogfacets/internal/caching"
	"catalogfacets/internal/catalog"
	"catalogfacets/internal/models"
	"catalogfacets/internal/repositories"
	"catalogfacets/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type FilterServiceTestSuite struct {
	suite.Suite
	productRepo   *MockProductRepository
	categoryRepo  *MockCategoryRepository
	attributeRepo *MockAttributeRepository
	valueRepo     *MockAttributeValueRepository
	cache         *MockResultCache
	service       FilterService

	root, child      *models.Category
	color            *models.Attribute
	shirt, red, blue *models.Product
	mug              *models.Product
	values           []models.AttributeValue
	generation       caching.Generation
}

func (suite *FilterServiceTestSuite) SetupTest() {
	suite.productRepo = &MockProductRepository{}
	suite.categoryRepo = &MockCategoryRepository{}
	suite.attributeRepo = &MockAttributeRepository{}
	suite.valueRepo = &MockAttributeValueRepository{}
	suite.cache = &MockResultCache{}
	suite.service = NewFilterService(suite.productRepo, suite.categoryRepo, suite.attributeRepo, suite.valueRepo, suite.cache, zap.NewNop())

	suite.root = testhelpers.NewCategory("clothing", nil, true)
	suite.child = testhelpers.NewCategory("shirts", suite.root, false)
	suite.color = testhelpers.NewSelectAttribute("Color", 1, "Red", "Blue")

	suite.shirt = testhelpers.NewParent("shirt", 20)
	suite.red = testhelpers.NewVariant(suite.shirt, "shirt-red")
	suite.blue = testhelpers.NewVariant(suite.shirt, "shirt-blue")
	suite.blue.Position = 1
	suite.mug = testhelpers.NewProduct("mug", 8)
	suite.generation = caching.Generation{}

	suite.values = []models.AttributeValue{
		testhelpers.Value(suite.red, suite.color, testhelpers.OptionValue(suite.color, "Red")),
		testhelpers.Value(suite.blue, suite.color, testhelpers.OptionValue(suite.color, "Blue")),
		testhelpers.Value(suite.mug, suite.color, testhelpers.OptionValue(suite.color, "Blue")),
	}
}

func (suite *FilterServiceTestSuite) TearDownTest() {
	suite.productRepo.AssertExpectations(suite.T())
	suite.categoryRepo.AssertExpectations(suite.T())
	suite.attributeRepo.AssertExpectations(suite.T())
	suite.valueRepo.AssertExpectations(suite.T())
	suite.cache.AssertExpectations(suite.T())
}

func TestFilterServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FilterServiceTestSuite))
}

// expectCatalog wires the repositories for a listing of the root category
func (suite *FilterServiceTestSuite) expectCatalog(sort string) {
	suite.cache.On("Generation", mock.Anything, suite.root.ID).Return(suite.generation, nil)
	suite.expectRepositories(sort)
	suite.valueRepo.On("ListForProducts", mock.Anything, mock.Anything).Return(suite.values, nil)
}

func (suite *FilterServiceTestSuite) expectRepositories(sort string) {
	suite.categoryRepo.On("ListAll", mock.Anything).Return([]*models.Category{suite.root, suite.child}, nil)
	suite.attributeRepo.On("ListWithOptions", mock.Anything).Return([]*models.Attribute{suite.color}, nil)
	suite.productRepo.On("ListByCategories", mock.Anything, []uuid.UUID{suite.root.ID, suite.child.ID}, sort).
		Return([]*models.Product{suite.shirt, suite.mug}, nil)
	suite.productRepo.On("ListVariants", mock.Anything, []uuid.UUID{suite.shirt.ID, suite.mug.ID}).
		Return([]*models.Product{suite.red, suite.blue}, nil)
}

func (suite *FilterServiceTestSuite) redPredicate() models.Predicate {
	return models.Predicate{AttributeID: suite.color.ID, Value: testhelpers.OptionValue(suite.color, "Red")}
}

func (suite *FilterServiceTestSuite) TestGetFilteredProducts_VariantMatchPromotesParent() {
	ctx := context.Background()
	query := models.FilterQuery{Predicates: []models.Predicate{suite.redPredicate()}, Sort: "position"}
	key := caching.ResultKey{CategoryID: suite.root.ID, Kind: caching.KindProducts, Query: query}
	suite.generation = caching.Generation{All: 3, Category: 7}
	stamped := key
	stamped.Generation = suite.generation

	suite.cache.On("GetProducts", ctx, key).Return(nil, false, nil)
	suite.expectCatalog("position")
	suite.cache.On("SetProducts", ctx, stamped, []*models.Product{suite.shirt}).Return(nil)

	products, err := suite.service.GetFilteredProducts(ctx, suite.root.ID, query)

	suite.NoError(err)
	suite.Equal([]*models.Product{suite.shirt}, products)
}

func (suite *FilterServiceTestSuite) TestGetFilteredProducts_NoPredicatesKeepsOrder() {
	ctx := context.Background()
	query := models.FilterQuery{Sort: "name"}

	suite.cache.On("GetProducts", ctx, mock.Anything).Return(nil, false, nil)
	suite.expectCatalog("name")
	suite.cache.On("SetProducts", ctx, mock.Anything, mock.Anything).Return(nil)

	products, err := suite.service.GetFilteredProducts(ctx, suite.root.ID, query)

	suite.NoError(err)
	suite.Equal([]*models.Product{suite.shirt, suite.mug}, products)
}

func (suite *FilterServiceTestSuite) TestGetFilteredProducts_CacheHit() {
	ctx := context.Background()
	cached := []*models.Product{suite.mug}

	suite.cache.On("GetProducts", ctx, mock.Anything).Return(cached, true, nil)

	products, err := suite.service.GetFilteredProducts(ctx, suite.root.ID, models.FilterQuery{})

	suite.NoError(err)
	suite.Equal(cached, products)
}

func (suite *FilterServiceTestSuite) TestGetFilteredProducts_CacheFailureFallsThrough() {
	ctx := context.Background()

	suite.cache.On("GetProducts", ctx, mock.Anything).Return(nil, false, errors.New("connection refused"))
	suite.expectCatalog("")
	suite.cache.On("SetProducts", ctx, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	products, err := suite.service.GetFilteredProducts(ctx, suite.root.ID, models.FilterQuery{})

	suite.NoError(err)
	suite.Len(products, 2)
}

func (suite *FilterServiceTestSuite) TestGetFilteredProducts_PriceRange() {
	ctx := context.Background()
	query := models.FilterQuery{PriceRange: &models.NumericRange{Min: 5, Max: 10}}

	suite.cache.On("GetProducts", ctx, mock.Anything).Return(nil, false, nil)
	suite.expectCatalog("")
	suite.cache.On("SetProducts", ctx, mock.Anything, []*models.Product{suite.mug}).Return(nil)

	products, err := suite.service.GetFilteredProducts(ctx, suite.root.ID, query)

	suite.NoError(err)
	suite.Equal([]*models.Product{suite.mug}, products)
}

func (suite *FilterServiceTestSuite) TestGetFilteredProducts_UnknownCategory() {
	ctx := context.Background()

	suite.cache.On("GetProducts", ctx, mock.Anything).Return(nil, false, nil)
	suite.cache.On("Generation", ctx, mock.Anything).Return(caching.Generation{}, nil)
	suite.categoryRepo.On("ListAll", ctx).Return([]*models.Category{suite.root}, nil)

	products, err := suite.service.GetFilteredProducts(ctx, uuid.New(), models.FilterQuery{})

	suite.Nil(products)
	suite.ErrorIs(err, repositories.ErrNotFound)
}

func (suite *FilterServiceTestSuite) TestGetFilteredProducts_UnknownAttribute() {
	ctx := context.Background()
	query := models.FilterQuery{Predicates: []models.Predicate{{AttributeID: uuid.New(), Value: "x"}}}

	suite.cache.On("GetProducts", ctx, mock.Anything).Return(nil, false, nil)
	suite.cache.On("Generation", ctx, suite.root.ID).Return(caching.Generation{}, nil)
	suite.categoryRepo.On("ListAll", ctx).Return([]*models.Category{suite.root}, nil)
	suite.attributeRepo.On("ListWithOptions", ctx).Return([]*models.Attribute{suite.color}, nil)

	_, err := suite.service.GetFilteredProducts(ctx, suite.root.ID, query)

	suite.ErrorIs(err, catalog.ErrUnknownAttribute)
}

func (suite *FilterServiceTestSuite) TestGetFacets_CountsFamiliesOnce() {
	ctx := context.Background()

	suite.cache.On("GetFacets", ctx, mock.Anything).Return(nil, false, nil)
	suite.expectCatalog("")
	suite.cache.On("SetFacets", ctx, mock.Anything, mock.Anything).Return(nil)

	groups, err := suite.service.GetFacets(ctx, suite.root.ID, models.FilterQuery{})

	suite.NoError(err)
	suite.Require().Len(groups, 1)
	suite.Equal(suite.color.ID, groups[0].AttributeID)
	suite.Require().Len(groups[0].Items, 2)
	suite.Equal("Red", groups[0].Items[0].DisplayName)
	suite.Equal(1, groups[0].Items[0].Count)
	suite.Equal("Blue", groups[0].Items[1].DisplayName)
	suite.Equal(2, groups[0].Items[1].Count)
}

func (suite *FilterServiceTestSuite) TestGetFacets_SelectedValueIsMarked() {
	ctx := context.Background()
	query := models.FilterQuery{Predicates: []models.Predicate{suite.redPredicate()}}

	suite.cache.On("GetFacets", ctx, mock.Anything).Return(nil, false, nil)
	suite.expectCatalog("")
	suite.cache.On("SetFacets", ctx, mock.Anything, mock.Anything).Return(nil)

	groups, err := suite.service.GetFacets(ctx, suite.root.ID, query)

	suite.NoError(err)
	suite.Require().Len(groups, 1)
	suite.Require().Len(groups[0].Items, 1)
	suite.True(groups[0].Items[0].IsSelected)
	suite.False(groups[0].Items[0].ShowQuantity)
}

func (suite *FilterServiceTestSuite) TestGetPriceFilters_IgnoresPriceRange() {
	ctx := context.Background()
	query := models.FilterQuery{PriceRange: &models.NumericRange{Min: 5, Max: 10}}
	key := caching.ResultKey{CategoryID: suite.root.ID, Kind: caching.KindPrices, Query: models.FilterQuery{}}
	want := []models.PriceBucket{{Min: 1, Max: 10, Quantity: 1}, {Min: 11, Max: 20, Quantity: 1}}

	suite.cache.On("GetPriceBuckets", ctx, key).Return(nil, false, nil)
	suite.expectCatalog("")
	suite.cache.On("SetPriceBuckets", ctx, key, want).Return(nil)

	buckets, err := suite.service.GetPriceFilters(ctx, suite.root.ID, query)

	suite.NoError(err)
	suite.Equal(want, buckets)
}

func (suite *FilterServiceTestSuite) TestGetFacets_UnknownGenerationIsNotCached() {
	ctx := context.Background()

	suite.cache.On("GetFacets", ctx, mock.Anything).Return(nil, false, nil)
	suite.cache.On("Generation", ctx, suite.root.ID).Return(caching.Generation{}, errors.New("connection refused"))
	suite.expectRepositories("")
	suite.valueRepo.On("ListForProducts", mock.Anything, mock.Anything).Return(suite.values, nil)

	groups, err := suite.service.GetFacets(ctx, suite.root.ID, models.FilterQuery{})

	suite.NoError(err)
	suite.Len(groups, 1)
	suite.cache.AssertNotCalled(suite.T(), "SetFacets", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *FilterServiceTestSuite) TestGetFilteredProducts_InvalidationDuringLoadIsNotCached() {
	ctx := context.Background()
	cache := newMemoryResultCache()
	service := NewFilterService(suite.productRepo, suite.categoryRepo, suite.attributeRepo, suite.valueRepo, cache, zap.NewNop())
	query := models.FilterQuery{Predicates: []models.Predicate{suite.redPredicate()}}

	redMug := testhelpers.Value(suite.mug, suite.color, testhelpers.OptionValue(suite.color, "Red"))
	before := []models.AttributeValue{suite.values[0], suite.values[1], redMug}

	suite.expectRepositories("")
	// the mug is recolored blue while the first listing is being computed
	suite.valueRepo.On("ListForProducts", mock.Anything, mock.Anything).Return(before, nil).Once().
		Run(func(mock.Arguments) {
			suite.NoError(cache.InvalidateCategories(ctx, []uuid.UUID{suite.root.ID}))
		})
	suite.valueRepo.On("ListForProducts", mock.Anything, mock.Anything).Return(suite.values, nil).Once()

	first, err := service.GetFilteredProducts(ctx, suite.root.ID, query)
	suite.NoError(err)
	suite.Equal([]*models.Product{suite.shirt, suite.mug}, first)

	second, err := service.GetFilteredProducts(ctx, suite.root.ID, query)
	suite.NoError(err)
	suite.Equal([]*models.Product{suite.shirt}, second, "the result computed before the change must not be served")

	third, err := service.GetFilteredProducts(ctx, suite.root.ID, query)
	suite.NoError(err)
	suite.Equal([]*models.Product{suite.shirt}, third)
}

// memoryResultCache follows the redis cache's generation rules: a write lands
// only while the generations it was computed under are current.
type memoryResultCache struct {
	caching.ResultCache

	mu       sync.Mutex
	all      int64
	category map[uuid.UUID]int64
	products map[uuid.UUID]map[string][]*models.Product
}

func newMemoryResultCache() *memoryResultCache {
	return &memoryResultCache{
		category: make(map[uuid.UUID]int64),
		products: make(map[uuid.UUID]map[string][]*models.Product),
	}
}

func (c *memoryResultCache) current(categoryID uuid.UUID) caching.Generation {
	return caching.Generation{All: c.all, Category: c.category[categoryID]}
}

func (c *memoryResultCache) Generation(_ context.Context, categoryID uuid.UUID) (caching.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current(categoryID), nil
}

func (c *memoryResultCache) GetProducts(_ context.Context, key caching.ResultKey) ([]*models.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	products, ok := c.products[key.CategoryID][key.Canonical()]
	return products, ok, nil
}

func (c *memoryResultCache) SetProducts(_ context.Context, key caching.ResultKey, products []*models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key.Generation != c.current(key.CategoryID) {
		return nil
	}
	if c.products[key.CategoryID] == nil {
		c.products[key.CategoryID] = make(map[string][]*models.Product)
	}
	c.products[key.CategoryID][key.Canonical()] = products
	return nil
}

func (c *memoryResultCache) InvalidateCategories(_ context.Context, categoryIDs []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range categoryIDs {
		c.category[id]++
		delete(c.products, id)
	}
	return nil
}

func TestFilterByPriceKeepsFamilyWithVariantInRange(t *testing.T) {
	parent := testhelpers.NewParent("lamp", 100)
	cheap := testhelpers.NewVariant(parent, "lamp-small")
	cheap.ActivePrice = true
	cheap.Price = 40

	out, err := filterByPrice([]*models.Product{parent},
		map[uuid.UUID][]*models.Product{parent.ID: {cheap}},
		models.NumericRange{Min: 30, Max: 50})

	assert.NoError(t, err)
	assert.Equal(t, []*models.Product{parent}, out)
}
