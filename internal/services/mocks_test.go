package services

import (
	"context"

	"catalogfacets/internal/caching"
	"catalogfacets/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) ListByCategories(ctx context.Context, categoryIDs []uuid.UUID, sort string) ([]*models.Product, error) {
	args := m.Called(ctx, categoryIDs, sort)
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) ListVariants(ctx context.Context, parentIDs []uuid.UUID) ([]*models.Product, error) {
	args := m.Called(ctx, parentIDs)
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) ListAll(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) CategoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockProductRepository) UpdateEffectivePrice(ctx context.Context, id uuid.UUID, price float64) error {
	args := m.Called(ctx, id, price)
	return args.Error(0)
}

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) ListAll(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Category), args.Error(1)
}

type MockAttributeRepository struct {
	mock.Mock
}

func (m *MockAttributeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Attribute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attribute), args.Error(1)
}

func (m *MockAttributeRepository) ListWithOptions(ctx context.Context) ([]*models.Attribute, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Attribute), args.Error(1)
}

func (m *MockAttributeRepository) ChangeType(ctx context.Context, id uuid.UUID, attrType models.AttributeType) (int64, error) {
	args := m.Called(ctx, id, attrType)
	return args.Get(0).(int64), args.Error(1)
}

type MockAttributeValueRepository struct {
	mock.Mock
}

func (m *MockAttributeValueRepository) ListForProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.AttributeValue, error) {
	args := m.Called(ctx, productIDs)
	return args.Get(0).([]models.AttributeValue), args.Error(1)
}

func (m *MockAttributeValueRepository) ReplaceForProduct(ctx context.Context, productID uuid.UUID, values []models.AttributeValue) error {
	args := m.Called(ctx, productID, values)
	return args.Error(0)
}

type MockResultCache struct {
	mock.Mock
}

func (m *MockResultCache) Generation(ctx context.Context, categoryID uuid.UUID) (caching.Generation, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(caching.Generation), args.Error(1)
}

func (m *MockResultCache) GetProducts(ctx context.Context, key caching.ResultKey) ([]*models.Product, bool, error) {
	args := m.Called(ctx, key)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Bool(1), args.Error(2)
}

func (m *MockResultCache) SetProducts(ctx context.Context, key caching.ResultKey, products []*models.Product) error {
	args := m.Called(ctx, key, products)
	return args.Error(0)
}

func (m *MockResultCache) GetFacets(ctx context.Context, key caching.ResultKey) ([]models.FacetGroup, bool, error) {
	args := m.Called(ctx, key)
	groups, _ := args.Get(0).([]models.FacetGroup)
	return groups, args.Bool(1), args.Error(2)
}

func (m *MockResultCache) SetFacets(ctx context.Context, key caching.ResultKey, groups []models.FacetGroup) error {
	args := m.Called(ctx, key, groups)
	return args.Error(0)
}

func (m *MockResultCache) GetPriceBuckets(ctx context.Context, key caching.ResultKey) ([]models.PriceBucket, bool, error) {
	args := m.Called(ctx, key)
	buckets, _ := args.Get(0).([]models.PriceBucket)
	return buckets, args.Bool(1), args.Error(2)
}

func (m *MockResultCache) SetPriceBuckets(ctx context.Context, key caching.ResultKey, buckets []models.PriceBucket) error {
	args := m.Called(ctx, key, buckets)
	return args.Error(0)
}

func (m *MockResultCache) InvalidateCategories(ctx context.Context, categoryIDs []uuid.UUID) error {
	args := m.Called(ctx, categoryIDs)
	return args.Error(0)
}

func (m *MockResultCache) InvalidateAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockResultCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockMinioService struct {
	mock.Mock
}

func (m *MockMinioService) ImageURL(ctx context.Context, objectName string) (string, error) {
	args := m.Called(ctx, objectName)
	return args.String(0), args.Error(1)
}

func (m *MockMinioService) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMinioService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockPriceRefresher struct {
	mock.Mock
}

func (m *MockPriceRefresher) RefreshFamilyPrices(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) ProductChanged(ctx context.Context, event ProductChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventService) CategoryChanged(ctx context.Context, categoryID uuid.UUID) error {
	args := m.Called(ctx, categoryID)
	return args.Error(0)
}

func (m *MockEventService) AttributeTypeChanged(ctx context.Context, attributeID uuid.UUID, newType models.AttributeType) error {
	args := m.Called(ctx, attributeID, newType)
	return args.Error(0)
}
