package handlers

import (
	"context"

	"catalogfacets/internal/caching"
	"catalogfacets/internal/models"
	"catalogfacets/internal/services"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
)

type MockFilterService struct {
	mock.Mock
}

func (m *MockFilterService) GetFilteredProducts(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]*models.Product, error) {
	args := m.Called(ctx, categoryID, query)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockFilterService) GetFacets(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]models.FacetGroup, error) {
	args := m.Called(ctx, categoryID, query)
	groups, _ := args.Get(0).([]models.FacetGroup)
	return groups, args.Error(1)
}

func (m *MockFilterService) GetPriceFilters(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]models.PriceBucket, error) {
	args := m.Called(ctx, categoryID, query)
	buckets, _ := args.Get(0).([]models.PriceBucket)
	return buckets, args.Error(1)
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetView(ctx context.Context, id uuid.UUID) (*models.ProductView, error) {
	args := m.Called(ctx, id)
	view, _ := args.Get(0).(*models.ProductView)
	return view, args.Error(1)
}

func (m *MockProductService) FindVariant(ctx context.Context, parentID uuid.UUID, options map[uuid.UUID]string) (*models.ProductView, error) {
	args := m.Called(ctx, parentID, options)
	view, _ := args.Get(0).(*models.ProductView)
	return view, args.Error(1)
}

func (m *MockProductService) RefreshFamilyPrices(ctx context.Context, productID uuid.UUID) error {
	return m.Called(ctx, productID).Error(0)
}

func (m *MockProductService) RefreshEffectivePrices(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockAttributeValueService struct {
	mock.Mock
}

func (m *MockAttributeValueService) SetVariantValues(ctx context.Context, productID uuid.UUID, values map[uuid.UUID]string) ([]models.AttributeValue, error) {
	args := m.Called(ctx, productID, values)
	rows, _ := args.Get(0).([]models.AttributeValue)
	return rows, args.Error(1)
}

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) ProductChanged(ctx context.Context, event services.ProductChangedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventService) CategoryChanged(ctx context.Context, categoryID uuid.UUID) error {
	return m.Called(ctx, categoryID).Error(0)
}

func (m *MockEventService) AttributeTypeChanged(ctx context.Context, attributeID uuid.UUID, newType models.AttributeType) error {
	return m.Called(ctx, attributeID, newType).Error(0)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockResultCache struct {
	caching.ResultCache
	mock.Mock
}

func (m *MockResultCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockMinioService struct {
	mock.Mock
}

func (m *MockMinioService) ImageURL(ctx context.Context, objectName string) (string, error) {
	args := m.Called(ctx, objectName)
	return args.String(0), args.Error(1)
}

func (m *MockMinioService) EnsureBucketExists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockMinioService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
