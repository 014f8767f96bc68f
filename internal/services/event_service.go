package services

import (
	"context"
	"errors"
	"fmt"

	"catalogfacets/internal/caching"
	"catalogfacets/internal/catalog"
	"catalogfacets/internal/models"
	"catalogfacets/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidAttributeType = errors.New("invalid attribute type")

// ProductChangedEvent is sent by the catalog editor after a product mutation.
// PreviousCategoryIDs lists categories the product was removed from.
type ProductChangedEvent struct {
	ProductID           uuid.UUID   `json:"product_id"`
	PreviousCategoryIDs []uuid.UUID `json:"previous_category_ids,omitempty"`
}

// PriceRefresher keeps stored effective prices current
type PriceRefresher interface {
	RefreshFamilyPrices(ctx context.Context, productID uuid.UUID) error
}

// EventService reacts to catalog mutations by refreshing derived data and
// dropping cached filter results.
type EventService interface {
	ProductChanged(ctx context.Context, event ProductChangedEvent) error
	CategoryChanged(ctx context.Context, categoryID uuid.UUID) error
	AttributeTypeChanged(ctx context.Context, attributeID uuid.UUID, newType models.AttributeType) error
}

type eventService struct {
	productRepo   repositories.ProductRepository
	categoryRepo  repositories.CategoryRepository
	attributeRepo repositories.AttributeRepository
	prices        PriceRefresher
	cache         caching.ResultCache
	log           *zap.Logger
}

func NewEventService(
	productRepo repositories.ProductRepository,
	categoryRepo repositories.CategoryRepository,
	attributeRepo repositories.AttributeRepository,
	prices PriceRefresher,
	cache caching.ResultCache,
	log *zap.Logger,
) EventService {
	return &eventService{
		productRepo:   productRepo,
		categoryRepo:  categoryRepo,
		attributeRepo: attributeRepo,
		prices:        prices,
		cache:         cache,
		log:           log,
	}
}

// ProductChanged refreshes the family's effective prices, then invalidates the
// product's categories and all of their ancestors.
func (s *eventService) ProductChanged(ctx context.Context, event ProductChangedEvent) error {
	if err := s.prices.RefreshFamilyPrices(ctx, event.ProductID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("refresh prices: %w", err)
	}

	categoryIDs, err := s.productRepo.CategoryIDs(ctx, event.ProductID)
	if err != nil {
		return err
	}
	categoryIDs = append(categoryIDs, event.PreviousCategoryIDs...)

	affected, err := s.withAncestors(ctx, categoryIDs)
	if err != nil {
		return err
	}
	s.log.Info("product changed",
		zap.String("product_id", event.ProductID.String()),
		zap.Int("categories", len(affected)))
	return s.cache.InvalidateCategories(ctx, affected)
}

// CategoryChanged drops every cached result: moving a category or toggling
// show_all_products changes the listings of its whole ancestry.
func (s *eventService) CategoryChanged(ctx context.Context, categoryID uuid.UUID) error {
	s.log.Info("category changed", zap.String("category_id", categoryID.String()))
	return s.cache.InvalidateAll(ctx)
}

// AttributeTypeChanged deletes all stored values of the attribute and switches
// its type in one transaction. Values are not converted.
func (s *eventService) AttributeTypeChanged(ctx context.Context, attributeID uuid.UUID, newType models.AttributeType) error {
	if !newType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAttributeType, newType)
	}
	attr, err := s.attributeRepo.GetByID(ctx, attributeID)
	if err != nil {
		return err
	}
	if attr.Type == newType {
		return nil
	}

	deleted, err := s.attributeRepo.ChangeType(ctx, attributeID, newType)
	if err != nil {
		return err
	}
	s.log.Info("attribute type changed",
		zap.String("attribute_id", attributeID.String()),
		zap.String("from", string(attr.Type)),
		zap.String("to", string(newType)),
		zap.Int64("deleted_values", deleted))
	return s.cache.InvalidateAll(ctx)
}

func (s *eventService) withAncestors(ctx context.Context, categoryIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tree := catalog.NewCategoryTree(categories)

	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range categoryIDs {
		add(id)
		ancestors, err := tree.Ancestors(id)
		if err != nil {
			s.log.Error("category tree is malformed", zap.Error(err))
			return nil, err
		}
		for _, a := range ancestors {
			add(a)
		}
	}
	return out, nil
}
