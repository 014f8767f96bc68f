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

// FilterService answers the storefront's category listing questions: which
// products survive the filters, which facet values remain and which price
// ranges exist.
type FilterService interface {
	GetFilteredProducts(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]*models.Product, error)
	GetFacets(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]models.FacetGroup, error)
	GetPriceFilters(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]models.PriceBucket, error)
}

type filterService struct {
	productRepo   repositories.ProductRepository
	categoryRepo  repositories.CategoryRepository
	attributeRepo repositories.AttributeRepository
	valueRepo     repositories.AttributeValueRepository
	cache         caching.ResultCache
	log           *zap.Logger
}

func NewFilterService(
	productRepo repositories.ProductRepository,
	categoryRepo repositories.CategoryRepository,
	attributeRepo repositories.AttributeRepository,
	valueRepo repositories.AttributeValueRepository,
	cache caching.ResultCache,
	log *zap.Logger,
) FilterService {
	return &filterService{
		productRepo:   productRepo,
		categoryRepo:  categoryRepo,
		attributeRepo: attributeRepo,
		valueRepo:     valueRepo,
		cache:         cache,
		log:           log,
	}
}

// listing is the catalog snapshot one request works on
type listing struct {
	predicates []models.Predicate
	attributes []*models.Attribute
	variants   map[uuid.UUID][]*models.Product
	values     []models.AttributeValue
	matched    []*models.Product
}

func (s *filterService) load(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) (*listing, error) {
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tree := catalog.NewCategoryTree(categories)
	if _, ok := tree.Get(categoryID); !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, repositories.ErrNotFound)
	}

	attributes, err := s.attributeRepo.ListWithOptions(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Attribute, len(attributes))
	for _, a := range attributes {
		byID[a.ID] = a
	}
	predicates, err := catalog.NormalizePredicates(query.Predicates, byID)
	if err != nil {
		return nil, err
	}

	scope, err := tree.Scope(categoryID)
	if err != nil {
		return nil, s.graphError(err)
	}
	products, err := s.productRepo.ListByCategories(ctx, scope, query.Sort)
	if err != nil {
		return nil, err
	}
	candidates := catalog.CandidateProducts(products)

	parentIDs := make([]uuid.UUID, 0, len(candidates))
	for _, p := range candidates {
		parentIDs = append(parentIDs, p.ID)
	}
	variantRows, err := s.productRepo.ListVariants(ctx, parentIDs)
	if err != nil {
		return nil, err
	}
	variants := catalog.LinkVariants(candidates, variantRows)

	expanded := catalog.ExpandFamilies(candidates, variants)
	productIDs := make([]uuid.UUID, 0, len(expanded))
	for _, p := range expanded {
		productIDs = append(productIDs, p.ID)
	}
	values, err := s.valueRepo.ListForProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	matched, err := catalog.Match(candidates, values, predicates, byID)
	if err != nil {
		return nil, err
	}
	if query.PriceRange != nil {
		if matched, err = filterByPrice(matched, variants, *query.PriceRange); err != nil {
			return nil, s.graphError(err)
		}
	}

	return &listing{
		predicates: predicates,
		attributes: attributes,
		variants:   variants,
		values:     values,
		matched:    matched,
	}, nil
}

// filterByPrice keeps families with at least one member priced inside r
func filterByPrice(products []*models.Product, variants map[uuid.UUID][]*models.Product, r models.NumericRange) ([]*models.Product, error) {
	out := make([]*models.Product, 0, len(products))
	for _, p := range products {
		members := append([]*models.Product{p}, variants[p.ID]...)
		for _, m := range members {
			price, err := catalog.EffectivePrice(m)
			if err != nil {
				return nil, err
			}
			if r.Contains(price) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// generation stamps key with the cache generation before the snapshot is
// read. It reports false when the generation is unknown; the result must not
// be cached then.
func (s *filterService) generation(ctx context.Context, key *caching.ResultKey) bool {
	gen, err := s.cache.Generation(ctx, key.CategoryID)
	if err != nil {
		s.log.Warn("result cache generation unavailable", zap.String("kind", string(key.Kind)), zap.Error(err))
		return false
	}
	key.Generation = gen
	return true
}

func (s *filterService) graphError(err error) error {
	if errors.Is(err, catalog.ErrMalformedVariantGraph) {
		s.log.Error("catalog graph is malformed", zap.Error(err))
	}
	return err
}

func (s *filterService) GetFilteredProducts(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]*models.Product, error) {
	key := caching.ResultKey{CategoryID: categoryID, Kind: caching.KindProducts, Query: query}
	if cached, ok, err := s.cache.GetProducts(ctx, key); err != nil {
		s.log.Warn("result cache read failed", zap.String("kind", string(key.Kind)), zap.Error(err))
	} else if ok {
		return cached, nil
	}
	cacheable := s.generation(ctx, &key)

	l, err := s.load(ctx, categoryID, query)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetProducts(ctx, key, l.matched); err != nil {
			s.log.Warn("result cache write failed", zap.String("kind", string(key.Kind)), zap.Error(err))
		}
	}
	return l.matched, nil
}

func (s *filterService) GetFacets(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]models.FacetGroup, error) {
	key := caching.ResultKey{CategoryID: categoryID, Kind: caching.KindFacets, Query: query}
	if cached, ok, err := s.cache.GetFacets(ctx, key); err != nil {
		s.log.Warn("result cache read failed", zap.String("kind", string(key.Kind)), zap.Error(err))
	} else if ok {
		return cached, nil
	}
	cacheable := s.generation(ctx, &key)

	l, err := s.load(ctx, categoryID, query)
	if err != nil {
		return nil, err
	}

	groups, misses := catalog.Facets(catalog.FamilyIDs(l.matched), l.values, l.attributes, l.predicates)
	for _, miss := range misses {
		s.log.Debug("attribute value references a missing option",
			zap.String("attribute_id", miss.AttributeID.String()),
			zap.String("value", miss.Value))
	}
	if groups == nil {
		groups = []models.FacetGroup{}
	}

	if cacheable {
		if err := s.cache.SetFacets(ctx, key, groups); err != nil {
			s.log.Warn("result cache write failed", zap.String("kind", string(key.Kind)), zap.Error(err))
		}
	}
	return groups, nil
}

// GetPriceFilters buckets the prices of the filtered families. The requested
// price range itself is ignored so every bucket stays selectable.
func (s *filterService) GetPriceFilters(ctx context.Context, categoryID uuid.UUID, query models.FilterQuery) ([]models.PriceBucket, error) {
	query.PriceRange = nil
	key := caching.ResultKey{CategoryID: categoryID, Kind: caching.KindPrices, Query: query}
	if cached, ok, err := s.cache.GetPriceBuckets(ctx, key); err != nil {
		s.log.Warn("result cache read failed", zap.String("kind", string(key.Kind)), zap.Error(err))
	} else if ok {
		return cached, nil
	}
	cacheable := s.generation(ctx, &key)

	l, err := s.load(ctx, categoryID, query)
	if err != nil {
		return nil, err
	}

	priced, err := catalog.PriceProducts(catalog.ExpandFamilies(l.matched, l.variants))
	if err != nil {
		return nil, s.graphError(err)
	}
	buckets := catalog.PriceBuckets(priced)

	if cacheable {
		if err := s.cache.SetPriceBuckets(ctx, key, buckets); err != nil {
			s.log.Warn("result cache write failed", zap.String("kind", string(key.Kind)), zap.Error(err))
		}
	}
	return buckets, nil
}
