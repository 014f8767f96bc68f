package services

import (
	"context"
	"errors"
	"fmt"

	"catalogfacets/internal/catalog"
	"catalogfacets/internal/models"
	"catalogfacets/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNoVariants = errors.New("product has no variants")

type ProductService interface {
	GetView(ctx context.Context, id uuid.UUID) (*models.ProductView, error)
	FindVariant(ctx context.Context, parentID uuid.UUID, options map[uuid.UUID]string) (*models.ProductView, error)
	RefreshFamilyPrices(ctx context.Context, productID uuid.UUID) error
	RefreshEffectivePrices(ctx context.Context) (int, error)
}

type productService struct {
	productRepo  repositories.ProductRepository
	valueRepo    repositories.AttributeValueRepository
	minioService MinioService
	log          *zap.Logger
}

func NewProductService(productRepo repositories.ProductRepository, valueRepo repositories.AttributeValueRepository, minioService MinioService, log *zap.Logger) ProductService {
	return &productService{
		productRepo:  productRepo,
		valueRepo:    valueRepo,
		minioService: minioService,
		log:          log,
	}
}

// GetView resolves a product for display. Image keys become presigned URLs.
func (s *productService) GetView(ctx context.Context, id uuid.UUID) (*models.ProductView, error) {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *productService) view(ctx context.Context, p *models.Product) (*models.ProductView, error) {
	v, err := catalog.View(p)
	if err != nil {
		s.log.Error("cannot resolve product", zap.String("product_id", p.ID.String()), zap.Error(err))
		return nil, err
	}

	urls := make([]string, 0, len(v.Images))
	for _, key := range v.Images {
		url, err := s.minioService.ImageURL(ctx, key)
		if err != nil {
			s.log.Warn("image url unavailable", zap.String("object", key), zap.Error(err))
			continue
		}
		urls = append(urls, url)
	}
	v.Images = urls

	if v.CategoryIDs, err = s.productRepo.CategoryIDs(ctx, p.ID); err != nil {
		return nil, err
	}
	return v, nil
}

// FindVariant picks the variant of parentID matching the selected options.
func (s *productService) FindVariant(ctx context.Context, parentID uuid.UUID, options map[uuid.UUID]string) (*models.ProductView, error) {
	parent, err := s.productRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.IsVariant() {
		return nil, fmt.Errorf("product %s is a variant: %w", parentID, repositories.ErrNotFound)
	}

	variants, err := s.productRepo.ListVariants(ctx, []uuid.UUID{parentID})
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}
	catalog.LinkVariants([]*models.Product{parent}, variants)

	ids := make([]uuid.UUID, 0, len(variants))
	for _, v := range variants {
		ids = append(ids, v.ID)
	}
	values, err := s.valueRepo.ListForProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	return s.view(ctx, catalog.FindVariant(parent, variants, values, options))
}

// RefreshFamilyPrices recomputes the stored effective price of a product's whole family.
func (s *productService) RefreshFamilyPrices(ctx context.Context, productID uuid.UUID) error {
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	owner := p
	if p.IsVariant() {
		if p.Parent == nil {
			return fmt.Errorf("variant %s: %w", p.ID, catalog.ErrMalformedVariantGraph)
		}
		owner = p.Parent
	}

	variants, err := s.productRepo.ListVariants(ctx, []uuid.UUID{owner.ID})
	if err != nil {
		return err
	}
	catalog.LinkVariants([]*models.Product{owner}, variants)

	_, err = s.storePrices(ctx, append([]*models.Product{owner}, variants...))
	return err
}

// RefreshEffectivePrices recomputes every stored effective price and returns how many changed.
func (s *productService) RefreshEffectivePrices(ctx context.Context) (int, error) {
	all, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	var owners, variants []*models.Product
	for _, p := range all {
		if p.IsVariant() {
			variants = append(variants, p)
		} else {
			owners = append(owners, p)
		}
	}
	catalog.LinkVariants(owners, variants)
	return s.storePrices(ctx, all)
}

func (s *productService) storePrices(ctx context.Context, products []*models.Product) (int, error) {
	updated := 0
	for _, p := range products {
		price, err := catalog.EffectivePrice(p)
		if err != nil {
			s.log.Error("skipping effective price", zap.String("product_id", p.ID.String()), zap.Error(err))
			continue
		}
		if price == p.EffectivePrice {
			continue
		}
		if err := s.productRepo.UpdateEffectivePrice(ctx, p.ID, price); err != nil {
			return updated, err
		}
		p.EffectivePrice = price
		updated++
	}
	return updated, nil
}
