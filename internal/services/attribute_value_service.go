package services

import (
	"context"
	"strconv"

	"catalogfacets/internal/catalog"
	"catalogfacets/internal/models"
	"catalogfacets/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttributeValueService writes the attribute values that tell variants apart
type AttributeValueService interface {
	SetVariantValues(ctx context.Context, productID uuid.UUID, values map[uuid.UUID]string) ([]models.AttributeValue, error)
}

type attributeValueService struct {
	productRepo   repositories.ProductRepository
	attributeRepo repositories.AttributeRepository
	valueRepo     repositories.AttributeValueRepository
	events        EventService
	log           *zap.Logger
}

func NewAttributeValueService(
	productRepo repositories.ProductRepository,
	attributeRepo repositories.AttributeRepository,
	valueRepo repositories.AttributeValueRepository,
	events EventService,
	log *zap.Logger,
) AttributeValueService {
	return &attributeValueService{
		productRepo:   productRepo,
		attributeRepo: attributeRepo,
		valueRepo:     valueRepo,
		events:        events,
		log:           log,
	}
}

// SetVariantValues replaces the product's attribute values. Each row carries the
// family id and, for numbers, the parsed numeric value.
func (s *attributeValueService) SetVariantValues(ctx context.Context, productID uuid.UUID, values map[uuid.UUID]string) ([]models.AttributeValue, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	attributes, err := s.attributeRepo.ListWithOptions(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Attribute, len(attributes))
	for _, a := range attributes {
		byID[a.ID] = a
	}

	rows := make([]models.AttributeValue, 0, len(values))
	for attributeID, value := range values {
		attr, ok := byID[attributeID]
		if !ok {
			return nil, &catalog.AttributeError{AttributeID: attributeID.String(), Reason: "does not exist"}
		}
		row := models.AttributeValue{
			ProductID:   product.ID,
			AttributeID: attributeID,
			Value:       value,
			ParentID:    product.FamilyID(),
		}
		switch attr.Type {
		case models.AttributeTypeSelect:
			if _, ok := attr.Option(value); !ok {
				return nil, &catalog.AttributeError{AttributeID: attributeID.String(), Reason: "unknown option " + value}
			}
		case models.AttributeTypeNumber:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, &catalog.AttributeError{AttributeID: attributeID.String(), Reason: "value is not numeric"}
			}
			row.ValueAsFloat = &f
		}
		rows = append(rows, row)
	}

	if err := s.valueRepo.ReplaceForProduct(ctx, product.ID, rows); err != nil {
		return nil, err
	}
	if err := s.events.ProductChanged(ctx, ProductChangedEvent{ProductID: product.ID}); err != nil {
		s.log.Warn("product change not propagated", zap.String("product_id", product.ID.String()), zap.Error(err))
		return rows, err
	}
	return rows, nil
}
