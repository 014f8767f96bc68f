package handlers

import (
	"errors"
	"net/http"

	"catalogfacets/internal/common"
	"catalogfacets/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ProductHandlers handles HTTP requests for resolved products
type ProductHandlers struct {
	productService services.ProductService
	valueService   services.AttributeValueService
}

// NewProductHandlers creates a new product handlers instance
func NewProductHandlers(productService services.ProductService, valueService services.AttributeValueService) *ProductHandlers {
	return &ProductHandlers{
		productService: productService,
		valueService:   valueService,
	}
}

// GetProduct handles GET /products/:id
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "product_id")
	if err != nil {
		return common.SendValidationError(c, "product_id", err.Error())
	}

	view, err := h.productService.GetView(c.Request().Context(), id)
	if err != nil {
		return common.SendServiceError(c, "Product", err)
	}
	return c.JSON(http.StatusOK, view)
}

// FindVariant handles GET /products/:id/variant?<attribute id>=<option>
func (h *ProductHandlers) FindVariant(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "product_id")
	if err != nil {
		return common.SendValidationError(c, "product_id", err.Error())
	}

	options := make(map[uuid.UUID]string)
	for key, values := range c.QueryParams() {
		attributeID, err := uuid.Parse(key)
		if err != nil {
			return common.SendValidationError(c, key, "is not an attribute id")
		}
		if len(values) > 0 && values[0] != "" {
			options[attributeID] = values[0]
		}
	}

	view, err := h.productService.FindVariant(c.Request().Context(), id, options)
	if errors.Is(err, services.ErrNoVariants) {
		return common.SendNotFoundError(c, "Variant")
	}
	if err != nil {
		return common.SendServiceError(c, "Product", err)
	}
	return c.JSON(http.StatusOK, view)
}

// SetAttributeValues handles PUT /products/:id/attribute-values
func (h *ProductHandlers) SetAttributeValues(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "product_id")
	if err != nil {
		return common.SendValidationError(c, "product_id", err.Error())
	}

	var req struct {
		Values map[uuid.UUID]string `json:"values"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	rows, err := h.valueService.SetVariantValues(c.Request().Context(), id, req.Values)
	if err != nil {
		return common.SendServiceError(c, "Product", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"product_id": id,
		"values":     rows,
	})
}
