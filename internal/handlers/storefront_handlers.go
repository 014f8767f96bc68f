package handlers

import (
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"

	"catalogfacets/internal/catalog"
	"catalogfacets/internal/common"
	"catalogfacets/internal/models"
	"catalogfacets/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// reserved query keys that are not attribute predicates
const (
	querySort     = "sort"
	queryPriceMin = "price_min"
	queryPriceMax = "price_max"
)

// StorefrontHandlers serves the filtered category listings
type StorefrontHandlers struct {
	filterService services.FilterService
}

func NewStorefrontHandlers(filterService services.FilterService) *StorefrontHandlers {
	return &StorefrontHandlers{filterService: filterService}
}

// parseFilterQuery reads predicates, the price range and the sort key from
// the query string. Every non-reserved key must be an attribute id.
func parseFilterQuery(c echo.Context) (models.FilterQuery, error) {
	params := c.QueryParams()
	query := models.FilterQuery{Sort: params.Get(querySort)}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case querySort, queryPriceMin, queryPriceMax:
			continue
		}
		attributeID, err := uuid.Parse(key)
		if err != nil {
			return query, &catalog.AttributeError{AttributeID: key, Reason: "is not an attribute id"}
		}
		for _, value := range params[key] {
			if value == "" {
				continue
			}
			query.Predicates = append(query.Predicates, models.Predicate{AttributeID: attributeID, Value: value})
		}
	}

	priceRange, err := parsePriceRange(params.Get(queryPriceMin), params.Get(queryPriceMax))
	if err != nil {
		return query, err
	}
	query.PriceRange = priceRange
	return query, nil
}

// fieldError is a malformed request field reported as a validation error
type fieldError struct {
	field   string
	message string
}

func (e *fieldError) Error() string {
	return e.field + " " + e.message
}

func sendRequestError(c echo.Context, err error) error {
	var fe *fieldError
	if errors.As(err, &fe) {
		return common.SendValidationError(c, fe.field, fe.message)
	}
	return common.SendServiceError(c, "Category", err)
}

func parsePriceRange(minRaw, maxRaw string) (*models.NumericRange, error) {
	if minRaw == "" && maxRaw == "" {
		return nil, nil
	}
	r := models.NumericRange{Min: 0, Max: math.MaxFloat64}
	if minRaw != "" {
		v, err := strconv.ParseFloat(minRaw, 64)
		if err != nil || v < 0 {
			return nil, &fieldError{field: queryPriceMin, message: "must be a non-negative number"}
		}
		r.Min = v
	}
	if maxRaw != "" {
		v, err := strconv.ParseFloat(maxRaw, 64)
		if err != nil || v < 0 {
			return nil, &fieldError{field: queryPriceMax, message: "must be a non-negative number"}
		}
		r.Max = v
	}
	if r.Min > r.Max {
		return nil, &fieldError{field: queryPriceMin, message: "cannot exceed price_max"}
	}
	return &r, nil
}

// request extracts the category id and filter query shared by all listing routes
func (h *StorefrontHandlers) request(c echo.Context) (uuid.UUID, models.FilterQuery, error) {
	categoryID, err := common.ValidateUUID(c.Param("id"), "category_id")
	if err != nil {
		return uuid.Nil, models.FilterQuery{}, &fieldError{field: "category_id", message: err.Error()}
	}
	query, err := parseFilterQuery(c)
	if err != nil {
		return uuid.Nil, query, err
	}
	return categoryID, query, nil
}

// ListProducts handles GET /categories/:id/products
func (h *StorefrontHandlers) ListProducts(c echo.Context) error {
	categoryID, query, err := h.request(c)
	if err != nil {
		return sendRequestError(c, err)
	}

	products, err := h.filterService.GetFilteredProducts(c.Request().Context(), categoryID, query)
	if err != nil {
		return common.SendServiceError(c, "Category", err)
	}
	if products == nil {
		products = []*models.Product{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"category_id": categoryID,
		"count":       len(products),
		"products":    products,
	})
}

// ListFacets handles GET /categories/:id/facets
func (h *StorefrontHandlers) ListFacets(c echo.Context) error {
	categoryID, query, err := h.request(c)
	if err != nil {
		return sendRequestError(c, err)
	}

	groups, err := h.filterService.GetFacets(c.Request().Context(), categoryID, query)
	if err != nil {
		return common.SendServiceError(c, "Category", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"category_id": categoryID,
		"facets":      groups,
	})
}

// ListPriceFilters handles GET /categories/:id/price-filters
func (h *StorefrontHandlers) ListPriceFilters(c echo.Context) error {
	categoryID, query, err := h.request(c)
	if err != nil {
		return sendRequestError(c, err)
	}

	buckets, err := h.filterService.GetPriceFilters(c.Request().Context(), categoryID, query)
	if err != nil {
		return common.SendServiceError(c, "Category", err)
	}
	if buckets == nil {
		buckets = []models.PriceBucket{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"category_id":   categoryID,
		"price_filters": buckets,
	})
}
