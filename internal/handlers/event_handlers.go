package handlers

import (
	"errors"
	"net/http"

	"catalogfacets/internal/catalog"
	"catalogfacets/internal/common"
	"catalogfacets/internal/jobs"
	"catalogfacets/internal/models"
	"catalogfacets/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// EventHandlers receives change notifications from the catalog editor
type EventHandlers struct {
	events services.EventService
	queue  jobs.TaskEnqueuer
	log    *zap.Logger
}

func NewEventHandlers(events services.EventService, queue jobs.TaskEnqueuer, log *zap.Logger) *EventHandlers {
	return &EventHandlers{events: events, queue: queue, log: log}
}

// ProductChanged handles POST /events/product-changed. Invalidation runs
// inline so the next storefront read sees the change; when it fails the
// change is queued for retry.
func (h *EventHandlers) ProductChanged(c echo.Context) error {
	var event services.ProductChangedEvent
	if err := c.Bind(&event); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if event.ProductID == uuid.Nil {
		return common.SendValidationError(c, "product_id", "product_id is required")
	}

	err := h.events.ProductChanged(c.Request().Context(), event)
	if err == nil {
		return c.NoContent(http.StatusNoContent)
	}
	if errors.Is(err, catalog.ErrMalformedVariantGraph) {
		return common.SendServiceError(c, "Product", err)
	}
	h.log.Warn("product change not applied, queueing retry", zap.String("product_id", event.ProductID.String()), zap.Error(err))

	task, err := jobs.NewProductChangedTask(event)
	if err != nil {
		return common.SendServerError(c, "Failed to create task")
	}
	info, err := h.queue.EnqueueContext(c.Request().Context(), task)
	if err != nil {
		h.log.Error("enqueue product change", zap.String("product_id", event.ProductID.String()), zap.Error(err))
		return common.SendServerError(c, "Failed to apply product change")
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"task_id": info.ID,
		"queue":   info.Queue,
		"status":  "queued",
	})
}

// CategoryChanged handles POST /events/category-changed
func (h *EventHandlers) CategoryChanged(c echo.Context) error {
	var req struct {
		CategoryID uuid.UUID `json:"category_id"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.CategoryID == uuid.Nil {
		return common.SendValidationError(c, "category_id", "category_id is required")
	}

	if err := h.events.CategoryChanged(c.Request().Context(), req.CategoryID); err != nil {
		h.log.Error("category change not applied", zap.String("category_id", req.CategoryID.String()), zap.Error(err))
		return common.SendServiceError(c, "Category", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AttributeTypeChanged handles POST /events/attribute-type-changed. Deleting
// the stored values can be slow, so the change is queued.
func (h *EventHandlers) AttributeTypeChanged(c echo.Context) error {
	var req struct {
		AttributeID uuid.UUID            `json:"attribute_id"`
		NewType     models.AttributeType `json:"new_type"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.AttributeID == uuid.Nil {
		return common.SendValidationError(c, "attribute_id", "attribute_id is required")
	}
	if !req.NewType.Valid() {
		return common.SendValidationError(c, "new_type", "new_type must be one of: text, number, select")
	}

	task, err := jobs.NewAttributeTypeChangedTask(req.AttributeID, req.NewType)
	if err != nil {
		return common.SendServerError(c, "Failed to create task")
	}
	info, err := h.queue.EnqueueContext(c.Request().Context(), task)
	if err != nil {
		h.log.Error("enqueue attribute type change", zap.String("attribute_id", req.AttributeID.String()), zap.Error(err))
		return common.SendServerError(c, "Failed to queue attribute type change")
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"task_id": info.ID,
		"queue":   info.Queue,
		"status":  "queued",
	})
}
