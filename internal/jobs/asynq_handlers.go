package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"catalogfacets/internal/models"
	"catalogfacets/internal/services"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task type definitions
const (
	TypeAttributeTypeChanged = "catalog:attribute_type_changed"
	TypeProductChanged       = "catalog:product_changed"

	QueueCatalog = "catalog"
)

// AttributeTypeChangedPayload defines the payload for attribute type change tasks
type AttributeTypeChangedPayload struct {
	AttributeID uuid.UUID            `json:"attribute_id"`
	NewType     models.AttributeType `json:"new_type"`
}

// TaskEnqueuer is the part of *asynq.Client the HTTP layer needs
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewAttributeTypeChangedTask creates a new attribute type change task
func NewAttributeTypeChangedTask(attributeID uuid.UUID, newType models.AttributeType) (*asynq.Task, error) {
	data, err := json.Marshal(AttributeTypeChangedPayload{AttributeID: attributeID, NewType: newType})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAttributeTypeChanged, data, asynq.Queue(QueueCatalog), asynq.MaxRetry(5)), nil
}

// NewProductChangedTask creates a task that propagates a product change in the background
func NewProductChangedTask(event services.ProductChangedEvent) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProductChanged, data, asynq.Queue(QueueCatalog), asynq.MaxRetry(3)), nil
}

// CatalogTaskHandler processes queued catalog mutations
type CatalogTaskHandler struct {
	events services.EventService
	log    *zap.Logger
}

func NewCatalogTaskHandler(events services.EventService, log *zap.Logger) *CatalogTaskHandler {
	return &CatalogTaskHandler{events: events, log: log}
}

// Register adds the catalog task handlers to mux
func (h *CatalogTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeAttributeTypeChanged, h.AttributeTypeChangedHandler)
	mux.HandleFunc(TypeProductChanged, h.ProductChangedHandler)
}

// AttributeTypeChangedHandler handles attribute type change tasks
func (h *CatalogTaskHandler) AttributeTypeChangedHandler(ctx context.Context, t *asynq.Task) error {
	var payload AttributeTypeChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal attribute type payload: %v: %w", err, asynq.SkipRetry)
	}
	if !payload.NewType.Valid() {
		return fmt.Errorf("invalid attribute type %q: %w", payload.NewType, asynq.SkipRetry)
	}

	h.log.Info("changing attribute type",
		zap.String("attribute_id", payload.AttributeID.String()),
		zap.String("new_type", string(payload.NewType)))

	if err := h.events.AttributeTypeChanged(ctx, payload.AttributeID, payload.NewType); err != nil {
		h.log.Error("attribute type change failed", zap.String("attribute_id", payload.AttributeID.String()), zap.Error(err))
		return err
	}
	return nil
}

// ProductChangedHandler handles product change tasks
func (h *CatalogTaskHandler) ProductChangedHandler(ctx context.Context, t *asynq.Task) error {
	var event services.ProductChangedEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal product payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.events.ProductChanged(ctx, event); err != nil {
		h.log.Error("product change failed", zap.String("product_id", event.ProductID.String()), zap.Error(err))
		return err
	}
	return nil
}
