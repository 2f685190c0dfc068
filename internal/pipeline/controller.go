// Package pipeline orchestrates order creation: schema check, enrichment,
// domain validation and storage.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/imrishuroy/go-orderpipeline/internal/aws"
	"github.com/imrishuroy/go-orderpipeline/internal/orders"
	"github.com/imrishuroy/go-orderpipeline/internal/validation"
)

// Metric names recorded per outcome.
const (
	MetricOrdersCreated    = "OrdersCreated"
	MetricSchemaRejections = "SchemaRejections"
	MetricDomainRejections = "DomainRejections"
	MetricFaults           = "PipelineFaults"
)

const sideEffectTimeout = time.Second

// SchemaValidator checks a raw order and injects the caller's user id.
type SchemaValidator interface {
	Validate(raw json.RawMessage, userID string) (validation.OrderPayload, error)
}

// Enricher assigns server-side fields.
type Enricher interface {
	Enrich(p validation.OrderPayload) orders.Order
}

// Coordinator runs the domain validators.
type Coordinator interface {
	ValidateAll(ctx context.Context, o orders.Order) ([]string, error)
}

// OrderStore persists an accepted order.
type OrderStore interface {
	Save(ctx context.Context, o orders.Order) error
}

// MetricsRecorder receives outcome counters.
type MetricsRecorder interface {
	Count(ctx context.Context, name string, value float64) error
}

// EventPublisher receives an event for every stored order.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any, attributes map[string]string) error
}

// OrderCreatedEvent is published after an order is stored.
type OrderCreatedEvent struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	Total       json.Number `json:"total"`
	CreatedDate string      `json:"createdDate"`
}

// Controller runs one invocation through the create-order state machine.
// It holds no per-request state and is safe for concurrent use.
type Controller struct {
	schema      SchemaValidator
	enricher    Enricher
	coordinator Coordinator
	store       OrderStore

	metrics   MetricsRecorder
	publisher EventPublisher
	logger    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics records an outcome counter per invocation.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPublisher publishes an OrderCreated event per stored order.
func WithPublisher(p EventPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// New builds a Controller from its collaborators.
func New(schema SchemaValidator, enricher Enricher, coordinator Coordinator, store OrderStore, opts ...Option) *Controller {
	c := &Controller{
		schema:      schema,
		enricher:    enricher,
		coordinator: coordinator,
		store:       store,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "pipeline")
	return c
}

// Handle is the invocation entrypoint. Rejections come back as a 400 Response
// with a nil error; contract violations and faults come back as errors.
func (c *Controller) Handle(ctx context.Context, ev Event) (Response, error) {
	resp, _, err := c.Process(ctx, ev)
	return resp, err
}

// Process is Handle that also reports the terminal state reached.
func (c *Controller) Process(ctx context.Context, ev Event) (Response, State, error) {
	// Received
	if len(bytes.TrimSpace(ev.Order)) == 0 || bytes.Equal(bytes.TrimSpace(ev.Order), []byte("null")) {
		return Response{}, StateFailed, contractViolation("order")
	}
	if ev.UserID == nil {
		return Response{}, StateFailed, contractViolation("userId")
	}

	// SchemaChecking
	payload, err := c.schema.Validate(ev.Order, *ev.UserID)
	if err != nil {
		var se *validation.SchemaError
		if !errors.As(err, &se) {
			return c.fail(ctx, StateSchemaChecking, err)
		}
		c.logger.InfoContext(ctx, "Order rejected by schema", "userId", *ev.UserID, "errors", se.Violations)
		c.count(ctx, MetricSchemaRejections)
		return rejected(MessageSchemaInvalid, se.Violations), StateRejectedSchema, nil
	}

	// Enriching
	order := c.enricher.Enrich(payload)

	// DomainValidating
	msgs, err := c.coordinator.ValidateAll(ctx, order)
	if err != nil {
		return c.fail(ctx, StateDomainValidating, err)
	}
	if len(msgs) > 0 {
		c.count(ctx, MetricDomainRejections)
		return rejected(MessageDomainInvalid, msgs), StateRejectedDomain, nil
	}

	// Storing
	if err := c.store.Save(ctx, order); err != nil {
		return c.fail(ctx, StateStoring, err)
	}

	c.logger.InfoContext(ctx, "Order created", "orderId", order.OrderID, "userId", order.UserID)
	c.count(ctx, MetricOrdersCreated)
	c.publishCreated(ctx, order)

	return created(order.OrderID), StateSucceeded, nil
}

func (c *Controller) fail(ctx context.Context, stage State, err error) (Response, State, error) {
	fe := &FaultError{Stage: stage, Err: err}
	c.logger.ErrorContext(ctx, "Order pipeline failed", "stage", stage.String(), "error", err)
	c.count(ctx, MetricFaults)
	return Response{}, StateFailed, fe
}

// count and publishCreated are best effort: their failures are logged and
// never change the outcome of the invocation.
func (c *Controller) count(ctx context.Context, name string) {
	if c.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := c.metrics.Count(ctx, name, 1); err != nil {
		c.logger.WarnContext(ctx, "Failed to record metric", "metric", name, "error", err)
	}
}

func (c *Controller) publishCreated(ctx context.Context, o orders.Order) {
	if c.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	ev := OrderCreatedEvent{
		OrderID:     o.OrderID,
		UserID:      o.UserID,
		Total:       json.Number(o.Total.String()),
		CreatedDate: o.CreatedDate.UTC().Format(time.RFC3339Nano),
	}
	attrs := map[string]string{"order_id": o.OrderID, "user_id": o.UserID}
	if err := c.publisher.Publish(ctx, aws.EventOrderCreated, ev, attrs); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish order event", "orderId", o.OrderID, "error", err)
	}
}
