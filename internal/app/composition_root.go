// Package app wires configuration and AWS clients into the create-order pipeline.
package app

import (
	"log/slog"

	"github.com/imrishuroy/go-orderpipeline/internal/aws"
	"github.com/imrishuroy/go-orderpipeline/internal/checks"
	"github.com/imrishuroy/go-orderpipeline/internal/config"
	"github.com/imrishuroy/go-orderpipeline/internal/handlers"
	"github.com/imrishuroy/go-orderpipeline/internal/idempotency"
	"github.com/imrishuroy/go-orderpipeline/internal/orders"
	"github.com/imrishuroy/go-orderpipeline/internal/pipeline"
	"github.com/imrishuroy/go-orderpipeline/internal/validation"
)

// CompositionRoot builds long-lived components once per process. Everything
// it hands out is safe to share between concurrent invocations.
type CompositionRoot struct {
	cfg     config.Config
	clients *aws.AWSClients
	logger  *slog.Logger
}

// NewCompositionRoot returns a root over cfg and clients.
func NewCompositionRoot(cfg config.Config, clients *aws.AWSClients, logger *slog.Logger) *CompositionRoot {
	return &CompositionRoot{cfg: cfg, clients: clients, logger: logger}
}

// CreatePipeline builds the controller: schema compiled once, default domain
// validators, the orders table, and the optional metrics and event sinks.
func (c *CompositionRoot) CreatePipeline() *pipeline.Controller {
	coordinator := checks.NewCoordinator(checks.Default(),
		checks.WithTimeout(c.cfg.ValidatorTimeout),
		checks.WithLogger(c.logger),
	)
	store := orders.NewStore(c.clients.DynamoDB, c.cfg.TableName, c.logger)

	opts := []pipeline.Option{pipeline.WithLogger(c.logger)}
	if !c.cfg.RunLocal || c.cfg.EndpointOverride != "" {
		opts = append(opts, pipeline.WithMetrics(
			aws.NewMetricsRecorder(c.clients.CloudWatch, c.cfg.MetricsNamespace, c.cfg.Environment)))
	}
	if c.cfg.EventsQueueURL != "" {
		opts = append(opts, pipeline.WithPublisher(aws.NewPublisher(c.clients.SQS, c.cfg.EventsQueueURL)))
	}

	return pipeline.New(validation.New(), orders.NewEnricher(), coordinator, store, opts...)
}

// CreateHandlerConfig builds the HTTP handler dependencies around controller.
// Idempotency-Key support is enabled when IDEMPOTENCY_TABLE is set.
func (c *CompositionRoot) CreateHandlerConfig(controller *pipeline.Controller) handlers.HandlerConfig {
	hc := handlers.HandlerConfig{
		Pipeline:        controller,
		Logger:          c.logger,
		TrustUserHeader: c.cfg.RunLocal,
	}
	if c.cfg.IdempotencyTable != "" {
		hc.Idempotency = idempotency.NewStore(c.clients.DynamoDB, c.cfg.IdempotencyTable, c.cfg.IdempotencyTTL)
	}
	return hc
}
