package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-orderpipeline/internal/pipeline"
)

// OrderCreator runs a create-order invocation.
type OrderCreator interface {
	Process(ctx context.Context, ev pipeline.Event) (pipeline.Response, pipeline.State, error)
}

// Processor runs each SQS record through the create-order pipeline.
// Rejected orders are acknowledged; faults and malformed records are
// reported as batch item failures so SQS redelivers them or moves them to the DLQ.
type Processor struct {
	pipeline OrderCreator
	logger   *slog.Logger
}

// NewProcessor creates a worker processor around the pipeline.
func NewProcessor(p OrderCreator, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{pipeline: p, logger: logger.With("component", "worker")}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.ErrorContext(ctx, "Worker message failed", "messageId", rec.MessageId, "error", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var ev pipeline.Event
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	resp, state, err := p.pipeline.Process(ctx, ev)
	if err != nil {
		if errors.Is(err, pipeline.ErrContractViolation) {
			return fmt.Errorf("malformed event: %w", err)
		}
		return err
	}

	switch state {
	case pipeline.StateSucceeded:
		p.logger.InfoContext(ctx, "Order created from queue", "messageId", rec.MessageId, "orderId", resp.OrderID)
	default:
		// resubmitting the same payload would be rejected again
		p.logger.WarnContext(ctx, "Order rejected from queue",
			"messageId", rec.MessageId, "state", state.String(), "message", resp.Message, "errors", resp.Errors)
	}
	return nil
}
