package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-orderpipeline/internal/app"
	"github.com/imrishuroy/go-orderpipeline/internal/aws"
	"github.com/imrishuroy/go-orderpipeline/internal/config"
	"github.com/imrishuroy/go-orderpipeline/internal/logging"
	"github.com/imrishuroy/go-orderpipeline/internal/pipeline"
)

const sampleEvent = `{"userId":"local-user","order":{"products":[{"productId":"p1","price":10.5,"quantity":2}],"deliveryPrice":4.99}}`

// runLocal decodes one event, runs it through handle and writes the response
// as a JSON line to w.
func runLocal(ctx context.Context, handle func(context.Context, pipeline.Event) (pipeline.Response, error), body string, w io.Writer) error {
	var ev pipeline.Event
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	resp, err := handle(ctx, ev)
	if err != nil {
		return fmt.Errorf("handle event: %w", err)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if _, err := w.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	clients, err := aws.NewAWSClients(context.Background(), cfg.Region, cfg.EndpointOverride)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	controller := app.NewCompositionRoot(cfg, clients, logger).CreatePipeline()

	// RUN_LOCAL=true runs one event from LOCAL_EVENT (or a sample) and prints the response.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_EVENT")
		if body == "" {
			body = sampleEvent
		}
		if err := runLocal(context.Background(), controller.Handle, body, os.Stdout); err != nil {
			log.Fatalf("local run failed: %v", err)
		}
		return
	}

	lambda.Start(controller.Handle)
}
