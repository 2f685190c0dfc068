package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-orderpipeline/internal/app"
	"github.com/imrishuroy/go-orderpipeline/internal/aws"
	"github.com/imrishuroy/go-orderpipeline/internal/config"
	"github.com/imrishuroy/go-orderpipeline/internal/logging"
)

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

	p := NewProcessor(app.NewCompositionRoot(cfg, clients, logger).CreatePipeline(), logger)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if cfg.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"userId":"local-user","order":{"products":[{"price":10,"quantity":1}],"deliveryPrice":2}}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: testBody}},
		}
		resp, err := p.Handle(context.Background(), event)
		if err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		if len(resp.BatchItemFailures) > 0 {
			log.Fatalf("local message failed: %s", resp.BatchItemFailures[0].ItemIdentifier)
		}
		return
	}

	lambda.Start(p.Handle)
}
