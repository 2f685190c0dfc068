package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// EventOrderCreated is the event_type attribute of messages sent after an order is stored.
const EventOrderCreated = "OrderCreated"

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// Publish JSON-encodes payload and sends it with eventType and the given
// attributes as string message attributes.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any, attributes map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	msgBody := string(body)

	msgAttrs := map[string]sqstypes.MessageAttributeValue{
		"event_type": stringAttr(eventType),
	}
	for k, v := range attributes {
		if v == "" {
			continue
		}
		msgAttrs[k] = stringAttr(v)
	}

	_, err = p.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          &p.QueueURL,
		MessageBody:       &msgBody,
		MessageAttributes: msgAttrs,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func stringAttr(v string) sqstypes.MessageAttributeValue {
	return sqstypes.MessageAttributeValue{
		DataType:    awsString("String"),
		StringValue: awsString(v),
	}
}

func awsString(s string) *string { return &s }
