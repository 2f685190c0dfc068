package pipeline

import (
	"encoding/json"
	"net/http"
)

// Response messages.
const (
	MessageCreated       = "Order created"
	MessageSchemaInvalid = "JSON Schema validation error"
	MessageDomainInvalid = "Validation errors"
)

// Event is one create-order invocation: the raw order and the caller's identity.
type Event struct {
	Order  json.RawMessage `json:"order"`
	UserID *string         `json:"userId"`
}

// Response is the result returned to the trigger for accepted and rejected orders.
type Response struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
	OrderID    string   `json:"orderId,omitempty"`
}

func created(orderID string) Response {
	return Response{StatusCode: http.StatusOK, Message: MessageCreated, OrderID: orderID}
}

func rejected(message string, errs []string) Response {
	return Response{StatusCode: http.StatusBadRequest, Message: message, Errors: errs}
}

// State is a step of the create-order state machine.
type State int

const (
	StateReceived State = iota
	StateSchemaChecking
	StateEnriching
	StateDomainValidating
	StateStoring
	StateSucceeded
	StateRejectedSchema
	StateRejectedDomain
	StateFailed
)

var stateNames = [...]string{
	StateReceived:         "Received",
	StateSchemaChecking:   "SchemaChecking",
	StateEnriching:        "Enriching",
	StateDomainValidating: "DomainValidating",
	StateStoring:          "Storing",
	StateSucceeded:        "Succeeded",
	StateRejectedSchema:   "RejectedSchema",
	StateRejectedDomain:   "RejectedDomain",
	StateFailed:           "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateRejectedSchema, StateRejectedDomain, StateFailed:
		return true
	}
	return false
}
