// Package checks holds the domain validators run against an enriched order
// and the coordinator that runs them concurrently.
package checks

import (
	"context"

	"github.com/imrishuroy/go-orderpipeline/internal/orders"
)

// Verdict is the outcome of a domain check. Message is set when Valid is false.
type Verdict struct {
	Valid   bool
	Message string
}

// Pass is the verdict of a successful check.
func Pass() Verdict { return Verdict{Valid: true} }

// Fail is the verdict of a check that rejects the order.
func Fail(message string) Verdict { return Verdict{Message: message} }

// DomainValidator is an independent business-rule check. Implementations must
// not modify the order. A returned error is an infrastructure problem (a
// dependency is down), not a rejection: reject with Fail instead.
type DomainValidator interface {
	Name() string
	Validate(ctx context.Context, o orders.Order) (Verdict, error)
}

// ValidatorFunc adapts a function to DomainValidator.
type ValidatorFunc struct {
	CheckName string
	Fn        func(ctx context.Context, o orders.Order) (Verdict, error)
}

func (f ValidatorFunc) Name() string { return f.CheckName }

func (f ValidatorFunc) Validate(ctx context.Context, o orders.Order) (Verdict, error) {
	return f.Fn(ctx, o)
}

// DeliveryValidator validates the delivery price. No pricing rules are
// defined yet, so every order passes.
type DeliveryValidator struct{}

func (DeliveryValidator) Name() string { return "delivery" }

func (DeliveryValidator) Validate(ctx context.Context, o orders.Order) (Verdict, error) {
	return Pass(), nil
}

// PaymentValidator validates the payment token. No authorization rules are
// defined yet, so every order passes.
type PaymentValidator struct{}

func (PaymentValidator) Name() string { return "payment" }

func (PaymentValidator) Validate(ctx context.Context, o orders.Order) (Verdict, error) {
	return Pass(), nil
}

// ProductValidator validates the ordered products. No availability rules are
// defined yet, so every order passes.
type ProductValidator struct{}

func (ProductValidator) Name() string { return "products" }

func (ProductValidator) Validate(ctx context.Context, o orders.Order) (Verdict, error) {
	return Pass(), nil
}

// Default returns the validators every order is checked against, in the
// order their messages are reported.
func Default() []DomainValidator {
	return []DomainValidator{
		DeliveryValidator{},
		PaymentValidator{},
		ProductValidator{},
	}
}
