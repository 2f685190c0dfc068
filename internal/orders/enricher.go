package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zoobzio/clockz"

	"github.com/imrishuroy/go-orderpipeline/internal/validation"
)

// Enricher turns a schema-valid payload into an Order with server-assigned fields.
type Enricher struct {
	clock  clockz.Clock
	idFunc func() (string, error)
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithClock sets the clock used for createdDate/modifiedDate.
func WithClock(c clockz.Clock) EnricherOption {
	return func(e *Enricher) { e.clock = c }
}

// WithIDFunc replaces the random order id generator.
func WithIDFunc(f func() (string, error)) EnricherOption {
	return func(e *Enricher) { e.idFunc = f }
}

// NewEnricher returns an Enricher using random v4 UUIDs and the real clock.
func NewEnricher(opts ...EnricherOption) *Enricher {
	e := &Enricher{
		clock:  clockz.RealClock,
		idFunc: newOrderID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newOrderID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Enrich assigns orderId, both timestamps (same instant) and total.
// p must already have passed schema validation.
func (e *Enricher) Enrich(p validation.OrderPayload) Order {
	id, err := e.idFunc()
	if err != nil || id == "" {
		// panics only if the OS entropy source is broken
		id = uuid.NewString()
	}
	now := e.clock.Now().UTC()

	o := Order{
		OrderID:      id,
		UserID:       p.UserID,
		Products:     make([]Product, 0, len(p.Products)),
		PaymentToken: p.PaymentToken,
		CreatedDate:  now,
		ModifiedDate: now,
	}
	if p.DeliveryPrice != nil {
		o.DeliveryPrice = *p.DeliveryPrice
	}
	if p.Address != nil {
		o.Address = &Address{
			StreetAddress: p.Address.StreetAddress,
			City:          p.Address.City,
			PostCode:      p.Address.PostCode,
			Country:       p.Address.Country,
		}
	}

	for _, in := range p.Products {
		prod := Product{
			ProductID: in.ProductID,
			Name:      in.Name,
			Quantity:  1,
		}
		if in.Price != nil {
			prod.Price = *in.Price
		}
		if in.Quantity != nil {
			prod.Quantity = *in.Quantity
		}
		o.Products = append(o.Products, prod)
	}
	o.Total = ComputeTotal(o.Products, o.DeliveryPrice)

	return o
}

// ComputeTotal returns sum(price * quantity) + deliveryPrice.
func ComputeTotal(products []Product, deliveryPrice decimal.Decimal) decimal.Decimal {
	total := deliveryPrice
	for _, p := range products {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	return total
}
