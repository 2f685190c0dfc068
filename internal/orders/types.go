package orders

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a priced order line. Quantity is always >= 1 once enriched.
type Product struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// Address is the delivery address carried through from the request.
type Address struct {
	StreetAddress string
	City          string
	PostCode      string
	Country       string
}

// Order is an enriched order. OrderID, Total and the timestamps are set by
// the server and never taken from the caller.
type Order struct {
	OrderID       string
	UserID        string
	Products      []Product
	DeliveryPrice decimal.Decimal
	Total         decimal.Decimal
	PaymentToken  string
	Address       *Address
	CreatedDate   time.Time
	ModifiedDate  time.Time
}

// Clone returns a deep copy, so concurrent readers cannot affect the original.
func (o Order) Clone() Order {
	c := o
	c.Products = make([]Product, len(o.Products))
	copy(c.Products, o.Products)
	if o.Address != nil {
		a := *o.Address
		c.Address = &a
	}
	return c
}

// LogValue implements slog.LogValuer. The payment token is never logged.
func (o Order) LogValue() slog.Value {
	products := make([]any, 0, len(o.Products))
	for _, p := range o.Products {
		products = append(products, map[string]any{
			"productId": p.ProductID,
			"price":     p.Price.String(),
			"quantity":  p.Quantity,
		})
	}
	return slog.GroupValue(
		slog.String("orderId", o.OrderID),
		slog.String("userId", o.UserID),
		slog.Any("products", products),
		slog.String("deliveryPrice", o.DeliveryPrice.String()),
		slog.String("total", o.Total.String()),
		slog.String("createdDate", formatTime(o.CreatedDate)),
	)
}

// formatTime renders t as ISO-8601 in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
