package validation

import "github.com/shopspring/decimal"

// SchemaVersion identifies the structural schema compiled into this build.
// Changing the schema means shipping a new version.
const SchemaVersion = "order/v1"

// Product is a single order line as submitted by the caller.
type Product struct {
	ProductID string           `json:"productId,omitempty"`
	Name      string           `json:"name,omitempty"`
	Price     *decimal.Decimal `json:"price" validate:"required"` // JSON number, 0..MaxMoney, at most 2 decimals
	Quantity  *int             `json:"quantity,omitempty"`        // defaults to 1; 1..MaxQuantity when present
}

// Address is the optional delivery address.
type Address struct {
	StreetAddress string `json:"streetAddress" validate:"required"`
	City          string `json:"city" validate:"required"`
	PostCode      string `json:"postCode,omitempty"`
	Country       string `json:"country" validate:"required,len=2"` // ISO 3166-1 alpha-2
}

// OrderPayload is the order body after decoding. Fields the caller may not set
// (orderId, total, timestamps) are not part of it and are ignored on input.
type OrderPayload struct {
	UserID        string           `json:"userId" validate:"required"` // injected from the invocation, not the body
	Products      []Product        `json:"products" validate:"required,min=1,dive"`
	DeliveryPrice *decimal.Decimal `json:"deliveryPrice" validate:"required"`
	PaymentToken  string           `json:"paymentToken,omitempty"`
	Address       *Address         `json:"address,omitempty"`
}
