package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderpipeline/internal/aws"
)

// ErrOrderExists means an item with the same orderId is already stored.
var ErrOrderExists = errors.New("order already exists")

// StoreError wraps any failure to persist an order. Code carries the AWS
// error code when the SDK returned an API error.
type StoreError struct {
	OrderID string
	Code    string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store order %s: %s: %v", e.OrderID, e.Code, e.Err)
	}
	return fmt.Sprintf("store order %s: %v", e.OrderID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	logger    *slog.Logger
}

// NewStore creates a new orders Store. A nil logger discards.
func NewStore(client aws.DynamoDBAPI, tableName string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger.With("component", "order_store"),
	}
}

// Save writes the order as a new item. The put is conditional on the orderId
// not existing, so it can only ever insert.
func (s *Store) Save(ctx context.Context, o Order) error {
	s.logger.DebugContext(ctx, "Store order", "order", o)

	item, err := attributevalue.MarshalMap(toRecord(o))
	if err != nil {
		return &StoreError{OrderID: o.OrderID, Err: fmt.Errorf("marshal order item: %w", err)}
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(orderId)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return &StoreError{OrderID: o.OrderID, Code: ccf.ErrorCode(), Err: ErrOrderExists}
		}
		se := &StoreError{OrderID: o.OrderID, Err: fmt.Errorf("put item: %w", err)}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			se.Code = apiErr.ErrorCode()
		}
		return se
	}
	return nil
}

// Get fetches an order by orderId. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"orderId": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec orderRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o, err := rec.toOrder()
	if err != nil {
		return nil, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return &o, nil
}

// orderRecord is the item stored in the orders table.
type orderRecord struct {
	OrderID       string          `dynamodbav:"orderId"` // PK
	UserID        string          `dynamodbav:"userId"`
	Products      []productRecord `dynamodbav:"products"`
	DeliveryPrice number          `dynamodbav:"deliveryPrice"`
	Total         number          `dynamodbav:"total"`
	Address       *addressRecord  `dynamodbav:"address,omitempty"`
	CreatedDate   string          `dynamodbav:"createdDate"`
	ModifiedDate  string          `dynamodbav:"modifiedDate"`
}

type productRecord struct {
	ProductID string `dynamodbav:"productId,omitempty"`
	Name      string `dynamodbav:"name,omitempty"`
	Price     number `dynamodbav:"price"`
	Quantity  int    `dynamodbav:"quantity"`
}

type addressRecord struct {
	StreetAddress string `dynamodbav:"streetAddress"`
	City          string `dynamodbav:"city"`
	PostCode      string `dynamodbav:"postCode,omitempty"`
	Country       string `dynamodbav:"country"`
}

func toRecord(o Order) orderRecord {
	rec := orderRecord{
		OrderID:       o.OrderID,
		UserID:        o.UserID,
		Products:      make([]productRecord, 0, len(o.Products)),
		DeliveryPrice: number(o.DeliveryPrice.String()),
		Total:         number(o.Total.String()),
		CreatedDate:   formatTime(o.CreatedDate),
		ModifiedDate:  formatTime(o.ModifiedDate),
	}
	for _, p := range o.Products {
		rec.Products = append(rec.Products, productRecord{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     number(p.Price.String()),
			Quantity:  p.Quantity,
		})
	}
	if a := o.Address; a != nil {
		rec.Address = &addressRecord{
			StreetAddress: a.StreetAddress,
			City:          a.City,
			PostCode:      a.PostCode,
			Country:       a.Country,
		}
	}
	return rec
}

func (r orderRecord) toOrder() (Order, error) {
	var err error
	o := Order{
		OrderID:  r.OrderID,
		UserID:   r.UserID,
		Products: make([]Product, 0, len(r.Products)),
	}
	if o.DeliveryPrice, err = decimal.NewFromString(string(r.DeliveryPrice)); err != nil {
		return Order{}, fmt.Errorf("deliveryPrice: %w", err)
	}
	if o.Total, err = decimal.NewFromString(string(r.Total)); err != nil {
		return Order{}, fmt.Errorf("total: %w", err)
	}
	if o.CreatedDate, err = time.Parse(time.RFC3339Nano, r.CreatedDate); err != nil {
		return Order{}, fmt.Errorf("createdDate: %w", err)
	}
	if o.ModifiedDate, err = time.Parse(time.RFC3339Nano, r.ModifiedDate); err != nil {
		return Order{}, fmt.Errorf("modifiedDate: %w", err)
	}
	for _, p := range r.Products {
		price, err := decimal.NewFromString(string(p.Price))
		if err != nil {
			return Order{}, fmt.Errorf("price: %w", err)
		}
		o.Products = append(o.Products, Product{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     price,
			Quantity:  p.Quantity,
		})
	}
	if a := r.Address; a != nil {
		o.Address = &Address{
			StreetAddress: a.StreetAddress,
			City:          a.City,
			PostCode:      a.PostCode,
			Country:       a.Country,
		}
	}
	return o, nil
}

// number is a decimal rendered as a DynamoDB N attribute, keeping full precision.
type number string

func (n number) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: string(n)}, nil
}

func (n *number) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	v, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("expected N attribute, got %T", av)
	}
	*n = number(v.Value)
	return nil
}

func awsString(s string) *string { return &s }
