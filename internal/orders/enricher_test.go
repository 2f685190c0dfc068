package orders

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/imrishuroy/go-orderpipeline/internal/validation"
)

func payload(t *testing.T, raw string) validation.OrderPayload {
	t.Helper()
	p, err := validation.New().Validate(json.RawMessage(raw), "u1")
	require.NoError(t, err)
	return p
}

func TestEnrich_ComputesTotal(t *testing.T) {
	e := NewEnricher()

	o := e.Enrich(payload(t, `{"products":[{"price":10,"quantity":2}],"deliveryPrice":5}`))

	assert.True(t, decimal.NewFromInt(25).Equal(o.Total), "total=%s", o.Total)
	assert.Equal(t, "u1", o.UserID)
	assert.NotEmpty(t, o.OrderID)
}

func TestEnrich_DefaultQuantityAndExactDecimals(t *testing.T) {
	e := NewEnricher()

	o := e.Enrich(payload(t, `{"products":[{"price":0.1},{"price":0.2,"quantity":3}],"deliveryPrice":0.3}`))

	require.Len(t, o.Products, 2)
	assert.Equal(t, 1, o.Products[0].Quantity)
	// 0.1 + 0.6 + 0.3 with no float drift
	assert.Equal(t, "1", o.Total.String())
}

func TestEnrich_TimestampsEqualAndFromClock(t *testing.T) {
	clock := clockz.NewFakeClock()
	e := NewEnricher(WithClock(clock))

	o := e.Enrich(payload(t, `{"products":[{"price":1}],"deliveryPrice":0}`))

	assert.Equal(t, o.CreatedDate, o.ModifiedDate)
	assert.True(t, clock.Now().UTC().Equal(o.CreatedDate))
	assert.Equal(t, "UTC", o.CreatedDate.Location().String())
}

func TestEnrich_UniqueIDsForIdenticalInput(t *testing.T) {
	e := NewEnricher()
	p := payload(t, `{"products":[{"price":10,"quantity":2}],"deliveryPrice":5}`)

	const n = 200
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- e.Enrich(p).OrderID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate order id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestEnrich_IDFuncFailureFallsBack(t *testing.T) {
	e := NewEnricher(WithIDFunc(func() (string, error) { return "", errors.New("no entropy") }))

	o := e.Enrich(payload(t, `{"products":[{"price":1}],"deliveryPrice":0}`))
	assert.Len(t, o.OrderID, 36)
}

func TestEnrich_DoesNotAliasPayload(t *testing.T) {
	e := NewEnricher()
	p := payload(t, `{"products":[{"price":1}],"deliveryPrice":0,"address":{"streetAddress":"x","city":"y","country":"NO"}}`)

	o := e.Enrich(p)
	o.Address.City = "changed"
	assert.Equal(t, "y", p.Address.City)
}

func TestOrder_Clone(t *testing.T) {
	o := Order{
		OrderID:  "o1",
		Products: []Product{{ProductID: "p1", Quantity: 1}},
		Address:  &Address{City: "Oslo"},
	}

	c := o.Clone()
	c.Products[0].Quantity = 9
	c.Address.City = "Bergen"

	assert.Equal(t, 1, o.Products[0].Quantity)
	assert.Equal(t, "Oslo", o.Address.City)
}
