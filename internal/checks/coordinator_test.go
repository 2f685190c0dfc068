package checks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/imrishuroy/go-orderpipeline/internal/orders"
)

func failing(name, msg string, delay time.Duration) DomainValidator {
	return ValidatorFunc{CheckName: name, Fn: func(ctx context.Context, o orders.Order) (Verdict, error) {
		select {
		case <-time.After(delay):
			return Fail(msg), nil
		case <-ctx.Done():
			return Verdict{}, ctx.Err()
		}
	}}
}

func passing(name string) DomainValidator {
	return ValidatorFunc{CheckName: name, Fn: func(ctx context.Context, o orders.Order) (Verdict, error) {
		return Pass(), nil
	}}
}

func testOrder() orders.Order {
	return orders.Order{
		OrderID:  "o1",
		UserID:   "u1",
		Products: []orders.Product{{ProductID: "p1", Quantity: 1}},
	}
}

func TestValidateAll_DefaultsAccept(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCoordinator(Default())
	msgs, err := c.ValidateAll(context.Background(), testOrder())

	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestValidateAll_SingleFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCoordinator([]DomainValidator{
		DeliveryValidator{},
		failing("payment", "payment declined", 0),
		ProductValidator{},
	})
	msgs, err := c.ValidateAll(context.Background(), testOrder())

	require.NoError(t, err)
	assert.Equal(t, []string{"payment declined"}, msgs)
}

func TestValidateAll_RegistrationOrderNotCompletionOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	// the first validator finishes last
	c := NewCoordinator([]DomainValidator{
		failing("delivery", "delivery too expensive", 30*time.Millisecond),
		passing("payment"),
		failing("products", "product unavailable", 0),
	})

	for i := 0; i < 5; i++ {
		msgs, err := c.ValidateAll(context.Background(), testOrder())
		require.NoError(t, err)
		assert.Equal(t, []string{"delivery too expensive", "product unavailable"}, msgs)
	}
}

func TestValidateAll_NoShortCircuit(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ran atomic.Int32
	count := func(v DomainValidator) DomainValidator {
		return ValidatorFunc{CheckName: v.Name(), Fn: func(ctx context.Context, o orders.Order) (Verdict, error) {
			defer ran.Add(1)
			return v.Validate(ctx, o)
		}}
	}

	c := NewCoordinator([]DomainValidator{
		count(failing("a", "a failed", 0)),
		count(failing("b", "b failed", 10*time.Millisecond)),
		count(passing("c")),
	})
	msgs, err := c.ValidateAll(context.Background(), testOrder())

	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, int32(3), ran.Load())
}

func TestValidateAll_RunsConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	var started atomic.Int32
	blocker := func(name string) DomainValidator {
		return ValidatorFunc{CheckName: name, Fn: func(ctx context.Context, o orders.Order) (Verdict, error) {
			if started.Add(1) == 3 {
				close(release)
			}
			select {
			case <-release:
				return Pass(), nil
			case <-ctx.Done():
				return Verdict{}, ctx.Err()
			}
		}}
	}

	// would time out if the validators ran one after another
	c := NewCoordinator([]DomainValidator{blocker("a"), blocker("b"), blocker("c")}, WithTimeout(time.Second))
	msgs, err := c.ValidateAll(context.Background(), testOrder())

	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestValidateAll_EmptyMessageIsNamed(t *testing.T) {
	c := NewCoordinator([]DomainValidator{failing("payment", "", 0)})
	msgs, err := c.ValidateAll(context.Background(), testOrder())

	require.NoError(t, err)
	assert.Equal(t, []string{"payment validation failed"}, msgs)
}

func TestValidateAll_ErrorIsFaultNotRejection(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("payment service unavailable")
	c := NewCoordinator([]DomainValidator{
		failing("delivery", "delivery too expensive", 0),
		ValidatorFunc{CheckName: "payment", Fn: func(ctx context.Context, o orders.Order) (Verdict, error) {
			return Verdict{}, boom
		}},
	})
	msgs, err := c.ValidateAll(context.Background(), testOrder())

	require.Error(t, err)
	assert.Nil(t, msgs)
	assert.ErrorIs(t, err, boom)
	var fe *FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "payment", fe.Validator)
}

func TestValidateAll_PanicIsFault(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCoordinator([]DomainValidator{
		passing("delivery"),
		ValidatorFunc{CheckName: "products", Fn: func(ctx context.Context, o orders.Order) (Verdict, error) {
			panic("nil catalogue")
		}},
	})
	_, err := c.ValidateAll(context.Background(), testOrder())

	require.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "nil catalogue")
}

func TestValidateAll_TimeoutIsFault(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCoordinator([]DomainValidator{
		passing("delivery"),
		failing("payment", "too late", time.Minute),
	}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := c.ValidateAll(context.Background(), testOrder())

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	var fe *FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "payment", fe.Validator)
}

func TestValidateAll_ValidatorsCannotMutateOrder(t *testing.T) {
	c := NewCoordinator([]DomainValidator{
		ValidatorFunc{CheckName: "greedy", Fn: func(ctx context.Context, o orders.Order) (Verdict, error) {
			o.Products[0].Quantity = 100
			o.UserID = "someone-else"
			return Pass(), nil
		}},
	})
	o := testOrder()

	_, err := c.ValidateAll(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, 1, o.Products[0].Quantity)
	assert.Equal(t, "u1", o.UserID)
}

func TestValidateAll_LogsDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	c := NewCoordinator([]DomainValidator{failing("payment", "payment declined", 0)}, WithLogger(logger))
	_, err := c.ValidateAll(context.Background(), testOrder())
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Validation errors for order", rec["msg"])
	assert.Equal(t, []any{"payment declined"}, rec["errors"])
	order, ok := rec["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "o1", order["orderId"])
}

func TestValidateAll_NoLogWhenAccepted(t *testing.T) {
	var buf bytes.Buffer
	c := NewCoordinator(Default(), WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	_, err := c.ValidateAll(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Zero(t, buf.Len())
}
