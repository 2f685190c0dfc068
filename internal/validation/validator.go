package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator checks raw order payloads against the compiled schema.
// Build it once with New; it is safe for concurrent use.
type Validator struct {
	v *validatorv10.Validate
}

// New returns a Validator with field names reported as their JSON names and
// the struct-level rules for money and quantities registered.
func New() *Validator {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(productStructValidation, Product{})
	v.RegisterStructValidation(orderStructValidation, OrderPayload{})

	return &Validator{v: v}
}

// Validate decodes raw, injects userID and validates the result. Any failure is
// returned as a *SchemaError listing all violations found.
func (s *Validator) Validate(raw json.RawMessage, userID string) (OrderPayload, error) {
	var p OrderPayload
	if v := decode(raw, &p); len(v) > 0 {
		return OrderPayload{}, &SchemaError{Violations: v}
	}
	p.UserID = userID

	if err := s.v.Struct(p); err != nil {
		return OrderPayload{}, &SchemaError{Violations: violations(err)}
	}
	return p, nil
}

// violations flattens validator errors into "path: reason" strings, where
// path is the JSON path without the root type name.
func violations(err error) []string {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fmt.Sprintf("%s: %s", fieldPath(fe), reason(fe)))
	}
	return out
}

func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "decimals":
		return fmt.Sprintf("must have at most %s decimal places", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

// productStructValidation enforces the money rules on price and
// 1 <= quantity <= MaxQuantity.
func productStructValidation(sl validatorv10.StructLevel) {
	p := sl.Current().Interface().(Product)

	checkMoney(sl, p.Price, "price", "Price")
	if p.Quantity != nil {
		switch {
		case *p.Quantity < 1:
			sl.ReportError(*p.Quantity, "quantity", "Quantity", "min", "1")
		case *p.Quantity > MaxQuantity:
			sl.ReportError(*p.Quantity, "quantity", "Quantity", "lte", strconv.Itoa(MaxQuantity))
		}
	}
}

func orderStructValidation(sl validatorv10.StructLevel) {
	o := sl.Current().Interface().(OrderPayload)
	checkMoney(sl, o.DeliveryPrice, "deliveryPrice", "DeliveryPrice")
}

// checkMoney reports a negative amount, one above MaxMoney, or one with more
// than MaxMoneyScale decimal places. decode has already bounded the exponent.
func checkMoney(sl validatorv10.StructLevel, d *decimal.Decimal, field, structField string) {
	if d == nil {
		return
	}
	switch {
	case d.IsNegative():
		sl.ReportError(*d, field, structField, "gte", "0")
	case d.GreaterThan(MaxMoney):
		sl.ReportError(*d, field, structField, "lte", MaxMoney.String())
	}
	if !d.Equal(d.Truncate(MaxMoneyScale)) {
		sl.ReportError(*d, field, structField, "decimals", strconv.Itoa(MaxMoneyScale))
	}
}
