package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Limits on money and quantities. With them any order total stays far inside
// the 38 significant digits a DynamoDB number can hold.
const (
	MaxMoneyScale = 2
	MaxQuantity   = 1_000_000

	maxNumberLen = 64
	maxExponent  = 32
)

// MaxMoney is the largest accepted price or delivery price.
var MaxMoney = decimal.New(1, 9)

// decode checks JSON types on raw and fills out. Every violation is returned
// with its JSON path, in the same form the struct rules use.
func decode(raw json.RawMessage, out *OrderPayload) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return []string{"order: must be an object"}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		var se *json.SyntaxError
		if errors.As(err, &se) {
			return []string{fmt.Sprintf("order: malformed JSON at offset %d", se.Offset)}
		}
		return []string{"order: malformed JSON"}
	}
	if _, err := dec.Token(); err != io.EOF {
		return []string{"order: unexpected data after the order object"}
	}

	var s shape
	clean := s.order(doc)
	if len(s.violations) > 0 {
		return s.violations
	}

	// clean holds only exactly named fields of the right JSON type
	body, err := json.Marshal(clean)
	if err != nil {
		return []string{fmt.Sprintf("order: %v", err)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return []string{fmt.Sprintf("order: %v", err)}
	}
	return nil
}

// shape walks a generically decoded order. It records type violations and
// copies the known fields, matched case-sensitively, into a new document.
// Unknown fields and userId (always taken from the invocation) are dropped.
type shape struct {
	violations []string
}

func (s *shape) add(path, reason string) {
	s.violations = append(s.violations, path+": "+reason)
}

func (s *shape) order(doc map[string]any) map[string]any {
	out := map[string]any{}

	if v := doc["products"]; v != nil {
		items, ok := v.([]any)
		if !ok {
			s.add("products", "must be an array")
		} else {
			products := make([]any, len(items))
			for i, item := range items {
				products[i] = s.product(fmt.Sprintf("products[%d]", i), item)
			}
			out["products"] = products
		}
	}
	s.copy(out, doc, "", "deliveryPrice", s.money)
	s.copy(out, doc, "", "paymentToken", s.str)

	if v := doc["address"]; v != nil {
		addr, ok := v.(map[string]any)
		if !ok {
			s.add("address", "must be an object")
		} else {
			clean := map[string]any{}
			for _, name := range []string{"streetAddress", "city", "postCode", "country"} {
				s.copy(clean, addr, "address.", name, s.str)
			}
			out["address"] = clean
		}
	}
	return out
}

func (s *shape) product(path string, v any) any {
	if v == nil {
		return nil
	}
	p, ok := v.(map[string]any)
	if !ok {
		s.add(path, "must be an object")
		return nil
	}
	out := map[string]any{}
	s.copy(out, p, path+".", "productId", s.str)
	s.copy(out, p, path+".", "name", s.str)
	s.copy(out, p, path+".", "price", s.money)
	s.copy(out, p, path+".", "quantity", s.integer)
	return out
}

func (s *shape) copy(dst, src map[string]any, prefix, name string, check func(path string, v any) bool) {
	v := src[name]
	if v == nil {
		return
	}
	if check(prefix+name, v) {
		dst[name] = v
	}
}

func (s *shape) str(path string, v any) bool {
	if _, ok := v.(string); !ok {
		s.add(path, "must be a string")
		return false
	}
	return true
}

func (s *shape) integer(path string, v any) bool {
	n, ok := v.(json.Number)
	if !ok {
		s.add(path, "must be an integer")
		return false
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		if errors.Is(err, strconv.ErrRange) {
			s.add(path, fmt.Sprintf("must be at most %d", MaxQuantity))
		} else {
			s.add(path, "must be an integer")
		}
		return false
	}
	return true
}

// money accepts JSON numbers only. The exponent is bounded here, before any
// decimal arithmetic, since rescaling 1e20000000 allocates a 20M digit integer.
// Sign, maximum and scale are struct rules.
func (s *shape) money(path string, v any) bool {
	n, ok := v.(json.Number)
	if !ok {
		s.add(path, "must be a number")
		return false
	}
	text := n.String()
	if len(text) > maxNumberLen {
		s.add(path, fmt.Sprintf("must have at most %d characters", maxNumberLen))
		return false
	}

	tooSmall := fmt.Sprintf("must have at most %d decimal places", MaxMoneyScale)
	tooLarge := "must be at most " + MaxMoney.String()

	d, err := decimal.NewFromString(text)
	switch {
	case err != nil && strings.Contains(strings.ToLower(text), "e-"):
		s.add(path, tooSmall)
	case err != nil:
		s.add(path, tooLarge)
	case d.Exponent() > maxExponent:
		s.add(path, tooLarge)
	case d.Exponent() < -maxExponent:
		s.add(path, tooSmall)
	default:
		return true
	}
	return false
}
