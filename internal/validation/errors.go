package validation

import (
	"fmt"
	"strings"
)

// SchemaError reports every structural violation found in an order payload.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Violations, "; "))
}
