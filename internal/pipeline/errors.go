package pipeline

import (
	"errors"
	"fmt"
)

// ErrContractViolation marks a malformed invocation (order or userId absent).
// It is fatal: there is no response body, and retrying it unchanged cannot succeed.
var ErrContractViolation = errors.New("contract violation")

func contractViolation(field string) error {
	return fmt.Errorf("%w: missing %q in invocation", ErrContractViolation, field)
}

// FaultError is an infrastructure failure at Stage: a validator or the store
// could not do its job. Faults are never validation outcomes and are the only
// errors worth retrying.
type FaultError struct {
	Stage State
	Err   error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("infrastructure fault during %s: %v", e.Stage, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

// IsFault reports whether err contains a *FaultError.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}
