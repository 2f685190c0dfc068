package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/imrishuroy/go-orderpipeline/internal/orders"
)

// DefaultTimeout bounds a single validator run.
const DefaultTimeout = 3 * time.Second

// FaultError reports a validator that could not produce a verdict: it
// returned an error, panicked, or ran past its timeout.
type FaultError struct {
	Validator string
	Err       error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("validator %s: %v", e.Validator, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

// ErrPanic is wrapped by a FaultError when a validator panicked.
var ErrPanic = errors.New("validator panicked")

// Coordinator runs every registered validator concurrently and collects the
// messages of those that fail.
type Coordinator struct {
	validators []DomainValidator
	timeout    time.Duration
	clock      clockz.Clock
	logger     *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithTimeout sets the per-validator timeout.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock sets the clock the timeouts are measured with.
func WithClock(clock clockz.Clock) CoordinatorOption {
	return func(c *Coordinator) { c.clock = clock }
}

// WithLogger sets the logger for validation diagnostics.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator returns a Coordinator over validators. Messages are reported
// in the order validators are given here.
func NewCoordinator(validators []DomainValidator, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		validators: append([]DomainValidator(nil), validators...),
		timeout:    DefaultTimeout,
		clock:      clockz.RealClock,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "validation_coordinator")
	return c
}

type outcome struct {
	verdict Verdict
	err     error
}

// ValidateAll runs all validators and waits for every one of them, even after
// a failure. It returns the failure messages in registration order (empty
// means accepted). If any validator faulted the error is non-nil, joining a
// *FaultError per faulted validator, and the messages must be ignored.
func (c *Coordinator) ValidateAll(ctx context.Context, o orders.Order) ([]string, error) {
	results := make([]outcome, len(c.validators))

	var wg sync.WaitGroup
	wg.Add(len(c.validators))
	for i, v := range c.validators {
		go func(i int, v DomainValidator) {
			defer wg.Done()
			results[i] = c.run(ctx, v, o.Clone())
		}(i, v)
	}
	wg.Wait()

	var faults []error
	var msgs []string
	for i, r := range results {
		if r.err != nil {
			faults = append(faults, &FaultError{Validator: c.validators[i].Name(), Err: r.err})
			continue
		}
		if !r.verdict.Valid {
			msg := r.verdict.Message
			if msg == "" {
				msg = c.validators[i].Name() + " validation failed"
			}
			msgs = append(msgs, msg)
		}
	}
	if len(faults) > 0 {
		return nil, errors.Join(faults...)
	}

	if len(msgs) > 0 {
		c.logger.InfoContext(ctx, "Validation errors for order", "order", o, "errors", msgs)
	}
	return msgs, nil
}

// run executes one validator under its own timeout. A validator that ignores
// its context is abandoned when the timeout fires; its goroutine finishes in
// the background and its result is dropped.
func (c *Coordinator) run(ctx context.Context, v DomainValidator, o orders.Order) outcome {
	ctx, cancel := c.clock.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		verdict, err := v.Validate(ctx, o)
		done <- outcome{verdict: verdict, err: err}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return outcome{err: ctx.Err()}
	}
}
