package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-orderpipeline/internal/pipeline"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRunLocal_WritesResponse(t *testing.T) {
	var got pipeline.Event
	handle := func(ctx context.Context, ev pipeline.Event) (pipeline.Response, error) {
		got = ev
		return pipeline.Response{StatusCode: 200, Message: pipeline.MessageCreated, OrderID: "o-1"}, nil
	}

	var out bytes.Buffer
	require.NoError(t, runLocal(context.Background(), handle, sampleEvent, &out))

	require.NotNil(t, got.UserID)
	assert.Equal(t, "local-user", *got.UserID)
	assert.JSONEq(t, `{"statusCode":200,"message":"Order created","orderId":"o-1"}`, out.String())
}

func TestRunLocal_Errors(t *testing.T) {
	ok := func(ctx context.Context, ev pipeline.Event) (pipeline.Response, error) {
		return pipeline.Response{StatusCode: 200, Message: pipeline.MessageCreated}, nil
	}
	fault := func(ctx context.Context, ev pipeline.Event) (pipeline.Response, error) {
		return pipeline.Response{}, pipeline.ErrContractViolation
	}

	err := runLocal(context.Background(), ok, `not json`, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid event")

	err = runLocal(context.Background(), fault, sampleEvent, &bytes.Buffer{})
	assert.ErrorIs(t, err, pipeline.ErrContractViolation)

	err = runLocal(context.Background(), ok, sampleEvent, failingWriter{})
	assert.ErrorContains(t, err, "write response")
}
