package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-orderpipeline/internal/handlers"
	"github.com/imrishuroy/go-orderpipeline/internal/pipeline"
)

type stubCreator struct{ resp pipeline.Response }

func (s stubCreator) Handle(ctx context.Context, ev pipeline.Event) (pipeline.Response, error) {
	return s.resp, nil
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := setupRouter(handlers.HandlerConfig{Pipeline: stubCreator{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestOrdersRouteRegistered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := setupRouter(handlers.HandlerConfig{
		Pipeline:        stubCreator{resp: pipeline.Response{StatusCode: 200, Message: pipeline.MessageCreated, OrderID: "o1"}},
		TrustUserHeader: true,
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"products":[{"price":1}],"deliveryPrice":0}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"orderId":"o1"`)
}
