package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-orderpipeline/internal/idempotency"
	"github.com/imrishuroy/go-orderpipeline/internal/pipeline"
)

// marshalResponse encodes responses kept for Idempotency-Key replay.
var marshalResponse = json.Marshal

const (
	headerUserID         = "X-User-Id"
	headerIdempotencyKey = "Idempotency-Key"
)

// OrderCreator runs a create-order invocation.
type OrderCreator interface {
	Handle(ctx context.Context, ev pipeline.Event) (pipeline.Response, error)
}

// IdempotencyStore remembers responses per Idempotency-Key.
type IdempotencyStore interface {
	CreateIfNotExists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.IdempotencyRecord, error)
	Reclaim(ctx context.Context, key string) (bool, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// HandlerConfig groups dependencies for the orders handler.
type HandlerConfig struct {
	Pipeline    OrderCreator
	Idempotency IdempotencyStore // optional; nil disables Idempotency-Key support
	Logger      *slog.Logger

	// TrustUserHeader accepts X-User-Id when no authorizer claim is present.
	// Only for local runs without API Gateway in front.
	TrustUserHeader bool
}

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &ordersHandler{
		pipeline:    cfg.Pipeline,
		idemp:       cfg.Idempotency,
		trustHeader: cfg.TrustUserHeader,
		logger:      logger.With("component", "orders_handler"),
	}
	r.POST("/orders", h.create)
}

type ordersHandler struct {
	pipeline    OrderCreator
	idemp       IdempotencyStore
	trustHeader bool
	logger      *slog.Logger
}

func (h *ordersHandler) create(c *gin.Context) {
	ctx := c.Request.Context()

	userID := h.userIDFrom(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_user"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}

	key := ""
	if h.idemp != nil {
		if clientKey := c.GetHeader(headerIdempotencyKey); clientKey != "" {
			key = idempotency.Key(userID, clientKey)
			if !h.claim(c, key) {
				return
			}
		}
	}

	resp, err := h.pipeline.Handle(ctx, pipeline.Event{Order: body, UserID: &userID})
	switch {
	case errors.Is(err, pipeline.ErrContractViolation):
		// over HTTP the only way to get here is an empty or null body
		resp = pipeline.Response{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request body",
			Errors:     []string{"order: is required"},
		}
	case err != nil:
		h.logger.ErrorContext(ctx, "Create order failed", "userId", userID, "error", err)
		if key != "" {
			if merr := h.idemp.MarkFailed(ctx, key, err.Error()); merr != nil {
				h.logger.WarnContext(ctx, "Failed to mark idempotency key failed", "error", merr)
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	if key != "" {
		h.complete(ctx, key, resp)
	}
	c.JSON(resp.StatusCode, resp)
}

// complete stores resp for replay. A response that cannot be encoded marks
// the key failed so a retry can reclaim it instead of getting 409 until expiry.
func (h *ordersHandler) complete(ctx context.Context, key string, resp pipeline.Response) {
	payload, err := marshalResponse(resp)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to encode idempotent response", "error", err)
		if merr := h.idemp.MarkFailed(ctx, key, err.Error()); merr != nil {
			h.logger.WarnContext(ctx, "Failed to mark idempotency key failed", "error", merr)
		}
		return
	}
	if merr := h.idemp.MarkDone(ctx, key, string(payload), resp.StatusCode); merr != nil {
		h.logger.WarnContext(ctx, "Failed to store idempotent response", "error", merr)
	}
}

// claim reserves key for this request. It returns false after writing a
// response itself: a replay of a finished request, a conflict, or an error.
func (h *ordersHandler) claim(c *gin.Context, key string) bool {
	ctx := c.Request.Context()

	created, err := h.idemp.CreateIfNotExists(ctx, key)
	if err != nil {
		h.idempotencyFailed(c, err)
		return false
	}
	if created {
		return true
	}

	rec, err := h.idemp.Get(ctx, key)
	if err != nil {
		h.idempotencyFailed(c, err)
		return false
	}
	if rec == nil {
		// expired between the put and the read; let the client retry
		c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress"})
		return false
	}

	switch rec.Status {
	case idempotency.StatusDone:
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		return false
	case idempotency.StatusFailed:
		ok, err := h.idemp.Reclaim(ctx, key)
		if err != nil {
			h.idempotencyFailed(c, err)
			return false
		}
		if !ok {
			c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress"})
			return false
		}
		return true
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress"})
		return false
	}
}

// idempotencyFailed logs the store error and answers with the error code only.
func (h *ordersHandler) idempotencyFailed(c *gin.Context, err error) {
	h.logger.ErrorContext(c.Request.Context(), "Idempotency check failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
}

// userIDFrom prefers the API Gateway authorizer's "sub" claim and falls back
// to the X-User-Id header when trusted.
func (h *ordersHandler) userIDFrom(c *gin.Context) string {
	if reqCtx, ok := core.GetAPIGatewayContextFromContext(c.Request.Context()); ok {
		if claims, ok := reqCtx.Authorizer["claims"].(map[string]interface{}); ok {
			if sub, ok := claims["sub"].(string); ok && sub != "" {
				return sub
			}
		}
	}
	if h.trustHeader {
		return c.GetHeader(headerUserID)
	}
	return ""
}
