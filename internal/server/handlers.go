package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/layaask/answerbot/internal/metrics"
	"github.com/layaask/answerbot/internal/queue"
)

// Webhook event names recognized on ingress.
const (
	EventDiscussionStarted = "discussion.started"
	EventPostCreated       = "post.created"
	EventDiscussionCreated = "discussion.created"
)

// ProcessFunc runs the full pipeline for one discussion, synchronously.
type ProcessFunc func(ctx context.Context, discussionID int64) error

// Handlers holds the HTTP endpoints around the processing queue.
type Handlers struct {
	queue   *queue.Queue
	process ProcessFunc
	logger  *log.Logger
}

// NewHandlers builds the endpoint set. process backs the manual debug
// endpoint and is invoked outside the queue.
func NewHandlers(q *queue.Queue, process ProcessFunc, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return &Handlers{queue: q, process: process, logger: logger}
}

// Register mounts the routes on the echo instance.
func (h *Handlers) Register(e *echo.Echo) {
	e.POST("/webhooks", h.handleWebhook)
	e.POST("/webhook/discussion", h.handleLegacyWebhook)
	e.POST("/api/process-discussion", h.handleProcessDiscussion)
	e.GET("/health", h.handleHealth)
}

// webhookRequest is the forum's native webhook envelope.
type webhookRequest struct {
	Event   string `json:"event"`
	Payload struct {
		Discussion struct {
			ID int64 `json:"id"`
		} `json:"discussion"`
		Post struct {
			DiscussionID int64 `json:"discussionId"`
		} `json:"post"`
	} `json:"payload"`
}

// handleWebhook accepts the forum's webhook envelope. The delivery is acked
// immediately; processing happens on the queue. Unknown events and payloads
// without a discussion id are acked and dropped so the forum never retries.
func (h *Handlers) handleWebhook(c echo.Context) error {
	var req webhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}
	metrics.WebhooksReceived.WithLabelValues(req.Event).Inc()

	if req.Event == EventDiscussionStarted || req.Event == EventPostCreated {
		id := req.Payload.Discussion.ID
		if id == 0 {
			id = req.Payload.Post.DiscussionID
		}
		if id != 0 {
			h.logger.Printf("webhook %s for discussion %d", req.Event, id)
			h.queue.Enqueue(id)
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"received": true,
		"message":  "Queued for processing",
	})
}

// legacyWebhookRequest is the older custom envelope still sent by some
// forum plugins.
type legacyWebhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		DiscussionID int64 `json:"discussion_id"`
		ID           int64 `json:"id"`
	} `json:"data"`
}

func (h *Handlers) handleLegacyWebhook(c echo.Context) error {
	var req legacyWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}
	metrics.WebhooksReceived.WithLabelValues(req.Event).Inc()

	if req.Event == EventDiscussionCreated {
		id := req.Data.DiscussionID
		if id == 0 {
			id = req.Data.ID
		}
		if id != 0 {
			h.logger.Printf("legacy webhook for discussion %d", id)
			h.queue.Enqueue(id)
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"received": true,
		"message":  "Queued for processing",
	})
}

// handleProcessDiscussion runs the pipeline synchronously for one
// discussion, bypassing the queue and its dedupe window. Debug/repair tool.
func (h *Handlers) handleProcessDiscussion(c echo.Context) error {
	var req struct {
		DiscussionID int64 `json:"discussion_id"`
	}
	if err := c.Bind(&req); err != nil || req.DiscussionID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "discussion_id required")
	}

	h.logger.Printf("manual processing requested for discussion %d", req.DiscussionID)
	if err := h.process(c.Request().Context(), req.DiscussionID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"discussion_id": req.DiscussionID,
	})
}

func (h *Handlers) handleHealth(c echo.Context) error {
	st := h.queue.Status()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "answerbot",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"queue":     st,
	})
}
