package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/supabase"
)

// Subscriber is the change stream of the job repository.
type Subscriber interface {
	Subscribe(buffer int) (<-chan models.ChangeEvent, func())
}

type EventsHandler struct {
	events    Subscriber
	keepAlive time.Duration
}

func NewEventsHandler(events Subscriber, keepAlive time.Duration) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &EventsHandler{events: events, keepAlive: keepAlive}
}

// Stream godoc
// @Summary     Job change stream
// @Description Server-Sent Events: one "change" event per insert, update or delete, shaped like
// @Description Supabase Realtime postgres_changes payloads. A "ping" is sent periodically.
// @Tags        jobs
// @Produce     text/event-stream
// @Security    Bearer
// @Param       access_token query string false "JWT, for clients that cannot set headers"
// @Success     200 {string} string "event stream"
// @Router      /jobs/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	events, cancel := h.events.Subscribe(32)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("ready", gin.H{"status": "subscribed"})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent("change", supabase.ChangePayload(event))
		case t := <-ticker.C:
			c.SSEvent("ping", gin.H{"at": t.UTC()})
		}
		c.Writer.Flush()
	}
}
