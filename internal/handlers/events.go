package handlers

import (
	"fmt"
	"io"
	"net/http"

	"heistctf/internal/logger"
	"heistctf/internal/notifier"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventHandler streams scoreboard invalidation events over SSE. Events carry
// no standings; clients re-fetch the rank endpoints when one arrives.
type EventHandler struct {
	hub *notifier.Hub
}

func NewEventHandler(hub *notifier.Hub) *EventHandler {
	return &EventHandler{hub: hub}
}

func (h *EventHandler) Subscribe(c *gin.Context) {
	topic := c.DefaultQuery("topic", notifier.TopicScoreboard)
	if !notifier.ValidTopic(topic) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown topic: %s", topic)})
		return
	}

	id, events := h.hub.Subscribe(topic)
	defer h.hub.Unsubscribe(topic, id)

	logger.Log.Info("SSE subscriber connected",
		zap.String("topic", topic),
		zap.String("subscriber_id", id))

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("scoreboard-update", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	logger.Log.Info("SSE subscriber disconnected",
		zap.String("topic", topic),
		zap.String("subscriber_id", id))
}

func (h *EventHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/events", h.Subscribe)
}
