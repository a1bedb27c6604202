package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/events"
	"prompt-image-studio/internal/services"
)

const sseHeartbeat = 15 * time.Second

type JobHandler struct {
	processing *services.ProcessingService
	hub        *events.Hub
}

func NewJobHandler(processing *services.ProcessingService, hub *events.Hub) *JobHandler {
	return &JobHandler{processing: processing, hub: hub}
}

// GetJob godoc
// @Summary     Get a processing job
// @Description Returns the job attached to an assistant message.
// @Tags        jobs
// @Produce     json
// @Param       messageId path string true "Assistant message ID (UUID)"
// @Success     200 {object} models.ImageProcessingJob
// @Failure     404 {object} models.ErrorResponse
// @Router      /processing-jobs/{messageId} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	job, err := h.processing.Job(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Events godoc
// @Summary     Stream job updates
// @Description Server-sent events. Emits one "job" event with the job record once it is terminal, then closes.
// @Tags        jobs
// @Produce     text/event-stream
// @Param       messageId path string true "Assistant message ID (UUID)"
// @Router      /processing-jobs/{messageId}/events [get]
func (h *JobHandler) Events(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// subscribe first so a completion between the read and the wait is not lost
	updates, cancel := h.hub.Subscribe(messageID)
	defer cancel()

	job, err := h.processing.Job(ctx, messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.Writer.Flush()
	if job.Status.IsTerminal() {
		c.SSEvent("job", job)
		c.Writer.Flush()
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = c.Writer.WriteString(": ping\n\n")
			c.Writer.Flush()
		case _, open := <-updates:
			if !open {
				return
			}
			job, err := h.processing.Job(ctx, messageID)
			if err != nil {
				_ = c.Error(err)
				return
			}
			if job.Status.IsTerminal() {
				c.SSEvent("job", job)
				c.Writer.Flush()
				return
			}
		}
	}
}

func parseMessageID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("messageId")
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, apperr.NotFound("processing job for message", raw))
		return uuid.Nil, false
	}
	return id, true
}
