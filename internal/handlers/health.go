package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"prompt-image-studio/internal/models"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db           Pinger
	inFlight     func() int
	eventStreams func() int
}

// NewHealthHandler accepts a nil db when the server runs on the in-memory store.
func NewHealthHandler(db Pinger, inFlight, eventStreams func() int) *HealthHandler {
	return &HealthHandler{db: db, inFlight: inFlight, eventStreams: eventStreams}
}

// Health godoc
// @Summary     Health check
// @Description Returns the health status of the API
// @Tags        health
// @Accept      json
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Failure     503 {object} models.HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response := models.HealthResponse{Status: "ok"}
	if h.inFlight != nil {
		response.InFlightJobs = h.inFlight()
	}
	if h.eventStreams != nil {
		response.EventStreams = h.eventStreams()
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			_ = c.Error(err)
			response.Status = "degraded"
			response.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			response.Database = "ok"
		}
	}
	c.JSON(status, response)
}
