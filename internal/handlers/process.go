package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/services"
)

type ProcessHandler struct {
	processing *services.ProcessingService
}

func NewProcessHandler(processing *services.ProcessingService) *ProcessHandler {
	return &ProcessHandler{processing: processing}
}

// ProcessImage godoc
// @Summary     Submit an image edit
// @Description Records the prompt, creates a placeholder assistant message and a processing job,
// @Description and runs the AI edit in the background. Poll the job by the assistant message id.
// @Tags        process
// @Accept      json
// @Produce     json
// @Param       request body models.ProcessImageRequest true "Conversation, image and prompt"
// @Success     201 {object} models.ProcessImageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /process-image [post]
func (h *ProcessHandler) ProcessImage(c *gin.Context) {
	var req models.ProcessImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	result, err := h.processing.Submit(c.Request.Context(), services.SubmitRequest{
		ConversationID: req.ConversationID,
		ImageURL:       req.ImageURL,
		Prompt:         req.Prompt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ProcessImageResponse{
		UserMessage:   result.UserMessage,
		AIMessage:     result.AIMessage,
		ProcessingJob: result.Job,
	})
}
