package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
)

// respondError writes the ErrorResponse matching err's type. Internal errors
// are attached to the gin context for the request logger and not echoed.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)

	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
		config     *apperr.ConfigurationError
		provider   *apperr.ProviderError
	)
	resp := models.ErrorResponse{Message: err.Error()}
	switch {
	case errors.As(err, &validation):
		resp.Error = "invalid request"
		resp.Message = validation.Message
	case errors.As(err, &notFound):
		resp.Error = notFound.Resource + " not found"
	case errors.As(err, &config):
		resp.Error = "service not configured"
	case errors.As(err, &provider):
		resp.Error = "AI provider error"
	default:
		_ = c.Error(err)
		resp.Error = "internal server error"
		resp.Message = ""
	}

	c.JSON(status, resp)
}

func badRequest(c *gin.Context, short string, err error) {
	resp := models.ErrorResponse{Error: short}
	if err != nil {
		resp.Message = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}
