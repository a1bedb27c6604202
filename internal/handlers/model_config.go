package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/services"
)

type ModelConfigHandler struct {
	configs *services.ModelConfigService
}

func NewModelConfigHandler(configs *services.ModelConfigService) *ModelConfigHandler {
	return &ModelConfigHandler{configs: configs}
}

// GetModelConfig godoc
// @Summary     Active model configuration
// @Description The API key itself is never returned, only whether one is configured.
// @Tags        model-config
// @Produce     json
// @Success     200 {object} models.ModelConfigResponse
// @Router      /model-config [get]
func (h *ModelConfigHandler) GetModelConfig(c *gin.Context) {
	cfg, err := h.configs.Effective(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.configs.Response(cfg))
}

// UpdateModelConfig godoc
// @Summary     Update the model configuration
// @Description Omitted fields keep their current value. An empty apiKey clears the stored key.
// @Tags        model-config
// @Accept      json
// @Produce     json
// @Param       request body models.ModelConfigRequest true "Fields to change"
// @Success     200 {object} models.ModelConfigResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /model-config [post]
func (h *ModelConfigHandler) UpdateModelConfig(c *gin.Context) {
	var req models.ModelConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	cfg, err := h.configs.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.configs.Response(cfg))
}
