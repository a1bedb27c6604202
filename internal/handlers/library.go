package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"prompt-image-studio/internal/middleware"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/services"
)

type LibraryHandler struct {
	library *services.LibraryService
}

func NewLibraryHandler(library *services.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// SaveImage godoc
// @Summary  Save an image to the library
// @Tags     library
// @Accept   json
// @Produce  json
// @Security Bearer
// @Param    request body models.SaveImageRequest true "Image to save"
// @Success  201 {object} models.SavedImage
// @Failure  400 {object} models.ErrorResponse
// @Failure  401 {object} models.ErrorResponse
// @Router   /library [post]
func (h *LibraryHandler) SaveImage(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	var req models.SaveImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	img, err := h.library.Save(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

// ListImages godoc
// @Summary  List the caller's saved images, newest first
// @Tags     library
// @Produce  json
// @Security Bearer
// @Success  200 {object} models.LibraryResponse
// @Router   /library [get]
func (h *LibraryHandler) ListImages(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	images, err := h.library.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if images == nil {
		images = []models.SavedImage{}
	}
	c.JSON(http.StatusOK, models.LibraryResponse{Images: images})
}

func (h *LibraryHandler) DeleteImage(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	if err := h.library.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
