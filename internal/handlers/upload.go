package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/services"
)

// multipart overhead allowed on top of the file itself
const uploadFormSlack = 1 << 20

type UploadHandler struct {
	uploads *services.UploadService
}

func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload godoc
// @Summary     Upload an image
// @Description Accepts one JPEG, PNG or WebP file up to 10MB in the "image" field.
// @Description Images larger than the configured max resolution are downscaled before storing.
// @Tags        upload
// @Accept      multipart/form-data
// @Produce     json
// @Param       image formData file true "Image file"
// @Success     201 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadSize+uploadFormSlack)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(c, "file too large", errors.New("file exceeds the 10MB limit"))
			return
		}
		badRequest(c, "no image file provided", err)
		return
	}
	if fileHeader.Size > services.MaxUploadSize {
		badRequest(c, "file too large", errors.New("file exceeds the 10MB limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read upload", Message: err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read upload", Message: err.Error()})
		return
	}

	resp, err := h.uploads.Upload(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ServeImage streams stored bytes for /images/:filename.
func (h *UploadHandler) ServeImage(c *gin.Context) {
	data, contentType, err := h.uploads.Image(c.Request.Context(), c.Param("filename"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, contentType, data)
}
