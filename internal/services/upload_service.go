package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/imageproc"
	"prompt-image-studio/internal/imagestore"
	"prompt-image-studio/internal/logger"
	"prompt-image-studio/internal/models"
)

const MaxUploadSize = 10 << 20

type UploadService struct {
	images  imagestore.ImageStore
	configs *ModelConfigService
	log     *logger.Logger
}

func NewUploadService(images imagestore.ImageStore, configs *ModelConfigService, log *logger.Logger) *UploadService {
	return &UploadService{
		images:  images,
		configs: configs,
		log:     log.With("component", "UploadService"),
	}
}

// Upload validates the image, downscales it to the configured max resolution
// and stores it under a fresh name.
func (s *UploadService) Upload(ctx context.Context, originalName string, data []byte) (*models.UploadResponse, error) {
	if len(data) == 0 {
		return nil, apperr.Validation("image", "no image file provided")
	}
	if len(data) > MaxUploadSize {
		return nil, apperr.Validation("image", "file exceeds the 10MB limit")
	}

	info, err := imageproc.Inspect(data)
	if errors.Is(err, imageproc.ErrUnsupportedFormat) {
		return nil, apperr.Validation("image", err.Error())
	}
	if err != nil {
		return nil, apperr.Validation("image", "file is not a readable image")
	}

	cfg, err := s.configs.Effective(ctx)
	if err != nil {
		return nil, err
	}

	out, outInfo, resized, err := imageproc.Fit(data, info, cfg.MaxResolution, cfg.OutputQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	if resized {
		s.log.Info("Downscaled upload",
			"original_name", originalName,
			"from", fmt.Sprintf("%dx%d", info.Width, info.Height),
			"to", fmt.Sprintf("%dx%d", outInfo.Width, outInfo.Height),
		)
	}

	name := "upload_" + uuid.New().String() + "." + imagestore.ExtensionFor(outInfo.MimeType)
	urlPath, err := s.images.Save(ctx, name, out, outInfo.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	return &models.UploadResponse{
		ImageURL:     urlPath,
		OriginalName: originalName,
		Size:         int64(len(out)),
		MimeType:     outInfo.MimeType,
		Width:        outInfo.Width,
		Height:       outInfo.Height,
	}, nil
}

// Image returns stored bytes for serving.
func (s *UploadService) Image(ctx context.Context, name string) ([]byte, string, error) {
	if err := imagestore.ValidateName(name); err != nil {
		return nil, "", apperr.NotFound("image", name)
	}
	data, err := s.images.Open(ctx, name)
	if errors.Is(err, imagestore.ErrNotFound) {
		return nil, "", apperr.NotFound("image", name)
	}
	if err != nil {
		return nil, "", err
	}
	return data, imagestore.ContentType(name, data), nil
}
