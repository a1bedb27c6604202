package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/store"
)

// LibraryService manages a user's saved images.
type LibraryService struct {
	store store.LibraryStore
}

func NewLibraryService(st store.LibraryStore) *LibraryService {
	return &LibraryService{store: st}
}

func (s *LibraryService) Save(ctx context.Context, userID string, req models.SaveImageRequest) (*models.SavedImage, error) {
	title := strings.TrimSpace(req.Title)
	objectPath := strings.TrimSpace(req.ObjectPath)
	if title == "" {
		return nil, apperr.Validation("title", "title is required")
	}
	if objectPath == "" {
		return nil, apperr.Validation("objectPath", "objectPath is required")
	}

	img := &models.SavedImage{
		UserID:            userID,
		Title:             title,
		ObjectPath:        objectPath,
		OriginalImagePath: optional(req.OriginalImagePath),
		Prompt:            optional(req.Prompt),
		Tags:              cleanTags(req.Tags),
	}
	if err := s.store.CreateSavedImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *LibraryService) List(ctx context.Context, userID string) ([]models.SavedImage, error) {
	return s.store.ListSavedImages(ctx, userID)
}

func (s *LibraryService) Delete(ctx context.Context, userID, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return apperr.NotFound("saved image", rawID)
	}
	return s.store.DeleteSavedImage(ctx, id, userID)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
