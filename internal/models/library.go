package models

import (
	"time"

	"github.com/google/uuid"
)

type SavedImage struct {
	ID                uuid.UUID `json:"id"`
	UserID            string    `json:"userId"`
	Title             string    `json:"title"`
	ObjectPath        string    `json:"objectPath"`
	OriginalImagePath *string   `json:"originalImagePath,omitempty"`
	Prompt            *string   `json:"prompt,omitempty"`
	Tags              []string  `json:"tags"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
