package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

// IsTerminal reports whether no further transitions can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobError
}

type ImageProcessingJob struct {
	ID                  uuid.UUID  `json:"id"`
	MessageID           uuid.UUID  `json:"messageId"`
	OriginalImageURL    string     `json:"originalImageUrl"`
	ProcessedImageURL   *string    `json:"processedImageUrl"`
	Prompt              string     `json:"prompt"`
	Model               string     `json:"model"`
	Status              JobStatus  `json:"status"`
	ProcessingTime      *int       `json:"processingTime"`
	ErrorMessage        *string    `json:"errorMessage"`
	EnhancementsApplied []string   `json:"enhancementsApplied"`
	CreatedAt           time.Time  `json:"createdAt"`
	CompletedAt         *time.Time `json:"completedAt"`
}

// JobCompletion carries the outcome written by the background task on success.
type JobCompletion struct {
	JobID               uuid.UUID
	MessageID           uuid.UUID
	ProcessedImageURL   string
	ProcessingTime      int
	EnhancementsApplied []string
	MessageContent      string
	CompletedAt         time.Time
}

// JobFailure carries the outcome written by the background task on failure.
type JobFailure struct {
	JobID          uuid.UUID
	MessageID      uuid.UUID
	ErrorMessage   string
	MessageContent string
	CompletedAt    time.Time
}
