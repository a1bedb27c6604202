// Package store declares the persistence contracts used by the services and
// handlers. The Postgres implementation lives in internal/database; Memory is
// used when no DATABASE_URL is configured and by tests.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"prompt-image-studio/internal/models"
)

type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)
}

type JobStore interface {
	// CreateSubmission inserts the user message, the assistant placeholder and
	// the job atomically.
	CreateSubmission(ctx context.Context, userMsg, aiMsg *models.Message, job *models.ImageProcessingJob) error
	GetJobByMessageID(ctx context.Context, messageID uuid.UUID) (*models.ImageProcessingJob, error)
	// CompleteJob and FailJob update the job and its assistant message together.
	// They return false when the job was already terminal.
	CompleteJob(ctx context.Context, c models.JobCompletion) (bool, error)
	FailJob(ctx context.Context, f models.JobFailure) (bool, error)
	ListStaleJobs(ctx context.Context, createdBefore time.Time) ([]models.ImageProcessingJob, error)
}

type ModelConfigStore interface {
	// GetModelConfig returns nil, nil when nothing has been configured yet.
	GetModelConfig(ctx context.Context) (*models.ModelConfig, error)
	SaveModelConfig(ctx context.Context, cfg *models.ModelConfig) error
}

type LibraryStore interface {
	CreateSavedImage(ctx context.Context, img *models.SavedImage) error
	ListSavedImages(ctx context.Context, userID string) ([]models.SavedImage, error)
	DeleteSavedImage(ctx context.Context, id uuid.UUID, userID string) error
}

type Store interface {
	ConversationStore
	JobStore
	ModelConfigStore
	LibraryStore
}
