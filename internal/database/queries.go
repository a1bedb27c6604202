package database

import (
	"database/sql"

	"github.com/lib/pq"
	"prompt-image-studio/internal/models"
)

const (
	conversationColumns = `id, title, created_at`
	messageColumns      = `id, conversation_id, role, content, image_url, processing_status, created_at`
	jobColumns          = `id, message_id, original_image_url, processed_image_url, prompt, model, status,
		processing_time, error_message, enhancements_applied, created_at, completed_at`
	savedImageColumns  = `id, user_id, title, object_path, original_image_path, prompt, tags, created_at, updated_at`
	modelConfigColumns = `model, output_quality, max_resolution, timeout, api_key, updated_at`
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var conv models.Conversation
	if err := row.Scan(&conv.ID, &conv.Title, &conv.CreatedAt); err != nil {
		return nil, err
	}
	return &conv, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		msg      models.Message
		imageURL sql.NullString
	)
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
		&imageURL, &msg.ProcessingStatus, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.ImageURL = nullString(imageURL)
	return &msg, nil
}

func scanJob(row rowScanner) (*models.ImageProcessingJob, error) {
	var (
		job            models.ImageProcessingJob
		processedURL   sql.NullString
		processingTime sql.NullInt64
		errorMessage   sql.NullString
		enhancements   pq.StringArray
		completedAt    sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.MessageID, &job.OriginalImageURL, &processedURL,
		&job.Prompt, &job.Model, &job.Status,
		&processingTime, &errorMessage, &enhancements,
		&job.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	job.ProcessedImageURL = nullString(processedURL)
	job.ErrorMessage = nullString(errorMessage)
	if processingTime.Valid {
		seconds := int(processingTime.Int64)
		job.ProcessingTime = &seconds
	}
	if enhancements != nil {
		job.EnhancementsApplied = []string(enhancements)
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func scanSavedImage(row rowScanner) (*models.SavedImage, error) {
	var (
		img          models.SavedImage
		originalPath sql.NullString
		prompt       sql.NullString
		tags         pq.StringArray
	)
	err := row.Scan(
		&img.ID, &img.UserID, &img.Title, &img.ObjectPath,
		&originalPath, &prompt, &tags, &img.CreatedAt, &img.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	img.OriginalImagePath = nullString(originalPath)
	img.Prompt = nullString(prompt)
	img.Tags = []string(tags)
	if img.Tags == nil {
		img.Tags = []string{}
	}
	return &img, nil
}

func scanModelConfig(row rowScanner) (*models.ModelConfig, error) {
	var cfg models.ModelConfig
	err := row.Scan(
		&cfg.Model, &cfg.OutputQuality, &cfg.MaxResolution,
		&cfg.Timeout, &cfg.APIKey, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
