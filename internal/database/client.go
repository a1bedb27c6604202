package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/store"
)

// DatabaseClient is the Postgres-backed store.Store.
type DatabaseClient struct {
	db *sql.DB
}

var _ store.Store = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// DB exposes the pool for the migrator and health checks.
func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseClient) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, title)
		VALUES ($1, $2)
		RETURNING created_at
	`, conv.ID, conv.Title).Scan(&conv.CreatedAt)
	if err != nil {
		return apperr.Persistence("failed to create conversation", err)
	}
	return nil
}

func (d *DatabaseClient) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, err := scanConversation(d.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("conversation", id.String())
	}
	if err != nil {
		return nil, apperr.Persistence("failed to get conversation", err)
	}
	return conv, nil
}

func (d *DatabaseClient) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperr.Persistence("failed to list conversations", err)
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, apperr.Persistence("failed to scan conversation", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("failed to list conversations", err)
	}
	return conversations, nil
}

func (d *DatabaseClient) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, role DESC
	`, conversationID)
	if err != nil {
		return nil, apperr.Persistence("failed to list messages", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, apperr.Persistence("failed to scan message", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("failed to list messages", err)
	}
	return messages, nil
}

func (d *DatabaseClient) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	msg, err := scanMessage(d.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("message", id.String())
	}
	if err != nil {
		return nil, apperr.Persistence("failed to get message", err)
	}
	return msg, nil
}

func (d *DatabaseClient) CreateSubmission(ctx context.Context, userMsg, aiMsg *models.Message, job *models.ImageProcessingJob) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, userMsg.ConversationID,
	).Scan(&exists); err != nil {
		return apperr.Persistence("failed to check conversation", err)
	}
	if !exists {
		return apperr.NotFound("conversation", userMsg.ConversationID.String())
	}

	for _, msg := range []*models.Message{userMsg, aiMsg} {
		if msg.ID == uuid.Nil {
			msg.ID = uuid.New()
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, image_url, processing_status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, msg.ID, msg.ConversationID, msg.Role, msg.Content, toNullString(msg.ImageURL), msg.ProcessingStatus,
		).Scan(&msg.CreatedAt)
		if err != nil {
			return apperr.Persistence("failed to insert message", err)
		}
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.MessageID = aiMsg.ID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO image_processing_jobs (id, message_id, original_image_url, prompt, model, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, job.ID, job.MessageID, job.OriginalImageURL, job.Prompt, job.Model, job.Status,
	).Scan(&job.CreatedAt)
	if err != nil {
		return apperr.Persistence("failed to insert processing job", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Persistence("failed to commit submission", err)
	}
	return nil
}

func (d *DatabaseClient) GetJobByMessageID(ctx context.Context, messageID uuid.UUID) (*models.ImageProcessingJob, error) {
	job, err := scanJob(d.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM image_processing_jobs WHERE message_id = $1`, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("processing job for message", messageID.String())
	}
	if err != nil {
		return nil, apperr.Persistence("failed to get processing job", err)
	}
	return job, nil
}

func (d *DatabaseClient) CompleteJob(ctx context.Context, c models.JobCompletion) (bool, error) {
	return d.finishJob(ctx, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, `
			UPDATE image_processing_jobs
			SET status = $1, processed_image_url = $2, processing_time = $3,
				enhancements_applied = $4, completed_at = $5
			WHERE id = $6 AND status IN ('pending', 'processing')
		`, models.JobCompleted, c.ProcessedImageURL, c.ProcessingTime,
			pq.Array(c.EnhancementsApplied), c.CompletedAt, c.JobID)
	}, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE messages SET processing_status = $1, content = $2, image_url = $3
			WHERE id = $4
		`, models.StatusCompleted, c.MessageContent, c.ProcessedImageURL, c.MessageID)
		return err
	})
}

func (d *DatabaseClient) FailJob(ctx context.Context, f models.JobFailure) (bool, error) {
	return d.finishJob(ctx, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, `
			UPDATE image_processing_jobs
			SET status = $1, error_message = $2, completed_at = $3
			WHERE id = $4 AND status IN ('pending', 'processing')
		`, models.JobError, f.ErrorMessage, f.CompletedAt, f.JobID)
	}, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE messages SET processing_status = $1, content = $2
			WHERE id = $3
		`, models.StatusError, f.MessageContent, f.MessageID)
		return err
	})
}

// finishJob runs the guarded job update and, only if it matched a row, the
// message update, in one transaction.
func (d *DatabaseClient) finishJob(ctx context.Context, updateJob func(*sql.Tx) (sql.Result, error), updateMessage func(*sql.Tx) error) (bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	result, err := updateJob(tx)
	if err != nil {
		return false, apperr.Persistence("failed to update processing job", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperr.Persistence("failed to update processing job", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := updateMessage(tx); err != nil {
		return false, apperr.Persistence("failed to update message", err)
	}
	if err := tx.Commit(); err != nil {
		return false, apperr.Persistence("failed to commit job outcome", err)
	}
	return true, nil
}

func (d *DatabaseClient) ListStaleJobs(ctx context.Context, createdBefore time.Time) ([]models.ImageProcessingJob, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM image_processing_jobs
		WHERE status IN ('pending', 'processing') AND created_at < $1
		ORDER BY created_at ASC
	`, createdBefore)
	if err != nil {
		return nil, apperr.Persistence("failed to list stale jobs", err)
	}
	defer rows.Close()

	var jobs []models.ImageProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperr.Persistence("failed to scan processing job", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("failed to list stale jobs", err)
	}
	return jobs, nil
}

func (d *DatabaseClient) GetModelConfig(ctx context.Context) (*models.ModelConfig, error) {
	cfg, err := scanModelConfig(d.db.QueryRowContext(ctx,
		`SELECT `+modelConfigColumns+` FROM model_configs WHERE id = 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("failed to get model config", err)
	}
	return cfg, nil
}

func (d *DatabaseClient) SaveModelConfig(ctx context.Context, cfg *models.ModelConfig) error {
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO model_configs (id, model, output_quality, max_resolution, timeout, api_key, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			model = EXCLUDED.model,
			output_quality = EXCLUDED.output_quality,
			max_resolution = EXCLUDED.max_resolution,
			timeout = EXCLUDED.timeout,
			api_key = EXCLUDED.api_key,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`, cfg.Model, cfg.OutputQuality, cfg.MaxResolution, cfg.Timeout, cfg.APIKey).Scan(&cfg.UpdatedAt)
	if err != nil {
		return apperr.Persistence("failed to save model config", err)
	}
	return nil
}

func (d *DatabaseClient) CreateSavedImage(ctx context.Context, img *models.SavedImage) error {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	if img.Tags == nil {
		img.Tags = []string{}
	}
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO saved_images (id, user_id, title, object_path, original_image_path, prompt, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, img.ID, img.UserID, img.Title, img.ObjectPath,
		toNullString(img.OriginalImagePath), toNullString(img.Prompt), pq.Array(img.Tags),
	).Scan(&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return apperr.Persistence("failed to save image", err)
	}
	return nil
}

func (d *DatabaseClient) ListSavedImages(ctx context.Context, userID string) ([]models.SavedImage, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+savedImageColumns+`
		FROM saved_images
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, apperr.Persistence("failed to list saved images", err)
	}
	defer rows.Close()

	images := make([]models.SavedImage, 0)
	for rows.Next() {
		img, err := scanSavedImage(rows)
		if err != nil {
			return nil, apperr.Persistence("failed to scan saved image", err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("failed to list saved images", err)
	}
	return images, nil
}

func (d *DatabaseClient) DeleteSavedImage(ctx context.Context, id uuid.UUID, userID string) error {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM saved_images WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Persistence("failed to delete saved image", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Persistence("failed to delete saved image", err)
	}
	if affected == 0 {
		return apperr.NotFound("saved image", id.String())
	}
	return nil
}
