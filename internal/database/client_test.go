package database_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/database"
	"prompt-image-studio/internal/logger"
	"prompt-image-studio/internal/models"
)

var (
	pgOnce      sync.Once
	pgContainer *postgres.PostgresContainer
	pgDSN       string
	pgErr       error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

// newTestClient returns a client on a migrated Postgres container shared by
// the package. Tests are skipped when Docker is unavailable.
func newTestClient(t *testing.T) *database.DatabaseClient {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pgOnce.Do(func() {
		pgContainer, pgErr = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("studio"),
			postgres.WithUsername("studio"),
			postgres.WithPassword("studio"),
			postgres.BasicWaitStrategies(),
		)
		if pgErr != nil {
			return
		}
		pgDSN, pgErr = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if pgErr != nil {
			return
		}
		var db *database.DatabaseClient
		db, pgErr = database.NewDatabaseClient(ctx, pgDSN)
		if pgErr != nil {
			return
		}
		defer db.Close()
		pgErr = database.NewMigrator(db.DB(), logger.Nop()).Run(ctx)
	})
	require.NoError(t, pgErr)

	client, err := database.NewDatabaseClient(ctx, pgDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newSubmission(convID uuid.UUID) (*models.Message, *models.Message, *models.ImageProcessingJob) {
	imageURL := "/images/upload_1.png"
	userMsg := &models.Message{ConversationID: convID, Role: models.RoleUser, Content: "Enhance colors", ImageURL: &imageURL, ProcessingStatus: models.StatusCompleted}
	aiMsg := &models.Message{ConversationID: convID, Role: models.RoleAssistant, Content: models.ProcessingPlaceholder, ProcessingStatus: models.StatusProcessing}
	job := &models.ImageProcessingJob{OriginalImageURL: imageURL, Prompt: "Enhance colors", Model: "google/gemini-2.5-flash-image-preview", Status: models.JobProcessing}
	return userMsg, aiMsg, job
}

func submit(t *testing.T, db *database.DatabaseClient) (*models.Message, *models.Message, *models.ImageProcessingJob) {
	t.Helper()
	ctx := context.Background()

	conv := &models.Conversation{Title: "test"}
	require.NoError(t, db.CreateConversation(ctx, conv))

	userMsg, aiMsg, job := newSubmission(conv.ID)
	require.NoError(t, db.CreateSubmission(ctx, userMsg, aiMsg, job))
	return userMsg, aiMsg, job
}

func TestDatabase_CreateSubmission(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()
	userMsg, aiMsg, job := submit(t, db)

	assert.Equal(t, aiMsg.ID, job.MessageID)
	assert.False(t, job.CreatedAt.IsZero())

	got, err := db.GetJobByMessageID(ctx, aiMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobProcessing, got.Status)
	assert.Nil(t, got.ProcessedImageURL)

	msgs, err := db.ListMessages(ctx, userMsg.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	require.NotNil(t, msgs[0].ImageURL)
	assert.Equal(t, "/images/upload_1.png", *msgs[0].ImageURL)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, models.StatusProcessing, msgs[1].ProcessingStatus)
}

func TestDatabase_CreateSubmission_UnknownConversation(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()
	userMsg, aiMsg, job := newSubmission(uuid.New())

	err := db.CreateSubmission(ctx, userMsg, aiMsg, job)
	assert.True(t, apperr.IsNotFound(err))

	_, err = db.GetJobByMessageID(ctx, aiMsg.ID)
	assert.True(t, apperr.IsNotFound(err))
	msgs, err := db.ListMessages(ctx, userMsg.ConversationID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDatabase_CreateSubmission_JobInsertFailureRollsBackMessages(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()

	conv := &models.Conversation{Title: "test"}
	require.NoError(t, db.CreateConversation(ctx, conv))
	userMsg, aiMsg, job := newSubmission(conv.ID)
	job.Status = "bogus"

	err := db.CreateSubmission(ctx, userMsg, aiMsg, job)
	var persistence *apperr.PersistenceError
	require.ErrorAs(t, err, &persistence)

	_, err = db.GetMessage(ctx, userMsg.ID)
	assert.True(t, apperr.IsNotFound(err))
	_, err = db.GetMessage(ctx, aiMsg.ID)
	assert.True(t, apperr.IsNotFound(err))
	msgs, err := db.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDatabase_CreateSubmission_DuplicateMessageRollsBack(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()

	conv := &models.Conversation{Title: "test"}
	require.NoError(t, db.CreateConversation(ctx, conv))
	userMsg, aiMsg, job := newSubmission(conv.ID)
	userMsg.ID = uuid.New()
	aiMsg.ID = userMsg.ID

	err := db.CreateSubmission(ctx, userMsg, aiMsg, job)
	require.Error(t, err)

	_, err = db.GetMessage(ctx, userMsg.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDatabase_CompleteJob_LateFailureIsIgnored(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()
	_, aiMsg, job := submit(t, db)

	updated, err := db.CompleteJob(ctx, models.JobCompletion{
		JobID:               job.ID,
		MessageID:           aiMsg.ID,
		ProcessedImageURL:   "/images/processed_abc.png",
		ProcessingTime:      3,
		EnhancementsApplied: []string{"brighter", "warmer"},
		MessageContent:      "- brighter\n- warmer",
		CompletedAt:         time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = db.FailJob(ctx, models.JobFailure{
		JobID:          job.ID,
		MessageID:      aiMsg.ID,
		ErrorMessage:   "late",
		MessageContent: "Sorry: late",
		CompletedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, updated)

	got, err := db.GetJobByMessageID(ctx, aiMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)
	require.NotNil(t, got.ProcessedImageURL)
	assert.Equal(t, "/images/processed_abc.png", *got.ProcessedImageURL)
	require.NotNil(t, got.ProcessingTime)
	assert.Equal(t, 3, *got.ProcessingTime)
	assert.Equal(t, []string{"brighter", "warmer"}, got.EnhancementsApplied)
	assert.Nil(t, got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)

	msg, err := db.GetMessage(ctx, aiMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, msg.ProcessingStatus)
	assert.Equal(t, "- brighter\n- warmer", msg.Content)
	require.NotNil(t, msg.ImageURL)
	assert.Equal(t, "/images/processed_abc.png", *msg.ImageURL)
}

func TestDatabase_FailJob(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()
	_, aiMsg, job := submit(t, db)

	updated, err := db.FailJob(ctx, models.JobFailure{
		JobID:          job.ID,
		MessageID:      aiMsg.ID,
		ErrorMessage:   "boom",
		MessageContent: "Sorry: boom",
		CompletedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := db.GetJobByMessageID(ctx, aiMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobError, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "boom", *got.ErrorMessage)

	msg, err := db.GetMessage(ctx, aiMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, msg.ProcessingStatus)
	assert.Equal(t, "Sorry: boom", msg.Content)
}

func TestDatabase_ListStaleJobs(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Minute)
	_, _, job := submit(t, db)

	stale, err := db.ListStaleJobs(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, containsJob(stale, job.ID))

	stale, err = db.ListStaleJobs(ctx, before)
	require.NoError(t, err)
	assert.False(t, containsJob(stale, job.ID))
}

func containsJob(jobs []models.ImageProcessingJob, id uuid.UUID) bool {
	for _, j := range jobs {
		if j.ID == id {
			return true
		}
	}
	return false
}

func TestDatabase_ModelConfig_Upsert(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()

	cfg := &models.ModelConfig{Model: "model-a", OutputQuality: "high", MaxResolution: 2048, Timeout: 120, APIKey: "sk-a"}
	require.NoError(t, db.SaveModelConfig(ctx, cfg))
	cfg = &models.ModelConfig{Model: "model-b", OutputQuality: "medium", MaxResolution: 1024, Timeout: 600}
	require.NoError(t, db.SaveModelConfig(ctx, cfg))

	got, err := db.GetModelConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "model-b", got.Model)
	assert.Equal(t, "medium", got.OutputQuality)
	assert.Equal(t, 1024, got.MaxResolution)
	assert.Equal(t, 600, got.Timeout)
	assert.Empty(t, got.APIKey)
}

func TestDatabase_SavedImages_ScopedByUser(t *testing.T) {
	db := newTestClient(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	prompt := "make it pop"
	img := &models.SavedImage{UserID: userID, Title: "sunset", ObjectPath: "/images/a.png", Prompt: &prompt, Tags: []string{"sky", "warm"}}
	require.NoError(t, db.CreateSavedImage(ctx, img))

	list, err := db.ListSavedImages(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"sky", "warm"}, list[0].Tags)
	require.NotNil(t, list[0].Prompt)
	assert.Equal(t, prompt, *list[0].Prompt)
	assert.Nil(t, list[0].OriginalImagePath)

	err = db.DeleteSavedImage(ctx, img.ID, "someone-else")
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, db.DeleteSavedImage(ctx, img.ID, userID))
	list, err = db.ListSavedImages(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	db := newTestClient(t)

	require.NoError(t, database.NewMigrator(db.DB(), logger.Nop()).Run(context.Background()))

	var applied int
	require.NoError(t, db.DB().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)
}
