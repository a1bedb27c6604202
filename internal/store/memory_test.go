package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/store"
)

func submit(t *testing.T, s *store.Memory) (*models.Message, *models.Message, *models.ImageProcessingJob) {
	t.Helper()
	ctx := context.Background()

	conv := &models.Conversation{Title: "test"}
	require.NoError(t, s.CreateConversation(ctx, conv))

	imageURL := "/images/x.png"
	userMsg := &models.Message{ConversationID: conv.ID, Role: models.RoleUser, Content: "Enhance colors", ImageURL: &imageURL, ProcessingStatus: models.StatusCompleted}
	aiMsg := &models.Message{ConversationID: conv.ID, Role: models.RoleAssistant, Content: models.ProcessingPlaceholder, ProcessingStatus: models.StatusProcessing}
	job := &models.ImageProcessingJob{OriginalImageURL: imageURL, Prompt: "Enhance colors", Model: "m", Status: models.JobProcessing}
	require.NoError(t, s.CreateSubmission(ctx, userMsg, aiMsg, job))
	return userMsg, aiMsg, job
}

func TestMemory_CreateSubmission(t *testing.T) {
	s := store.NewMemory()
	userMsg, aiMsg, job := submit(t, s)

	assert.NotEqual(t, uuid.Nil, userMsg.ID)
	assert.Equal(t, aiMsg.ID, job.MessageID)

	got, err := s.GetJobByMessageID(context.Background(), aiMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobProcessing, got.Status)

	msgs, err := s.ListMessages(context.Background(), userMsg.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
}

func TestMemory_CreateSubmission_UnknownConversation(t *testing.T) {
	s := store.NewMemory()
	userMsg := &models.Message{ConversationID: uuid.New()}
	aiMsg := &models.Message{ConversationID: userMsg.ConversationID}

	err := s.CreateSubmission(context.Background(), userMsg, aiMsg, &models.ImageProcessingJob{})
	assert.True(t, apperr.IsNotFound(err))
}

func TestMemory_CompleteJob_UpdatesPairOnce(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	_, aiMsg, job := submit(t, s)

	updated, err := s.CompleteJob(ctx, models.JobCompletion{
		JobID:               job.ID,
		MessageID:           aiMsg.ID,
		ProcessedImageURL:   "/images/processed_abc.png",
		ProcessingTime:      3,
		EnhancementsApplied: []string{"brighter"},
		MessageContent:      "- brighter",
		CompletedAt:         time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, updated)

	// a late failure must not flip a completed job
	updated, err = s.FailJob(ctx, models.JobFailure{JobID: job.ID, MessageID: aiMsg.ID, ErrorMessage: "late", CompletedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, updated)

	got, err := s.GetJobByMessageID(ctx, aiMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)
	require.NotNil(t, got.ProcessedImageURL)
	assert.Equal(t, "/images/processed_abc.png", *got.ProcessedImageURL)
	assert.NotNil(t, got.CompletedAt)

	msg, err := s.GetMessage(ctx, aiMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, msg.ProcessingStatus)
	assert.Equal(t, string(got.Status), string(msg.ProcessingStatus))
}

func TestMemory_FailJob(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	_, aiMsg, job := submit(t, s)

	updated, err := s.FailJob(ctx, models.JobFailure{
		JobID:          job.ID,
		MessageID:      aiMsg.ID,
		ErrorMessage:   "boom",
		MessageContent: "Sorry: boom",
		CompletedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, updated)

	got, _ := s.GetJobByMessageID(ctx, aiMsg.ID)
	msg, _ := s.GetMessage(ctx, aiMsg.ID)
	assert.Equal(t, models.JobError, got.Status)
	assert.Equal(t, "boom", *got.ErrorMessage)
	assert.Equal(t, models.StatusError, msg.ProcessingStatus)
	assert.Equal(t, "Sorry: boom", msg.Content)
}

func TestMemory_ListStaleJobs(t *testing.T) {
	s := store.NewMemory()
	submit(t, s)

	stale, err := s.ListStaleJobs(context.Background(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	stale, err = s.ListStaleJobs(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestMemory_SavedImages_ScopedByUser(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	img := &models.SavedImage{UserID: "user-1", Title: "sunset", ObjectPath: "/images/a.png"}
	require.NoError(t, s.CreateSavedImage(ctx, img))

	list, err := s.ListSavedImages(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, list)

	err = s.DeleteSavedImage(ctx, img.ID, "user-2")
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, s.DeleteSavedImage(ctx, img.ID, "user-1"))
	list, err = s.ListSavedImages(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
