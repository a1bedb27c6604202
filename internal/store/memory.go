package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
)

// Memory is a process-local Store. One mutex guards every table, so the
// job/message pair is always updated together.
type Memory struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]models.Conversation
	messages      map[uuid.UUID]models.Message
	messageOrder  []uuid.UUID
	jobs          map[uuid.UUID]models.ImageProcessingJob
	jobByMessage  map[uuid.UUID]uuid.UUID
	savedImages   map[uuid.UUID]models.SavedImage
	modelConfig   *models.ModelConfig
	now           func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[uuid.UUID]models.Conversation),
		messages:      make(map[uuid.UUID]models.Message),
		jobs:          make(map[uuid.UUID]models.ImageProcessingJob),
		jobByMessage:  make(map[uuid.UUID]uuid.UUID),
		savedImages:   make(map[uuid.UUID]models.SavedImage),
		now:           time.Now,
	}
}

func (m *Memory) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = m.now()
	}
	m.conversations[conv.ID] = *conv
	return nil
}

func (m *Memory) GetConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, apperr.NotFound("conversation", id.String())
	}
	return &conv, nil
}

func (m *Memory) ListConversations(_ context.Context) ([]models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListMessages(_ context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Message, 0)
	for _, id := range m.messageOrder {
		if msg := m.messages[id]; msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *Memory) GetMessage(_ context.Context, id uuid.UUID) (*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, apperr.NotFound("message", id.String())
	}
	return &msg, nil
}

func (m *Memory) CreateSubmission(_ context.Context, userMsg, aiMsg *models.Message, job *models.ImageProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[userMsg.ConversationID]; !ok {
		return apperr.NotFound("conversation", userMsg.ConversationID.String())
	}

	now := m.now()
	for _, msg := range []*models.Message{userMsg, aiMsg} {
		if msg.ID == uuid.Nil {
			msg.ID = uuid.New()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		m.messages[msg.ID] = *msg
		m.messageOrder = append(m.messageOrder, msg.ID)
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.MessageID = aiMsg.ID
	m.jobs[job.ID] = cloneJob(*job)
	m.jobByMessage[aiMsg.ID] = job.ID
	return nil
}

func (m *Memory) GetJobByMessageID(_ context.Context, messageID uuid.UUID) (*models.ImageProcessingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobID, ok := m.jobByMessage[messageID]
	if !ok {
		return nil, apperr.NotFound("processing job for message", messageID.String())
	}
	job := cloneJob(m.jobs[jobID])
	return &job, nil
}

func (m *Memory) CompleteJob(_ context.Context, c models.JobCompletion) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, msg, err := m.pendingPair(c.JobID, c.MessageID)
	if err != nil || job == nil {
		return false, err
	}

	processed := c.ProcessedImageURL
	seconds := c.ProcessingTime
	completedAt := c.CompletedAt
	job.Status = models.JobCompleted
	job.ProcessedImageURL = &processed
	job.ProcessingTime = &seconds
	job.EnhancementsApplied = append([]string(nil), c.EnhancementsApplied...)
	job.CompletedAt = &completedAt

	msg.ProcessingStatus = models.StatusCompleted
	msg.Content = c.MessageContent
	msg.ImageURL = &processed

	m.jobs[job.ID] = *job
	m.messages[msg.ID] = *msg
	return true, nil
}

func (m *Memory) FailJob(_ context.Context, f models.JobFailure) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, msg, err := m.pendingPair(f.JobID, f.MessageID)
	if err != nil || job == nil {
		return false, err
	}

	errMsg := f.ErrorMessage
	completedAt := f.CompletedAt
	job.Status = models.JobError
	job.ErrorMessage = &errMsg
	job.CompletedAt = &completedAt

	msg.ProcessingStatus = models.StatusError
	msg.Content = f.MessageContent

	m.jobs[job.ID] = *job
	m.messages[msg.ID] = *msg
	return true, nil
}

// pendingPair returns nil, nil, nil when the job is already terminal.
func (m *Memory) pendingPair(jobID, messageID uuid.UUID) (*models.ImageProcessingJob, *models.Message, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, nil, apperr.NotFound("processing job", jobID.String())
	}
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, nil, apperr.NotFound("message", messageID.String())
	}
	if job.Status.IsTerminal() {
		return nil, nil, nil
	}
	return &job, &msg, nil
}

func (m *Memory) ListStaleJobs(_ context.Context, createdBefore time.Time) ([]models.ImageProcessingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ImageProcessingJob
	for _, job := range m.jobs {
		if !job.Status.IsTerminal() && job.CreatedAt.Before(createdBefore) {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetModelConfig(_ context.Context) (*models.ModelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.modelConfig == nil {
		return nil, nil
	}
	cfg := *m.modelConfig
	return &cfg, nil
}

func (m *Memory) SaveModelConfig(_ context.Context, cfg *models.ModelConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg.UpdatedAt = m.now()
	stored := *cfg
	m.modelConfig = &stored
	return nil
}

func (m *Memory) CreateSavedImage(_ context.Context, img *models.SavedImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	now := m.now()
	img.CreatedAt = now
	img.UpdatedAt = now
	if img.Tags == nil {
		img.Tags = []string{}
	}
	stored := *img
	stored.Tags = append([]string(nil), img.Tags...)
	m.savedImages[img.ID] = stored
	return nil
}

func (m *Memory) ListSavedImages(_ context.Context, userID string) ([]models.SavedImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.SavedImage, 0)
	for _, img := range m.savedImages {
		if img.UserID == userID {
			img.Tags = append([]string(nil), img.Tags...)
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteSavedImage(_ context.Context, id uuid.UUID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	img, ok := m.savedImages[id]
	if !ok || img.UserID != userID {
		return apperr.NotFound("saved image", id.String())
	}
	delete(m.savedImages, id)
	return nil
}

func cloneJob(job models.ImageProcessingJob) models.ImageProcessingJob {
	if job.EnhancementsApplied != nil {
		job.EnhancementsApplied = append([]string(nil), job.EnhancementsApplied...)
	}
	return job
}
