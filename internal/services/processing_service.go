package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/events"
	"prompt-image-studio/internal/logger"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/openrouter"
	"prompt-image-studio/internal/store"
	"prompt-image-studio/internal/worker"
)

const InterruptedMessage = "processing was interrupted before completion"

// ImageProcessor is the AI adapter; *openrouter.Client satisfies it.
type ImageProcessor interface {
	Process(ctx context.Context, req openrouter.Request) (*openrouter.Result, error)
}

type SubmitRequest struct {
	ConversationID string
	ImageURL       string
	Prompt         string
}

type SubmitResult struct {
	UserMessage *models.Message
	AIMessage   *models.Message
	Job         *models.ImageProcessingJob
}

type ProcessingService struct {
	store     store.Store
	processor ImageProcessor
	executor  *worker.Executor
	publisher events.Publisher
	configs   *ModelConfigService
	log       *logger.Logger
	now       func() time.Time
}

func NewProcessingService(
	st store.Store,
	processor ImageProcessor,
	executor *worker.Executor,
	publisher events.Publisher,
	configs *ModelConfigService,
	log *logger.Logger,
) *ProcessingService {
	return &ProcessingService{
		store:     st,
		processor: processor,
		executor:  executor,
		publisher: publisher,
		configs:   configs,
		log:       log.With("component", "ProcessingService"),
		now:       time.Now,
	}
}

// Submit records the user message, the assistant placeholder and the job,
// hands the provider call to the executor and returns without waiting for it.
func (s *ProcessingService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	conversationID := strings.TrimSpace(req.ConversationID)
	imageURL := strings.TrimSpace(req.ImageURL)
	prompt := strings.TrimSpace(req.Prompt)

	switch {
	case conversationID == "":
		return nil, apperr.Validation("conversationId", "conversationId is required")
	case imageURL == "":
		return nil, apperr.Validation("imageUrl", "imageUrl is required")
	case prompt == "":
		return nil, apperr.Validation("prompt", "prompt is required")
	}

	convID, err := uuid.Parse(conversationID)
	if err != nil {
		return nil, apperr.NotFound("conversation", conversationID)
	}

	cfg, err := s.configs.Effective(ctx)
	if err != nil {
		return nil, err
	}

	userMsg := &models.Message{
		ConversationID:   convID,
		Role:             models.RoleUser,
		Content:          prompt,
		ImageURL:         &imageURL,
		ProcessingStatus: models.StatusCompleted,
	}
	aiMsg := &models.Message{
		ConversationID:   convID,
		Role:             models.RoleAssistant,
		Content:          models.ProcessingPlaceholder,
		ProcessingStatus: models.StatusProcessing,
	}
	job := &models.ImageProcessingJob{
		OriginalImageURL: imageURL,
		Prompt:           prompt,
		Model:            cfg.Model,
		Status:           models.JobProcessing,
	}

	if err := s.store.CreateSubmission(ctx, userMsg, aiMsg, job); err != nil {
		return nil, err
	}

	log := s.log.With("job_id", job.ID, "message_id", job.MessageID)
	log.Info("Processing job submitted", "model", job.Model, "conversation_id", convID)

	snapshot := *job
	err = s.executor.Submit(worker.Task{
		Name: "process-image:" + job.ID.String(),
		Run: func(ctx context.Context) error {
			return s.complete(ctx, snapshot, cfg)
		},
		Recover: func(ctx context.Context, err error) {
			s.fail(ctx, snapshot, err)
		},
	})
	if err != nil {
		// the executor is draining; record the failure instead of leaving the row stuck
		log.Warn("Could not schedule processing job", "error", err)
		writeCtx := context.WithoutCancel(ctx)
		s.fail(writeCtx, snapshot, err)

		// respond with the rows as stored, not the placeholders
		if stored, err := s.store.GetJobByMessageID(writeCtx, aiMsg.ID); err == nil {
			job = stored
		}
		if stored, err := s.store.GetMessage(writeCtx, aiMsg.ID); err == nil {
			aiMsg = stored
		}
	}

	return &SubmitResult{UserMessage: userMsg, AIMessage: aiMsg, Job: job}, nil
}

func (s *ProcessingService) complete(ctx context.Context, job models.ImageProcessingJob, cfg models.ModelConfig) error {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = models.DefaultTimeout * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := s.processor.Process(callCtx, openrouter.Request{
		ImageURL: job.OriginalImageURL,
		Prompt:   job.Prompt,
		Model:    job.Model,
		APIKey:   cfg.APIKey,
	})

	// row updates must land even if shutdown cancelled the provider call
	writeCtx := context.WithoutCancel(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("processing timed out after %s: %w", timeout, err)
		}
		s.fail(writeCtx, job, err)
		return err
	}

	completedAt := s.now()
	ok, err := s.store.CompleteJob(writeCtx, models.JobCompletion{
		JobID:               job.ID,
		MessageID:           job.MessageID,
		ProcessedImageURL:   result.ProcessedImageURL,
		ProcessingTime:      result.ProcessingTime,
		EnhancementsApplied: result.EnhancementsApplied,
		MessageContent:      Summary(result.EnhancementsApplied),
		CompletedAt:         completedAt,
	})
	if err != nil {
		s.log.Error("Failed to record completed job", "job_id", job.ID, "error", err)
		return err
	}
	if !ok {
		s.log.Warn("Job already terminal, completion ignored", "job_id", job.ID)
		return nil
	}

	s.log.Info("Processing job completed",
		"job_id", job.ID,
		"processed_image_url", result.ProcessedImageURL,
		"processing_time", result.ProcessingTime,
	)
	s.publish(writeCtx, events.JobEvent{
		JobID:             job.ID,
		MessageID:         job.MessageID,
		Status:            models.JobCompleted,
		ProcessedImageURL: result.ProcessedImageURL,
		OccurredAt:        completedAt,
	})
	return nil
}

// fail reports whether this call moved the job to error.
func (s *ProcessingService) fail(ctx context.Context, job models.ImageProcessingJob, cause error) bool {
	errMsg := cause.Error()
	completedAt := s.now()

	ok, err := s.store.FailJob(ctx, models.JobFailure{
		JobID:          job.ID,
		MessageID:      job.MessageID,
		ErrorMessage:   errMsg,
		MessageContent: FailureContent(errMsg),
		CompletedAt:    completedAt,
	})
	if err != nil {
		s.log.Error("Failed to record failed job", "job_id", job.ID, "cause", errMsg, "error", err)
		return false
	}
	if !ok {
		s.log.Warn("Job already terminal, failure ignored", "job_id", job.ID, "cause", errMsg)
		return false
	}

	s.log.Warn("Processing job failed", "job_id", job.ID, "error", errMsg)
	s.publish(ctx, events.JobEvent{
		JobID:        job.ID,
		MessageID:    job.MessageID,
		Status:       models.JobError,
		ErrorMessage: errMsg,
		OccurredAt:   completedAt,
	})
	return true
}

func (s *ProcessingService) publish(ctx context.Context, event events.JobEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("Failed to publish job event", "job_id", event.JobID, "error", err)
	}
}

// ReconcileStale fails every non-terminal job created before now-olderThan.
// It runs at startup, when no task from a previous process can still finish.
func (s *ProcessingService) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	jobs, err := s.store.ListStaleJobs(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, job := range jobs {
		if s.fail(ctx, job, errors.New(InterruptedMessage)) {
			failed++
		}
	}
	if failed > 0 {
		s.log.Info("Reconciled stale processing jobs", "count", failed)
	}
	return failed, nil
}

// Job returns the job attached to an assistant message.
func (s *ProcessingService) Job(ctx context.Context, messageID uuid.UUID) (*models.ImageProcessingJob, error) {
	return s.store.GetJobByMessageID(ctx, messageID)
}

// Summary renders the enhancements as the assistant message content.
func Summary(enhancements []string) string {
	if len(enhancements) == 0 {
		return "Your image has been processed."
	}
	var b strings.Builder
	b.WriteString("I've processed your image. Here's what changed:\n")
	for _, e := range enhancements {
		b.WriteString("\n• ")
		b.WriteString(e)
	}
	return b.String()
}

// FailureContent is the assistant message shown when processing fails.
func FailureContent(errMsg string) string {
	return "Sorry, I couldn't process your image: " + errMsg
}
