// Package events carries terminal job notifications from the background task
// to whoever is watching: SSE clients in this process, other replicas over
// Redis, and browsers through Supabase Realtime.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"prompt-image-studio/internal/models"
)

type JobEvent struct {
	JobID             uuid.UUID        `json:"jobId"`
	MessageID         uuid.UUID        `json:"messageId"`
	Status            models.JobStatus `json:"status"`
	ProcessedImageURL string           `json:"processedImageUrl,omitempty"`
	ErrorMessage      string           `json:"errorMessage,omitempty"`
	OccurredAt        time.Time        `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event JobEvent) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event JobEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
