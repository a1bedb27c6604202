package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
	"prompt-image-studio/internal/events"
)

// RealtimeClient publishes job events by inserting rows into a table that
// Supabase Realtime broadcasts to subscribed browsers. The Go client has no
// direct broadcast API, so the database insert is the publish.
type RealtimeClient struct {
	client *supabase.Client
	table  string
}

var _ events.Publisher = (*RealtimeClient)(nil)

func NewRealtimeClient(client *supabase.Client, table string) *RealtimeClient {
	return &RealtimeClient{
		client: client,
		table:  table,
	}
}

func (r *RealtimeClient) Publish(_ context.Context, event events.JobEvent) error {
	if _, _, err := r.client.From(r.table).Insert(JobEventRow(event), false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to publish realtime event: %w", err)
	}
	return nil
}

// JobEventRow is the row shape of the processing_job_events table.
func JobEventRow(event events.JobEvent) map[string]interface{} {
	row := map[string]interface{}{
		"job_id":     event.JobID.String(),
		"message_id": event.MessageID.String(),
		"status":     string(event.Status),
	}
	if event.ProcessedImageURL != "" {
		row["processed_image_url"] = event.ProcessedImageURL
	}
	if event.ErrorMessage != "" {
		row["error_message"] = event.ErrorMessage
	}
	if !event.OccurredAt.IsZero() {
		row["created_at"] = event.OccurredAt
	}
	return row
}
