package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"prompt-image-studio/internal/models"
)

func TestHub_DeliversToMatchingSubscriber(t *testing.T) {
	hub := NewHub()
	messageID := uuid.New()

	ch, cancel := hub.Subscribe(messageID)
	defer cancel()
	other, cancelOther := hub.Subscribe(uuid.New())
	defer cancelOther()

	event := JobEvent{JobID: uuid.New(), MessageID: messageID, Status: models.JobCompleted}
	require.NoError(t, hub.Publish(context.Background(), event))

	got := <-ch
	assert.Equal(t, event, got)
	select {
	case <-other:
		t.Fatal("unrelated subscriber received event")
	default:
	}
}

func TestHub_CancelClosesAndUnsubscribes(t *testing.T) {
	hub := NewHub()
	messageID := uuid.New()

	ch, cancel := hub.Subscribe(messageID)
	_, cancelOther := hub.Subscribe(uuid.New())
	defer cancelOther()
	assert.Equal(t, 2, hub.Subscribers())

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers())

	// publishing after cancel must not panic on the closed channel
	assert.NotPanics(t, func() {
		hub.Deliver(JobEvent{MessageID: messageID, Status: models.JobError})
	})
}

func TestHub_PublishDoesNotBlockOnFullBuffer(t *testing.T) {
	hub := NewHub()
	messageID := uuid.New()
	_, cancel := hub.Subscribe(messageID)
	defer cancel()

	for i := 0; i < 5; i++ {
		hub.Deliver(JobEvent{MessageID: messageID})
	}
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, JobEvent) error { return f.err }

func TestMulti_JoinsErrors(t *testing.T) {
	hub := NewHub()
	messageID := uuid.New()
	ch, cancel := hub.Subscribe(messageID)
	defer cancel()

	boom := errors.New("boom")
	multi := Multi{failingPublisher{err: boom}, nil, hub}
	err := multi.Publish(context.Background(), JobEvent{MessageID: messageID})

	assert.ErrorIs(t, err, boom)
	// later publishers still run after an earlier one fails
	_, ok := <-ch
	assert.True(t, ok)
}
