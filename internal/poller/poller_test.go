package poller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/logger"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/poller"
)

// scriptedFetcher replays responses in order and repeats the last one.
type scriptedFetcher struct {
	mu        sync.Mutex
	calls     int
	responses []response
}

type response struct {
	status models.JobStatus
	err    error
}

func (f *scriptedFetcher) GetJob(_ context.Context, messageID uuid.UUID) (*models.ImageProcessingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.responses[min(f.calls, len(f.responses)-1)]
	f.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &models.ImageProcessingJob{MessageID: messageID, Status: r.status}, nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastPoller(f poller.JobFetcher) *poller.Poller {
	p := poller.New(f, logger.Nop())
	p.Schedule = func(int) time.Duration { return time.Millisecond }
	return p
}

func TestDefaultSchedule(t *testing.T) {
	assert.Equal(t, time.Second, poller.DefaultSchedule(1))
	assert.Equal(t, time.Second, poller.DefaultSchedule(3))
	assert.Equal(t, 2*time.Second, poller.DefaultSchedule(4))
	assert.Equal(t, 2*time.Second, poller.DefaultSchedule(10))
	assert.Equal(t, 4*time.Second, poller.DefaultSchedule(11))
	assert.Equal(t, 4*time.Second, poller.DefaultSchedule(200))
}

func TestRun_StopsOnTerminalAndNotifiesOnce(t *testing.T) {
	f := &scriptedFetcher{responses: []response{
		{status: models.JobProcessing},
		{status: models.JobProcessing},
		{status: models.JobCompleted},
	}}
	p := fastPoller(f)
	var terminal []*models.ImageProcessingJob
	p.OnTerminal = func(job *models.ImageProcessingJob) { terminal = append(terminal, job) }

	out, err := p.Run(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.False(t, out.GaveUp)
	assert.True(t, out.State.Terminal)
	assert.Equal(t, 3, out.State.Attempt)
	assert.Equal(t, 3, f.Calls())
	require.Len(t, terminal, 1)
	assert.Equal(t, models.JobCompleted, terminal[0].Status)
}

func TestRun_ErrorStatusIsTerminal(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{status: models.JobError}}}

	out, err := fastPoller(f).Run(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.True(t, out.State.Terminal)
	assert.Equal(t, models.JobError, out.Job.Status)
}

func TestRun_ToleratesTransientFailures(t *testing.T) {
	boom := errors.New("connection reset")
	f := &scriptedFetcher{responses: []response{
		{err: boom},
		{err: apperr.NotFound("processing job for message", "x")},
		{err: boom},
		{status: models.JobProcessing},
		{err: boom},
		{status: models.JobCompleted},
	}}
	p := fastPoller(f)
	var states []poller.State
	p.OnAttempt = func(s poller.State) { states = append(states, s) }

	out, err := p.Run(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.False(t, out.GaveUp)
	assert.True(t, out.State.Terminal)
	assert.Equal(t, 0, out.State.ConsecutiveFailures)
	require.Len(t, states, 6)
	assert.Equal(t, 3, states[2].ConsecutiveFailures)
	assert.Equal(t, 0, states[3].ConsecutiveFailures)
}

func TestRun_GivesUpSilentlyAfterConsecutiveFailures(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{err: errors.New("down")}}}
	p := fastPoller(f)
	called := false
	p.OnTerminal = func(*models.ImageProcessingJob) { called = true }

	out, err := p.Run(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.True(t, out.GaveUp)
	assert.False(t, called)
	assert.Equal(t, poller.DefaultMaxConsecutiveFailures+1, f.Calls())
	assert.Nil(t, out.Job)
}

func TestRun_AttemptCap(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{status: models.JobProcessing}}}
	p := fastPoller(f)
	p.MaxAttempts = 5

	out, err := p.Run(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.True(t, out.GaveUp)
	assert.Equal(t, 5, f.Calls())
	assert.Equal(t, models.JobProcessing, out.Job.Status)
}

func TestRun_Cancellation(t *testing.T) {
	f := &scriptedFetcher{responses: []response{{status: models.JobProcessing}}}
	p := poller.New(f, logger.Nop())
	p.Schedule = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, uuid.New())
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, 0, f.Calls())
}
