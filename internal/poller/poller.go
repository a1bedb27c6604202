// Package poller watches a processing job until it reaches a terminal state.
package poller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"prompt-image-studio/internal/logger"
	"prompt-image-studio/internal/models"
)

const (
	DefaultMaxConsecutiveFailures = 3
	DefaultMaxAttempts            = 300
)

// JobFetcher is satisfied by *apiclient.Client.
type JobFetcher interface {
	GetJob(ctx context.Context, messageID uuid.UUID) (*models.ImageProcessingJob, error)
}

// Schedule returns the wait before the given 1-based attempt.
type Schedule func(attempt int) time.Duration

// DefaultSchedule polls every second for three attempts, every two seconds up
// to attempt ten and every four seconds after that.
func DefaultSchedule(attempt int) time.Duration {
	switch {
	case attempt <= 3:
		return time.Second
	case attempt <= 10:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}

type State struct {
	Attempt             int
	NextDelay           time.Duration
	ConsecutiveFailures int
	Terminal            bool
}

type Outcome struct {
	// Job is the last successfully fetched record, nil if none was.
	Job    *models.ImageProcessingJob
	State  State
	GaveUp bool
}

type Poller struct {
	Fetcher                JobFetcher
	Schedule               Schedule
	MaxConsecutiveFailures int
	MaxAttempts            int
	// OnTerminal runs once, after the job reaches completed or error.
	OnTerminal func(job *models.ImageProcessingJob)
	// OnAttempt, if set, observes the state after every fetch.
	OnAttempt func(state State)

	log *logger.Logger
}

func New(fetcher JobFetcher, log *logger.Logger) *Poller {
	return &Poller{
		Fetcher:                fetcher,
		Schedule:               DefaultSchedule,
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
		MaxAttempts:            DefaultMaxAttempts,
		log:                    log.With("component", "Poller"),
	}
}

// Run polls until the job is terminal, the failure or attempt cap is hit, or
// ctx is done. Giving up is reported through Outcome.GaveUp with a nil error;
// only cancellation returns an error.
func (p *Poller) Run(ctx context.Context, messageID uuid.UUID) (Outcome, error) {
	schedule := p.Schedule
	if schedule == nil {
		schedule = DefaultSchedule
	}
	maxFailures := p.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = DefaultMaxConsecutiveFailures
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var out Outcome
	out.State.NextDelay = schedule(1)

	timer := time.NewTimer(out.State.NextDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-timer.C:
		}

		out.State.Attempt++
		job, err := p.Fetcher.GetJob(ctx, messageID)
		switch {
		case err != nil && ctx.Err() != nil:
			return out, ctx.Err()
		case err != nil:
			out.State.ConsecutiveFailures++
			p.log.Debug("Job poll failed",
				"message_id", messageID,
				"attempt", out.State.Attempt,
				"consecutive_failures", out.State.ConsecutiveFailures,
				"error", err,
			)
		default:
			out.State.ConsecutiveFailures = 0
			out.Job = job
			out.State.Terminal = job.Status.IsTerminal()
		}

		if out.State.Terminal {
			out.State.NextDelay = 0
			p.notify(out.State)
			if p.OnTerminal != nil {
				p.OnTerminal(out.Job)
			}
			return out, nil
		}

		if out.State.ConsecutiveFailures > maxFailures || out.State.Attempt >= maxAttempts {
			out.State.NextDelay = 0
			out.GaveUp = true
			p.notify(out.State)
			p.log.Warn("Stopped polling job",
				"message_id", messageID,
				"attempts", out.State.Attempt,
				"consecutive_failures", out.State.ConsecutiveFailures,
			)
			return out, nil
		}

		out.State.NextDelay = schedule(out.State.Attempt + 1)
		p.notify(out.State)
		timer.Reset(out.State.NextDelay)
	}
}

func (p *Poller) notify(state State) {
	if p.OnAttempt != nil {
		p.OnAttempt(state)
	}
}
