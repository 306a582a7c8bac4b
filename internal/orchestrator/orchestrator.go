// Package orchestrator drives a submitted generation job from creation to a
// terminal outcome. Each job runs as one fire-and-forget task; the caller that
// created the job observes progress only through the persisted record.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/pricing"
	"server/internal/providers"
)

const (
	defaultPollInterval    = 5 * time.Second
	defaultMaxPollAttempts = 60

	defaultWidth  = 1280
	defaultHeight = 720
)

// Store is the persistence surface the orchestrator needs. Updates are
// treated as must-succeed; a failure terminates the job, never the process.
type Store interface {
	Update(ctx context.Context, gen *domain.Generation) error
}

// Downloader streams a completed artifact to durable storage and returns the
// stored location.
type Downloader interface {
	Download(ctx context.Context, url, filename string, headers map[string]string) (string, error)
}

// Options tunes the polling loop. Zero values select the defaults (60
// attempts at 5 second intervals). The timeout is an attempt-count bound, not
// a wall-clock deadline: a slow status call stretches total wall time.
type Options struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	PublicBaseURL   string
}

// Orchestrator owns the per-job lifecycle: submit, poll to a terminal state,
// fetch the artifact, and price the result. Shared collaborators (pricing,
// downloader) are read-only; the persisted record is written only by the
// owning task.
type Orchestrator struct {
	ctx        context.Context
	store      Store
	downloader Downloader
	pricing    *pricing.Calculator
	logger     infra.Logger
	opts       Options
	wg         sync.WaitGroup
}

// New constructs an orchestrator. ctx bounds the lifetime of every job task
// spawned from it.
func New(ctx context.Context, store Store, downloader Downloader, calc *pricing.Calculator, logger infra.Logger, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = defaultMaxPollAttempts
	}
	return &Orchestrator{
		ctx:        ctx,
		store:      store,
		downloader: downloader,
		pricing:    calc,
		logger:     logger,
		opts:       opts,
	}
}

// SubmitAndTrack hands a queued generation to its provider and returns
// immediately. The job's outcome is observable only through the store.
func (o *Orchestrator) SubmitAndTrack(gen *domain.Generation, provider providers.Provider, apiKey string, req providers.Request) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(gen, provider, apiKey, req)
	}()
}

// Wait blocks until every spawned job task has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(gen *domain.Generation, provider providers.Provider, apiKey string, req providers.Request) {
	// Each job is its own failure domain: a panic here must not crash the
	// process or leak into sibling jobs.
	defer func() {
		if r := recover(); r != nil {
			o.fail(gen, fmt.Sprintf("internal error: %v", r))
		}
	}()

	started := time.Now()
	log := o.logger.With().Str("job_id", gen.ID).Str("provider", gen.Provider).Str("model", gen.Model).Logger()

	gen.Status = domain.GenerationStatusProcessing
	if err := o.persist(gen); err != nil {
		o.fail(gen, fmt.Sprintf("persist state: %v", err))
		return
	}

	outcome := provider.GenerateVideo(o.ctx, req)
	if outcome.Status == providers.StatusFailed {
		log.Warn().Str("error", outcome.Error).Msg("orchestrator: submission failed")
		o.fail(gen, outcome.Error)
		return
	}
	if outcome.JobID == "" {
		o.fail(gen, "provider returned empty job id")
		return
	}

	// Set once, immediately after successful submission, never overwritten.
	gen.ProviderJobID = outcome.JobID
	if err := o.persist(gen); err != nil {
		o.fail(gen, fmt.Sprintf("persist state: %v", err))
		return
	}
	log.Info().Str("provider_job_id", outcome.JobID).Msg("orchestrator: submitted")

	for attempt := 0; attempt < o.opts.MaxPollAttempts; attempt++ {
		select {
		case <-time.After(o.opts.PollInterval):
		case <-o.ctx.Done():
			o.fail(gen, fmt.Sprintf("polling aborted: %v", o.ctx.Err()))
			return
		}

		status := provider.CheckStatus(o.ctx, gen.ProviderJobID)
		switch status.Status {
		case providers.StatusCompleted:
			o.complete(gen, provider, apiKey, req, status, started)
			return
		case providers.StatusFailed:
			log.Warn().Str("error", status.Error).Msg("orchestrator: generation failed")
			o.fail(gen, status.Error)
			return
		default:
			// Still processing; no terminal change to persist.
		}
	}

	log.Warn().Int("attempts", o.opts.MaxPollAttempts).Msg("orchestrator: attempt budget exhausted")
	o.fail(gen, "generation timeout")
}

func (o *Orchestrator) complete(gen *domain.Generation, provider providers.Provider, apiKey string, req providers.Request, status providers.Outcome, started time.Time) {
	if status.VideoURL != "" {
		// OpenAI serves artifact content behind the same bearer credential
		// used for submission.
		var headers map[string]string
		if provider.Name() == "openai" {
			headers = map[string]string{"Authorization": "Bearer " + apiKey}
		}
		location, err := o.downloader.Download(o.ctx, status.VideoURL, gen.ID+".mp4", headers)
		if err != nil {
			o.fail(gen, fmt.Sprintf("download artifact: %v", err))
			return
		}
		gen.VideoPath = location
		gen.VideoURL = o.opts.PublicBaseURL + location
	}

	width, height, duration := resolveResult(status.Metadata, req)
	gen.Width = width
	gen.Height = height
	gen.DurationSeconds = duration
	gen.Cost = o.pricing.Cost(gen.Provider, gen.Model, duration, fmt.Sprintf("%dx%d", width, height))

	now := time.Now().UTC()
	gen.CompletedAt = &now
	gen.GenerationTime = now.Sub(started).Seconds()
	gen.Status = domain.GenerationStatusCompleted
	gen.ErrorMessage = ""
	if err := o.persist(gen); err != nil {
		o.logger.Error().Err(err).Str("job_id", gen.ID).Msg("orchestrator: persist completed state failed")
		// The record must not be left non-terminal. Best effort: record the
		// storage failure as a FAILED state instead.
		gen.Status = domain.GenerationStatusFailed
		gen.ErrorMessage = fmt.Sprintf("persist completed state: %v", err)
		gen.CompletedAt = nil
		if err := o.persist(gen); err != nil {
			o.logger.Error().Err(err).Str("job_id", gen.ID).Msg("orchestrator: persist failed state failed")
		}
		return
	}
	o.logger.Info().
		Str("job_id", gen.ID).
		Str("provider", gen.Provider).
		Float64("cost", gen.Cost).
		Float64("generation_time", gen.GenerationTime).
		Msg("orchestrator: completed")
}

// fail moves the generation to FAILED unless it is already terminal.
func (o *Orchestrator) fail(gen *domain.Generation, message string) {
	if gen.Status.IsTerminal() {
		return
	}
	gen.Status = domain.GenerationStatusFailed
	gen.ErrorMessage = message
	if err := o.persist(gen); err != nil {
		o.logger.Error().Err(err).Str("job_id", gen.ID).Msg("orchestrator: persist failed state failed")
	}
}

func (o *Orchestrator) persist(gen *domain.Generation) error {
	gen.UpdatedAt = time.Now().UTC()
	return o.store.Update(o.ctx, gen)
}

// resolveResult derives the artifact's dimensions and measured duration from
// provider metadata, falling back to the requested duration and the default
// resolution. Malformed metadata never aborts the job.
func resolveResult(meta map[string]any, req providers.Request) (width, height int, duration float64) {
	width, height = defaultWidth, defaultHeight
	duration = float64(req.DurationSeconds)

	if meta == nil {
		return width, height, duration
	}
	if w, ok := numberField(meta, "width"); ok {
		if h, ok := numberField(meta, "height"); ok && w > 0 && h > 0 {
			width, height = int(w), int(h)
		}
	} else if size, ok := meta["size"].(string); ok {
		if w, h, ok := pricing.ParseResolution(size); ok {
			width, height = w, h
		}
	}
	if d, ok := numberField(meta, "duration"); ok && d > 0 {
		duration = d
	} else if s, ok := meta["seconds"].(string); ok {
		var parsed float64
		if _, err := fmt.Sscanf(s, "%f", &parsed); err == nil && parsed > 0 {
			duration = parsed
		}
	}
	return width, height, duration
}

func numberField(meta map[string]any, key string) (float64, bool) {
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
