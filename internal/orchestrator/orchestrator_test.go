package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/pricing"
	"server/internal/providers"
)

type fakeProvider struct {
	name          string
	submission    providers.Outcome
	statuses      []providers.Outcome
	statusCalls   int
	submitCalls   int
	lastSubmitted providers.Request
}

func (f *fakeProvider) Name() string                         { return f.name }
func (f *fakeProvider) Models() []string                     { return []string{"fake-1"} }
func (f *fakeProvider) ValidateKey(ctx context.Context) bool { return true }

func (f *fakeProvider) SupportedFeatures() providers.Capabilities {
	return providers.Capabilities{MaxDuration: 10, AspectRatios: []string{"16:9"}}
}

func (f *fakeProvider) GenerateVideo(ctx context.Context, req providers.Request) providers.Outcome {
	f.submitCalls++
	f.lastSubmitted = req
	return f.submission
}

func (f *fakeProvider) CheckStatus(ctx context.Context, remoteJobID string) providers.Outcome {
	f.statusCalls++
	if f.statusCalls <= len(f.statuses) {
		return f.statuses[f.statusCalls-1]
	}
	return providers.Outcome{JobID: remoteJobID, Status: providers.StatusProcessing}
}

type recordingStore struct {
	mu       sync.Mutex
	statuses []domain.GenerationStatus
	failOn   int // 1-based update index to fail at; 0 disables
	updates  int
}

func (s *recordingStore) Update(ctx context.Context, gen *domain.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.failOn > 0 && s.updates == s.failOn {
		return errors.New("connection reset")
	}
	s.statuses = append(s.statuses, gen.Status)
	return nil
}

type stubDownloader struct {
	location string
	err      error
	calls    int
	lastURL  string
	headers  map[string]string
}

func (d *stubDownloader) Download(ctx context.Context, url, filename string, headers map[string]string) (string, error) {
	d.calls++
	d.lastURL = url
	d.headers = headers
	if d.err != nil {
		return "", d.err
	}
	return d.location, nil
}

func testLogger() infra.Logger {
	return infra.Logger(zerolog.New(io.Discard))
}

func newTestOrchestrator(store Store, dl Downloader, opts Options) *Orchestrator {
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	return New(context.Background(), store, dl, pricing.NewCalculator(), testLogger(), opts)
}

func queuedGeneration() *domain.Generation {
	return &domain.Generation{
		ID:       "gen_abc123def456",
		Provider: "openai",
		Model:    "sora-2",
		Prompt:   "a fox at dawn",
		Status:   domain.GenerationStatusQueued,
		Params:   domain.GenerationParams{DurationSeconds: 5, AspectRatio: "16:9"},
	}
}

func TestFailedSubmissionSkipsPolling(t *testing.T) {
	store := &recordingStore{}
	provider := &fakeProvider{
		name:       "openai",
		submission: providers.Outcome{Status: providers.StatusFailed, Error: "HTTP 401: Incorrect API key provided"},
	}
	o := newTestOrchestrator(store, &stubDownloader{}, Options{MaxPollAttempts: 5})
	gen := queuedGeneration()

	o.SubmitAndTrack(gen, provider, "sk-test", providers.Request{Prompt: gen.Prompt})
	o.Wait()

	if gen.Status != domain.GenerationStatusFailed {
		t.Fatalf("status %q, want failed", gen.Status)
	}
	if gen.ErrorMessage != "HTTP 401: Incorrect API key provided" {
		t.Fatalf("error message %q", gen.ErrorMessage)
	}
	if provider.statusCalls != 0 {
		t.Fatalf("polling happened after failed submission: %d calls", provider.statusCalls)
	}
	if gen.ProviderJobID != "" {
		t.Fatalf("provider job id set on failed submission: %q", gen.ProviderJobID)
	}
}

func TestCompletesAfterNChecks(t *testing.T) {
	store := &recordingStore{}
	dl := &stubDownloader{location: "/videos/gen_abc123def456.mp4"}
	provider := &fakeProvider{
		name:       "openai",
		submission: providers.Outcome{JobID: "video_123", Status: providers.StatusProcessing},
		statuses: []providers.Outcome{
			{JobID: "video_123", Status: providers.StatusProcessing},
			{JobID: "video_123", Status: providers.StatusProcessing},
			{
				JobID:    "video_123",
				Status:   providers.StatusCompleted,
				VideoURL: "https://api.openai.test/v1/videos/video_123/content",
				Metadata: map[string]any{"size": "1280x720", "seconds": "5"},
			},
		},
	}
	o := newTestOrchestrator(store, dl, Options{MaxPollAttempts: 10, PublicBaseURL: "http://localhost:3001"})
	gen := queuedGeneration()

	o.SubmitAndTrack(gen, provider, "sk-test", providers.Request{Prompt: gen.Prompt, DurationSeconds: 5})
	o.Wait()

	if gen.Status != domain.GenerationStatusCompleted {
		t.Fatalf("status %q (error %q), want completed", gen.Status, gen.ErrorMessage)
	}
	if provider.statusCalls != 3 {
		t.Fatalf("polled %d times, want 3", provider.statusCalls)
	}
	if gen.ProviderJobID != "video_123" {
		t.Fatalf("provider job id %q", gen.ProviderJobID)
	}
	if gen.VideoPath != "/videos/gen_abc123def456.mp4" {
		t.Fatalf("video path %q", gen.VideoPath)
	}
	if gen.VideoURL != "http://localhost:3001/videos/gen_abc123def456.mp4" {
		t.Fatalf("video url %q", gen.VideoURL)
	}
	if gen.Width != 1280 || gen.Height != 720 {
		t.Fatalf("dimensions %dx%d", gen.Width, gen.Height)
	}
	if gen.DurationSeconds != 5 {
		t.Fatalf("measured duration %v", gen.DurationSeconds)
	}
	if gen.Cost != 0.5 {
		t.Fatalf("cost %v, want 0.5", gen.Cost)
	}
	if gen.CompletedAt == nil {
		t.Fatal("completed timestamp not set")
	}
	if dl.headers["Authorization"] != "Bearer sk-test" {
		t.Fatalf("openai download missing bearer header: %v", dl.headers)
	}
}

func TestNonOpenAIDownloadOmitsAuthHeader(t *testing.T) {
	store := &recordingStore{}
	dl := &stubDownloader{location: "/videos/gen_abc123def456.mp4"}
	provider := &fakeProvider{
		name:       "kling",
		submission: providers.Outcome{JobID: "task_7", Status: providers.StatusProcessing},
		statuses: []providers.Outcome{
			{JobID: "task_7", Status: providers.StatusCompleted, VideoURL: "https://cdn.kling.test/task_7.mp4"},
		},
	}
	o := newTestOrchestrator(store, dl, Options{MaxPollAttempts: 3})
	gen := queuedGeneration()
	gen.Provider = "kling"
	gen.Model = "kling-1.5"

	o.SubmitAndTrack(gen, provider, "kl-secret", providers.Request{Prompt: gen.Prompt, DurationSeconds: 5})
	o.Wait()

	if gen.Status != domain.GenerationStatusCompleted {
		t.Fatalf("status %q (error %q)", gen.Status, gen.ErrorMessage)
	}
	if dl.headers != nil {
		t.Fatalf("unexpected download headers for kling: %v", dl.headers)
	}
}

func TestAttemptBudgetExhaustedTimesOut(t *testing.T) {
	store := &recordingStore{}
	provider := &fakeProvider{
		name:       "runway",
		submission: providers.Outcome{JobID: "run_9", Status: providers.StatusProcessing},
	}
	o := newTestOrchestrator(store, &stubDownloader{}, Options{MaxPollAttempts: 4})
	gen := queuedGeneration()
	gen.Provider = "runway"

	o.SubmitAndTrack(gen, provider, "rw-test", providers.Request{Prompt: gen.Prompt})
	o.Wait()

	if gen.Status != domain.GenerationStatusFailed {
		t.Fatalf("status %q, want failed", gen.Status)
	}
	if gen.ErrorMessage != "generation timeout" {
		t.Fatalf("error message %q, want generation timeout", gen.ErrorMessage)
	}
	if provider.statusCalls != 4 {
		t.Fatalf("polled %d times, want exactly the attempt budget", provider.statusCalls)
	}
}

func TestRemoteFailureDuringPolling(t *testing.T) {
	store := &recordingStore{}
	provider := &fakeProvider{
		name:       "runway",
		submission: providers.Outcome{JobID: "run_9", Status: providers.StatusProcessing},
		statuses: []providers.Outcome{
			{JobID: "run_9", Status: providers.StatusProcessing},
			{JobID: "run_9", Status: providers.StatusFailed, Error: "content policy violation"},
		},
	}
	o := newTestOrchestrator(store, &stubDownloader{}, Options{MaxPollAttempts: 10})
	gen := queuedGeneration()
	gen.Provider = "runway"

	o.SubmitAndTrack(gen, provider, "rw-test", providers.Request{Prompt: gen.Prompt})
	o.Wait()

	if gen.Status != domain.GenerationStatusFailed {
		t.Fatalf("status %q, want failed", gen.Status)
	}
	if gen.ErrorMessage != "content policy violation" {
		t.Fatalf("error message %q", gen.ErrorMessage)
	}
	if provider.statusCalls != 2 {
		t.Fatalf("polled %d times, want 2", provider.statusCalls)
	}
}

func TestStorageFailureTerminatesJobWithoutPanic(t *testing.T) {
	// First update (queued->processing) fails; the job must settle as failed
	// in memory without crashing the task.
	store := &recordingStore{failOn: 1}
	provider := &fakeProvider{
		name:       "openai",
		submission: providers.Outcome{JobID: "video_123", Status: providers.StatusProcessing},
	}
	o := newTestOrchestrator(store, &stubDownloader{}, Options{MaxPollAttempts: 3})
	gen := queuedGeneration()

	o.SubmitAndTrack(gen, provider, "sk-test", providers.Request{Prompt: gen.Prompt})
	o.Wait()

	if gen.Status != domain.GenerationStatusFailed {
		t.Fatalf("status %q, want failed", gen.Status)
	}
	if provider.submitCalls != 0 {
		t.Fatal("submission happened despite failed state persist")
	}
}

func TestStorageFailureOnCompletedWriteFallsBackToFailed(t *testing.T) {
	// Update 1 persists PROCESSING, 2 the provider job id, 3 the COMPLETED
	// result. Failing the third write must still leave a terminal record.
	store := &recordingStore{failOn: 3}
	dl := &stubDownloader{location: "/videos/gen_abc123def456.mp4"}
	provider := &fakeProvider{
		name:       "openai",
		submission: providers.Outcome{JobID: "video_9", Status: providers.StatusProcessing},
		statuses: []providers.Outcome{
			{JobID: "video_9", Status: providers.StatusCompleted, VideoURL: "https://api.openai.test/v1/videos/video_9/content"},
		},
	}
	o := newTestOrchestrator(store, dl, Options{MaxPollAttempts: 3})
	gen := queuedGeneration()

	o.SubmitAndTrack(gen, provider, "sk-test", providers.Request{Prompt: gen.Prompt, DurationSeconds: 5})
	o.Wait()

	if gen.Status != domain.GenerationStatusFailed {
		t.Fatalf("status %q, want failed", gen.Status)
	}
	if !strings.Contains(gen.ErrorMessage, "persist completed state") {
		t.Fatalf("error message %q", gen.ErrorMessage)
	}
	if gen.CompletedAt != nil {
		t.Fatal("completed timestamp set on a failed record")
	}
	last := store.statuses[len(store.statuses)-1]
	if last != domain.GenerationStatusFailed {
		t.Fatalf("last persisted status %q, want failed", last)
	}
}

func TestDownloadFailureFailsJob(t *testing.T) {
	store := &recordingStore{}
	dl := &stubDownloader{err: errors.New("disk full")}
	provider := &fakeProvider{
		name:       "openai",
		submission: providers.Outcome{JobID: "video_123", Status: providers.StatusProcessing},
		statuses: []providers.Outcome{
			{JobID: "video_123", Status: providers.StatusCompleted, VideoURL: "https://api.openai.test/content"},
		},
	}
	o := newTestOrchestrator(store, dl, Options{MaxPollAttempts: 3})
	gen := queuedGeneration()

	o.SubmitAndTrack(gen, provider, "sk-test", providers.Request{Prompt: gen.Prompt})
	o.Wait()

	if gen.Status != domain.GenerationStatusFailed {
		t.Fatalf("status %q, want failed", gen.Status)
	}
	if gen.ErrorMessage != "download artifact: disk full" {
		t.Fatalf("error message %q", gen.ErrorMessage)
	}
}

func TestMetadataDimensionsDriveFinalCost(t *testing.T) {
	store := &recordingStore{}
	dl := &stubDownloader{location: "/videos/gen_abc123def456.mp4"}
	provider := &fakeProvider{
		name:       "openai",
		submission: providers.Outcome{JobID: "video_123", Status: providers.StatusProcessing},
		statuses: []providers.Outcome{
			{
				JobID:    "video_123",
				Status:   providers.StatusCompleted,
				VideoURL: "https://api.openai.test/content",
				Metadata: map[string]any{"width": float64(1920), "height": float64(1080), "duration": float64(10)},
			},
		},
	}
	o := newTestOrchestrator(store, dl, Options{MaxPollAttempts: 3})
	gen := queuedGeneration()

	o.SubmitAndTrack(gen, provider, "sk-test", providers.Request{Prompt: gen.Prompt, DurationSeconds: 5})
	o.Wait()

	if gen.Width != 1920 || gen.Height != 1080 {
		t.Fatalf("dimensions %dx%d, want metadata values", gen.Width, gen.Height)
	}
	if gen.DurationSeconds != 10 {
		t.Fatalf("duration %v, want measured 10", gen.DurationSeconds)
	}
	// 0.10 * 10s, scaled by the clamped 1920x1080 multiplier (2.0).
	if gen.Cost != 2.0 {
		t.Fatalf("cost %v, want 2.0", gen.Cost)
	}
}

func TestMalformedMetadataFallsBack(t *testing.T) {
	store := &recordingStore{}
	dl := &stubDownloader{location: "/videos/gen_abc123def456.mp4"}
	provider := &fakeProvider{
		name:       "openai",
		submission: providers.Outcome{JobID: "video_123", Status: providers.StatusProcessing},
		statuses: []providers.Outcome{
			{
				JobID:    "video_123",
				Status:   providers.StatusCompleted,
				VideoURL: "https://api.openai.test/content",
				Metadata: map[string]any{"size": "not-a-resolution", "seconds": "garbage"},
			},
		},
	}
	o := newTestOrchestrator(store, dl, Options{MaxPollAttempts: 3})
	gen := queuedGeneration()

	o.SubmitAndTrack(gen, provider, "sk-test", providers.Request{Prompt: gen.Prompt, DurationSeconds: 5})
	o.Wait()

	if gen.Status != domain.GenerationStatusCompleted {
		t.Fatalf("malformed metadata aborted the job: %q (%q)", gen.Status, gen.ErrorMessage)
	}
	if gen.Width != 1280 || gen.Height != 720 {
		t.Fatalf("dimensions %dx%d, want default 1280x720", gen.Width, gen.Height)
	}
	if gen.DurationSeconds != 5 {
		t.Fatalf("duration %v, want requested 5", gen.DurationSeconds)
	}
}

func TestTerminalStateNeverTransitionsAgain(t *testing.T) {
	store := &recordingStore{}
	o := newTestOrchestrator(store, &stubDownloader{}, Options{MaxPollAttempts: 1})
	gen := queuedGeneration()
	gen.Status = domain.GenerationStatusCompleted

	o.fail(gen, "late failure")

	if gen.Status != domain.GenerationStatusCompleted {
		t.Fatalf("terminal state overwritten to %q", gen.Status)
	}
	if gen.ErrorMessage != "" {
		t.Fatalf("error message set on terminal job: %q", gen.ErrorMessage)
	}
	if store.updates != 0 {
		t.Fatalf("terminal job persisted %d times", store.updates)
	}
}

func TestConcurrentJobsAreIsolated(t *testing.T) {
	store := &recordingStore{}
	failing := &fakeProvider{
		name:       "runway",
		submission: providers.Outcome{Status: providers.StatusFailed, Error: "HTTP 500: boom"},
	}
	succeeding := &fakeProvider{
		name:       "kling",
		submission: providers.Outcome{JobID: "task_7", Status: providers.StatusProcessing},
		statuses: []providers.Outcome{
			{JobID: "task_7", Status: providers.StatusCompleted, VideoURL: "https://cdn.kling.test/task_7.mp4"},
		},
	}
	o := newTestOrchestrator(store, &stubDownloader{location: "/videos/a.mp4"}, Options{MaxPollAttempts: 3})

	bad := queuedGeneration()
	bad.ID = "gen_bad"
	bad.Provider = "runway"
	good := queuedGeneration()
	good.ID = "gen_good"
	good.Provider = "kling"
	good.Model = "kling-1.5"

	o.SubmitAndTrack(bad, failing, "k", providers.Request{})
	o.SubmitAndTrack(good, succeeding, "k", providers.Request{DurationSeconds: 5})
	o.Wait()

	if bad.Status != domain.GenerationStatusFailed {
		t.Fatalf("bad job status %q", bad.Status)
	}
	if good.Status != domain.GenerationStatusCompleted {
		t.Fatalf("good job status %q (%q)", good.Status, good.ErrorMessage)
	}
}
