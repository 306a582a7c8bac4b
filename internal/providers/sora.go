package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

const soraBaseURL = "https://api.openai.com/v1"

// Sora adapts the OpenAI Videos API (POST /videos, GET /videos/{id}) onto the
// Provider contract. Video content downloads require the same bearer token as
// the submission call; CheckStatus therefore returns the authenticated
// /content URL and the orchestrator re-attaches the credential when fetching it.
type Sora struct {
	client
}

// NewSora constructs the OpenAI Sora adapter.
func NewSora(apiKey string, opts Options) *Sora {
	return &Sora{client: newClient(apiKey, soraBaseURL, opts)}
}

func (s *Sora) Name() string { return "openai" }

func (s *Sora) Models() []string { return []string{"sora-2", "sora-1"} }

// ValidateKey checks the key against the models endpoint.
func (s *Sora) ValidateKey(ctx context.Context) bool {
	return s.probe(ctx, "/models")
}

type soraSubmission struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model"`
	Seconds string `json:"seconds,omitempty"`
	Size    string `json:"size,omitempty"`
}

func (s *Sora) GenerateVideo(ctx context.Context, req Request) Outcome {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = "sora-2"
	}
	payload := soraSubmission{Prompt: req.Prompt, Model: model}
	if req.DurationSeconds > 0 {
		// The Videos API encodes duration as a string of seconds.
		payload.Seconds = strconv.Itoa(req.DurationSeconds)
	}
	if req.AspectRatio != "" {
		payload.Size = soraSize(req.AspectRatio)
	}

	status, raw, err := s.do(ctx, http.MethodPost, "/videos", payload)
	if err != nil {
		return failedOutcome("", err.Error())
	}
	if status >= 300 {
		return failedOutcome("", httpFailure(status, raw, parseSoraError))
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return failedOutcome("", err.Error())
	}
	return Outcome{
		JobID:    stringField(meta, "id"),
		Status:   StatusProcessing,
		Metadata: meta,
	}
}

var soraStatusMap = map[string]Status{
	"queued":     StatusProcessing,
	"processing": StatusProcessing,
	"completed":  StatusCompleted,
	"failed":     StatusFailed,
	"cancelled":  StatusFailed,
}

func (s *Sora) CheckStatus(ctx context.Context, remoteJobID string) Outcome {
	status, raw, err := s.do(ctx, http.MethodGet, "/videos/"+remoteJobID, nil)
	if err != nil {
		return failedOutcome(remoteJobID, err.Error())
	}
	if status >= 300 {
		return failedOutcome(remoteJobID, httpFailure(status, raw, parseSoraError))
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return failedOutcome(remoteJobID, err.Error())
	}
	mapped, ok := soraStatusMap[stringField(meta, "status")]
	if !ok {
		mapped = StatusProcessing
	}
	videoURL := ""
	if mapped == StatusCompleted {
		// Content lives behind the same credential as the submission call.
		videoURL = s.baseURL + "/videos/" + remoteJobID + "/content"
	}
	errText := ""
	if mapped == StatusFailed {
		errText = parseSoraError(raw)
	}
	return Outcome{
		JobID:    remoteJobID,
		Status:   mapped,
		VideoURL: videoURL,
		Error:    errText,
		Metadata: meta,
	}
}

func (s *Sora) SupportedFeatures() Capabilities {
	return Capabilities{
		SupportsDuration:     true,
		SupportsAspectRatio:  true,
		SupportsSeed:         false,
		SupportsFPS:          false,
		SupportsImageToVideo: true,
		SupportsVideoToVideo: true,
		MaxDuration:          20,
		AspectRatios:         []string{"16:9", "9:16", "1:1"},
	}
}

// soraSize maps an aspect ratio onto the discrete sizes Sora accepts.
func soraSize(aspectRatio string) string {
	switch aspectRatio {
	case "9:16":
		return "720x1280"
	case "16:9":
		return "1280x720"
	case "1:1":
		return "1024x1024"
	default:
		return "1280x720"
	}
}

// parseSoraError extracts the message from OpenAI's {"error":{"message":...}}
// envelope. Returns "" when the body does not match.
func parseSoraError(raw []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Error.Message)
}

var _ Provider = (*Sora)(nil)
