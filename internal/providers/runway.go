package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const runwayBaseURL = "https://api.runwayml.com/v1"

// Runway adapts the Runway Gen-3/Gen-4 generations API onto the Provider contract.
type Runway struct {
	client
}

// NewRunway constructs the Runway adapter.
func NewRunway(apiKey string, opts Options) *Runway {
	return &Runway{client: newClient(apiKey, runwayBaseURL, opts)}
}

func (r *Runway) Name() string { return "runway" }

func (r *Runway) Models() []string { return []string{"runway-gen3", "runway-gen4"} }

// ValidateKey checks the key against the teams endpoint.
func (r *Runway) ValidateKey(ctx context.Context) bool {
	return r.probe(ctx, "/teams")
}

type runwaySubmission struct {
	Prompt   string `json:"prompt"`
	Model    string `json:"model"`
	Duration int    `json:"duration,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Seed     *int   `json:"seed,omitempty"`
}

func (r *Runway) GenerateVideo(ctx context.Context, req Request) Outcome {
	payload := runwaySubmission{
		Prompt: req.Prompt,
		Model:  runwayModel(req.Model),
		Seed:   req.Seed,
	}
	if req.DurationSeconds > 0 {
		payload.Duration = req.DurationSeconds
	}
	if req.AspectRatio != "" {
		payload.Width, payload.Height = aspectRatioDimensions(req.AspectRatio)
	}

	status, raw, err := r.do(ctx, http.MethodPost, "/generations", payload)
	if err != nil {
		return failedOutcome("", err.Error())
	}
	if status >= 300 {
		return failedOutcome("", httpFailure(status, raw, parseRunwayError))
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

var runwayStatusMap = map[string]Status{
	"pending":    StatusProcessing,
	"processing": StatusProcessing,
	"succeeded":  StatusCompleted,
	"failed":     StatusFailed,
}

func (r *Runway) CheckStatus(ctx context.Context, remoteJobID string) Outcome {
	status, raw, err := r.do(ctx, http.MethodGet, "/generations/"+remoteJobID, nil)
	if err != nil {
		return failedOutcome(remoteJobID, err.Error())
	}
	if status >= 300 {
		return failedOutcome(remoteJobID, httpFailure(status, raw, parseRunwayError))
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return failedOutcome(remoteJobID, err.Error())
	}
	mapped, ok := runwayStatusMap[stringField(meta, "status")]
	if !ok {
		mapped = StatusProcessing
	}
	videoURL := ""
	if mapped == StatusCompleted {
		if output, ok := meta["output"].(map[string]any); ok {
			videoURL = stringField(output, "url")
		}
	}
	errText := ""
	if mapped == StatusFailed {
		errText = stringField(meta, "failure_reason")
	}
	return Outcome{
		JobID:    remoteJobID,
		Status:   mapped,
		VideoURL: videoURL,
		Error:    errText,
		Metadata: meta,
	}
}

func (r *Runway) SupportedFeatures() Capabilities {
	return Capabilities{
		SupportsDuration:     true,
		SupportsAspectRatio:  true,
		SupportsSeed:         true,
		SupportsFPS:          false,
		SupportsImageToVideo: true,
		SupportsVideoToVideo: false,
		MaxDuration:          10,
		AspectRatios:         []string{"16:9", "9:16", "1:1", "4:3"},
	}
}

// runwayModel translates the gateway model id into Runway's short form.
func runwayModel(model string) string {
	switch strings.TrimSpace(model) {
	case "runway-gen4":
		return "gen4"
	default:
		return "gen3"
	}
}

// parseRunwayError extracts the message from Runway's {"error": "..."} envelope.
func parseRunwayError(raw []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Error)
}

var _ Provider = (*Runway)(nil)
