package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const klingBaseURL = "https://api.klingai.com/v1"

// Kling adapts the Kling AI task API onto the Provider contract. Kling
// identifies jobs by task_id and reports progress through task_status.
type Kling struct {
	client
}

// NewKling constructs the Kling adapter.
func NewKling(apiKey string, opts Options) *Kling {
	return &Kling{client: newClient(apiKey, klingBaseURL, opts)}
}

func (k *Kling) Name() string { return "kling" }

func (k *Kling) Models() []string { return []string{"kling-1.5", "kling-1.0"} }

// ValidateKey checks the key against the account endpoint.
func (k *Kling) ValidateKey(ctx context.Context) bool {
	return k.probe(ctx, "/account")
}

type klingSubmission struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	Duration    int    `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Seed        *int   `json:"seed,omitempty"`
	FPS         *int   `json:"fps,omitempty"`
}

func (k *Kling) GenerateVideo(ctx context.Context, req Request) Outcome {
	payload := klingSubmission{
		Prompt:      req.Prompt,
		Model:       klingModel(req.Model),
		AspectRatio: req.AspectRatio,
		Seed:        req.Seed,
		FPS:         req.FPS,
	}
	if req.DurationSeconds > 0 {
		payload.Duration = req.DurationSeconds
	}

	status, raw, err := k.do(ctx, http.MethodPost, "/videos/generations", payload)
	if err != nil {
		return failedOutcome("", err.Error())
	}
	if status >= 300 {
		return failedOutcome("", httpFailure(status, raw, parseKlingError))
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return failedOutcome("", err.Error())
	}
	jobID := stringField(meta, "task_id")
	if jobID == "" {
		jobID = stringField(meta, "id")
	}
	return Outcome{
		JobID:    jobID,
		Status:   StatusProcessing,
		Metadata: meta,
	}
}

var klingStatusMap = map[string]Status{
	"pending": StatusProcessing,
	"running": StatusProcessing,
	"success": StatusCompleted,
	"failed":  StatusFailed,
}

func (k *Kling) CheckStatus(ctx context.Context, remoteJobID string) Outcome {
	status, raw, err := k.do(ctx, http.MethodGet, "/videos/generations/"+remoteJobID, nil)
	if err != nil {
		return failedOutcome(remoteJobID, err.Error())
	}
	if status >= 300 {
		return failedOutcome(remoteJobID, httpFailure(status, raw, parseKlingError))
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return failedOutcome(remoteJobID, err.Error())
	}
	mapped, ok := klingStatusMap[stringField(meta, "task_status")]
	if !ok {
		mapped = StatusProcessing
	}
	videoURL := ""
	if mapped == StatusCompleted {
		if result, ok := meta["task_result"].(map[string]any); ok {
			videoURL = stringField(result, "video_url")
		}
	}
	errText := ""
	if mapped == StatusFailed {
		errText = stringField(meta, "task_status_msg")
	}
	return Outcome{
		JobID:    remoteJobID,
		Status:   mapped,
		VideoURL: videoURL,
		Error:    errText,
		Metadata: meta,
	}
}

func (k *Kling) SupportedFeatures() Capabilities {
	return Capabilities{
		SupportsDuration:     true,
		SupportsAspectRatio:  true,
		SupportsSeed:         true,
		SupportsFPS:          true,
		SupportsImageToVideo: true,
		SupportsVideoToVideo: true,
		MaxDuration:          10,
		AspectRatios:         []string{"16:9", "9:16", "1:1"},
	}
}

// klingModel translates the gateway model id into Kling's versioned form.
func klingModel(model string) string {
	switch strings.TrimSpace(model) {
	case "kling-1.0":
		return "kling-v1"
	default:
		return "kling-v1.5"
	}
}

// parseKlingError extracts the message from Kling's {"code","message"} envelope.
func parseKlingError(raw []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Message)
}

var _ Provider = (*Kling)(nil)
