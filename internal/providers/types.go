package providers

import "context"

// Status is the provider-agnostic view of a remote generation job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Request describes a normalized video generation request passed to any provider.
type Request struct {
	Prompt          string
	Model           string
	DurationSeconds int
	AspectRatio     string
	Seed            *int
	FPS             *int
	Resolution      string
}

// Outcome is the normalized result of a submission or status check. Adapters
// express every failure mode through it; they never return errors.
type Outcome struct {
	JobID    string
	Status   Status
	VideoURL string
	Error    string
	Metadata map[string]any
}

// Capabilities declares what a provider supports. Constant per provider; used
// for validation and discovery, not enforced by the orchestrator.
type Capabilities struct {
	SupportsDuration     bool     `json:"supports_duration"`
	SupportsAspectRatio  bool     `json:"supports_aspect_ratio"`
	SupportsSeed         bool     `json:"supports_seed"`
	SupportsFPS          bool     `json:"supports_fps"`
	SupportsImageToVideo bool     `json:"supports_image_to_video"`
	SupportsVideoToVideo bool     `json:"supports_video_to_video"`
	MaxDuration          int      `json:"max_duration"`
	AspectRatios         []string `json:"available_aspect_ratios"`
}

// Provider is the contract implemented by all video generation providers.
// GenerateVideo and CheckStatus collapse transport failures, HTTP error
// statuses, and malformed responses into a failed Outcome so that a remote
// fault can never escape as a panic or error into the polling loop.
type Provider interface {
	Name() string
	Models() []string
	ValidateKey(ctx context.Context) bool
	GenerateVideo(ctx context.Context, req Request) Outcome
	CheckStatus(ctx context.Context, remoteJobID string) Outcome
	SupportedFeatures() Capabilities
}

// aspectRatioDimensions converts an aspect ratio string to pixel dimensions
// for providers that take explicit width/height.
func aspectRatioDimensions(aspectRatio string) (int, int) {
	switch aspectRatio {
	case "16:9":
		return 1920, 1080
	case "9:16":
		return 1080, 1920
	case "1:1":
		return 1080, 1080
	case "4:3":
		return 1440, 1080
	case "21:9":
		return 2560, 1080
	default:
		return 1920, 1080
	}
}
