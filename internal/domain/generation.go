package domain

import "time"

// GenerationStatus enumerates the lifecycle states of a video generation.
type GenerationStatus string

const (
	GenerationStatusQueued     GenerationStatus = "queued"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
	GenerationStatusCancelled  GenerationStatus = "cancelled"
)

// IsTerminal reports whether a generation in this status may never transition again.
func (s GenerationStatus) IsTerminal() bool {
	switch s {
	case GenerationStatusCompleted, GenerationStatusFailed, GenerationStatusCancelled:
		return true
	}
	return false
}

// GenerationParams carries the caller-supplied tuning knobs for a generation.
type GenerationParams struct {
	DurationSeconds int    `json:"duration"`
	AspectRatio     string `json:"aspect_ratio"`
	Seed            *int   `json:"seed,omitempty"`
	FPS             *int   `json:"fps,omitempty"`
}

// Generation encapsulates one video generation request driven to a terminal outcome.
type Generation struct {
	ID              string
	Provider        string
	Model           string
	Prompt          string
	Params          GenerationParams
	Status          GenerationStatus
	ProviderJobID   string
	ErrorMessage    string
	VideoURL        string
	VideoPath       string
	Width           int
	Height          int
	DurationSeconds float64
	GenerationTime  float64
	Cost            float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}
