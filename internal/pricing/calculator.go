// Package pricing computes estimated and final monetary cost for video
// generations. The table and formulas are pure data; the package holds no
// state and is safe to share across job tasks.
package pricing

import (
	"math"
	"strconv"
	"strings"
)

// Rate is the pricing entry for one (provider, model) pair, in USD.
type Rate struct {
	PerSecond float64 `json:"per_second"`
	BaseCost  float64 `json:"base_cost"`
}

// Breakdown is a read-only cost preview returned before a job is created.
type Breakdown struct {
	EstimatedCost float64 `json:"estimated_cost"`
	PerSecondRate float64 `json:"per_second_rate"`
	Duration      float64 `json:"duration"`
	Resolution    string  `json:"resolution"`
	Base          float64 `json:"base"`
	DurationCost  float64 `json:"duration_cost"`
}

const basePixels = 1280 * 720

// rates is keyed by provider, then model. Runway and Kling bill in credits;
// the per-second figures are USD approximations.
var rates = map[string]map[string]Rate{
	"openai": {
		"sora-2": {PerSecond: 0.10},
		"sora-1": {PerSecond: 0.10},
	},
	"runway": {
		"runway-gen3": {PerSecond: 0.05},
		"runway-gen4": {PerSecond: 0.075},
	},
	"kling": {
		"kling-1.5": {PerSecond: 0.04},
		"kling-1.0": {PerSecond: 0.03},
	},
}

// Calculator computes generation costs from the static pricing table.
type Calculator struct{}

// NewCalculator returns the shared cost calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Cost computes the cost of a generation. Unknown (provider, model) pairs
// cost 0; callers must tolerate a silently zero cost for unrecognized models.
// An empty resolution leaves the base price unscaled.
func (c *Calculator) Cost(provider, model string, durationSeconds float64, resolution string) float64 {
	rate, ok := rates[provider][model]
	if !ok {
		return 0.0
	}
	total := rate.BaseCost + rate.PerSecond*durationSeconds
	if resolution != "" {
		total *= resolutionMultiplier(resolution)
	}
	return round4(total)
}

// Estimate previews the cost of a generation before it is created, mapping
// the aspect ratio onto a canonical resolution.
func (c *Calculator) Estimate(provider, model string, durationSeconds float64, aspectRatio string) Breakdown {
	resolution := resolutionForAspectRatio(aspectRatio)
	rate := rates[provider][model]
	return Breakdown{
		EstimatedCost: c.Cost(provider, model, durationSeconds, resolution),
		PerSecondRate: rate.PerSecond,
		Duration:      durationSeconds,
		Resolution:    resolution,
		Base:          rate.BaseCost,
		DurationCost:  rate.PerSecond * durationSeconds,
	}
}

// Pricing exposes the full table for the provider discovery endpoint.
func (c *Calculator) Pricing() map[string]map[string]Rate {
	out := make(map[string]map[string]Rate, len(rates))
	for provider, models := range rates {
		clone := make(map[string]Rate, len(models))
		for model, rate := range models {
			clone[model] = rate
		}
		out[provider] = clone
	}
	return out
}

// resolutionMultiplier scales cost linearly with pixel count relative to
// 1280x720, clamped to [0.5, 2.0]. Malformed strings yield 1.0 rather than
// failing; cost must never abort a job.
func resolutionMultiplier(resolution string) float64 {
	width, height, ok := ParseResolution(resolution)
	if !ok {
		return 1.0
	}
	multiplier := float64(width*height) / float64(basePixels)
	return math.Min(math.Max(multiplier, 0.5), 2.0)
}

// ParseResolution splits a "WIDTHxHEIGHT" string. ok is false for anything
// that does not parse into two positive integers.
func ParseResolution(resolution string) (width, height int, ok bool) {
	parts := strings.Split(strings.TrimSpace(resolution), "x")
	if len(parts) != 2 {
		return 0, 0, false
	}
	width, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	height, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// resolutionForAspectRatio maps an aspect ratio onto the canonical resolution
// used for estimates.
func resolutionForAspectRatio(aspectRatio string) string {
	switch aspectRatio {
	case "16:9":
		return "1280x720"
	case "9:16":
		return "720x1280"
	case "1:1":
		return "1024x1024"
	default:
		return "1280x720"
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
