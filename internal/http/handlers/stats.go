package handlers

import (
	"net/http"

	"server/internal/domain"
)

// UsageStats reports aggregate generation counts, spend, and per-provider and
// per-model rollups.
func (a *App) UsageStats(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Usage.Summary(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to compute usage stats")
		return
	}

	successRate := 0.0
	if summary.TotalGenerations > 0 {
		successRate = float64(summary.TotalSuccess) / float64(summary.TotalGenerations)
	}

	byProvider := make(map[string]map[string]any, len(summary.ByProvider))
	for _, rollup := range summary.ByProvider {
		byProvider[rollup.Key] = rollupPayload(rollup)
	}
	byModel := make(map[string]map[string]any, len(summary.ByModel))
	for _, rollup := range summary.ByModel {
		byModel[rollup.Key] = rollupPayload(rollup)
	}

	recent := make([]map[string]any, 0, len(summary.Recent))
	for i := range summary.Recent {
		recent = append(recent, generationPayload(&summary.Recent[i]))
	}

	a.json(w, http.StatusOK, map[string]any{
		"total_generations": summary.TotalGenerations,
		"total_cost":        summary.TotalCost,
		"success_rate":      successRate,
		"by_provider":       byProvider,
		"by_model":          byModel,
		"recent":            recent,
	})
}

func rollupPayload(r domain.UsageRollup) map[string]any {
	return map[string]any{
		"count":        r.Count,
		"total_cost":   r.TotalCost,
		"avg_time_sec": r.AvgTime,
	}
}
