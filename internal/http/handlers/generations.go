package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/providers"
)

type generateRequest struct {
	Model       string `json:"model"`
	Provider    string `json:"provider"`
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
	Seed        *int   `json:"seed"`
	FPS         *int   `json:"fps"`
}

// GenerationsCreate validates the request, persists a queued record, and
// hands it to the orchestrator. The response returns immediately; progress is
// observable via GenerationsGet.
func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if req.Model == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "model is required")
		return
	}
	if req.Duration <= 0 {
		req.Duration = 5
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = providers.ProviderForModel(req.Model)
	}
	if !providers.Known(providerName) {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown provider: "+providerName)
		return
	}

	cred, err := a.Vault.ActiveKeyForProvider(r.Context(), providerName)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveKey) {
			a.error(w, http.StatusBadRequest, "bad_request", "no active API key found for provider: "+providerName)
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to resolve credential")
		return
	}
	apiKey, err := a.Vault.DecryptKey(cred)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to decrypt credential")
		return
	}

	adapter, err := a.NewProvider(providerName, apiKey)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	now := time.Now().UTC()
	gen := &domain.Generation{
		ID:       "gen_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Provider: providerName,
		Model:    req.Model,
		Prompt:   req.Prompt,
		Params: domain.GenerationParams{
			DurationSeconds: req.Duration,
			AspectRatio:     req.AspectRatio,
			Seed:            req.Seed,
			FPS:             req.FPS,
		},
		Status:    domain.GenerationStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.Generations.Create(r.Context(), gen); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to create generation")
		return
	}

	// Snapshot the response before handing the record to its job task.
	payload := generationPayload(gen)

	a.Orchestrator.SubmitAndTrack(gen, adapter, apiKey, providers.Request{
		Prompt:          req.Prompt,
		Model:           req.Model,
		DurationSeconds: req.Duration,
		AspectRatio:     req.AspectRatio,
		Seed:            req.Seed,
		FPS:             req.FPS,
	})

	a.json(w, http.StatusAccepted, payload)
}

// GenerationsGet returns one generation by id.
func (a *App) GenerationsGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gen, err := a.Generations.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generation")
		return
	}
	a.json(w, http.StatusOK, generationPayload(gen))
}

// GenerationsList returns generations matching optional provider/status filters.
func (a *App) GenerationsList(w http.ResponseWriter, r *http.Request) {
	filter := domain.GenerationFilter{
		Provider: r.URL.Query().Get("provider"),
		Status:   domain.GenerationStatus(r.URL.Query().Get("status")),
		Offset:   queryInt(r, "skip", 0),
		Limit:    queryInt(r, "limit", 50),
	}
	gens, err := a.Generations.List(r.Context(), filter)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list generations")
		return
	}
	items := make([]map[string]any, 0, len(gens))
	for i := range gens {
		items = append(items, generationPayload(&gens[i]))
	}
	a.json(w, http.StatusOK, items)
}

// GenerationsDelete removes a generation record and its stored artifact.
func (a *App) GenerationsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gen, err := a.Generations.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generation")
		return
	}
	if gen.VideoPath != "" && a.Store != nil {
		if err := a.Store.Delete(path.Base(gen.VideoPath)); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", gen.ID).Msg("handlers: delete artifact failed")
		}
	}
	if err := a.Generations.Delete(r.Context(), id); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete generation")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "generation deleted"})
}

type estimateRequest struct {
	Model       string  `json:"model"`
	Provider    string  `json:"provider"`
	Duration    float64 `json:"duration"`
	AspectRatio string  `json:"aspect_ratio"`
}

// GenerationsEstimate previews the cost of a generation without creating one.
func (a *App) GenerationsEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Model == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "model is required")
		return
	}
	if req.Duration <= 0 {
		req.Duration = 5
	}
	providerName := req.Provider
	if providerName == "" {
		providerName = providers.ProviderForModel(req.Model)
	}
	breakdown := a.Pricing.Estimate(providerName, req.Model, req.Duration, req.AspectRatio)
	a.json(w, http.StatusOK, map[string]any{
		"provider":        providerName,
		"model":           req.Model,
		"estimated_cost":  breakdown.EstimatedCost,
		"per_second_rate": breakdown.PerSecondRate,
		"duration":        breakdown.Duration,
		"resolution":      breakdown.Resolution,
		"breakdown": map[string]float64{
			"base":          breakdown.Base,
			"duration_cost": breakdown.DurationCost,
		},
	})
}

// generationPayload mirrors the wire shape clients depend on.
func generationPayload(gen *domain.Generation) map[string]any {
	payload := map[string]any{
		"id":       gen.ID,
		"object":   "video.generation",
		"created":  gen.CreatedAt.Unix(),
		"model":    gen.Model,
		"provider": gen.Provider,
		"status":   string(gen.Status),
		"prompt":   gen.Prompt,
		"parameters": map[string]any{
			"duration":     gen.Params.DurationSeconds,
			"aspect_ratio": gen.Params.AspectRatio,
			"seed":         gen.Params.Seed,
			"fps":          gen.Params.FPS,
		},
	}
	if gen.VideoURL != "" {
		payload["video"] = map[string]any{
			"url":      gen.VideoURL,
			"duration": gen.DurationSeconds,
			"width":    gen.Width,
			"height":   gen.Height,
		}
	}
	if gen.Cost > 0 || gen.GenerationTime > 0 {
		payload["usage"] = map[string]any{
			"cost":         gen.Cost,
			"time_seconds": gen.GenerationTime,
		}
	}
	if gen.ErrorMessage != "" {
		payload["error"] = gen.ErrorMessage
	}
	if gen.CompletedAt != nil {
		payload["completed_at"] = gen.CompletedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
