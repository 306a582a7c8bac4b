package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

// Options configures a provider adapter. Zero values select production defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// client is the HTTP plumbing shared by all adapters: bearer auth, JSON
// encoding, and raw response capture so each adapter can apply its own error
// envelope.
type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

func newClient(apiKey, defaultBaseURL string, opts Options) client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// do issues one authenticated JSON request and returns the status code and
// raw body. A non-nil error means the request never produced a response
// (encode failure, connection refused, timeout).
func (c client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("providers: request failed")
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Msg("providers: error response")
	}
	return resp.StatusCode, raw, nil
}

// probe performs a lightweight authenticated GET and reports whether it
// succeeded. Used by ValidateKey implementations; any failure collapses to false.
func (c client) probe(ctx context.Context, path string) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	status, _, err := c.do(ctx, http.MethodGet, path, nil)
	return err == nil && status == http.StatusOK
}

// httpFailure formats an HTTP error status into the normalized failure text.
// parse extracts a provider-specific error message from the body; when it
// yields nothing the raw body is used.
func httpFailure(status int, body []byte, parse func([]byte) string) string {
	detail := ""
	if parse != nil {
		detail = parse(body)
	}
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	return fmt.Sprintf("HTTP %d: %s", status, detail)
}

func failedOutcome(jobID, errText string) Outcome {
	return Outcome{JobID: jobID, Status: StatusFailed, Error: errText}
}

// decodeMetadata unmarshals a provider response body into the raw metadata
// bag carried on successful outcomes.
func decodeMetadata(raw []byte) (map[string]any, error) {
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return meta, nil
}

func stringField(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
