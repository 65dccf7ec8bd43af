package rowsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPOptions parameterise the HTTP source.
type HTTPOptions struct {
	URL         string
	Timeout     time.Duration
	UserAgent   string
	BearerToken string
}

// HTTPSource pulls result sets from an upstream endpoint.
type HTTPSource struct {
	opts   HTTPOptions
	logger zerolog.Logger
	client *http.Client
}

// NewHTTPSource constructs an HTTP-backed source.
func NewHTTPSource(opts HTTPOptions, logger zerolog.Logger) *HTTPSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSource{
		opts:   opts,
		logger: logger.With().Str("component", "http_source").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves and decodes one result set payload.
func (h *HTTPSource) Fetch(ctx context.Context) (Payload, error) {
	if strings.TrimSpace(h.opts.URL) == "" {
		return Payload{}, errors.New("source url required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.URL, nil)
	if err != nil {
		return Payload{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(h.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "labthumbs/1.0")
	}
	if h.opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.opts.BearerToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Payload{}, err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Payload{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Payload{}, parseHTTPError(resp.StatusCode, payloadBytes)
	}

	var payload Payload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return Payload{}, fmt.Errorf("decode result set: %w", err)
	}

	h.logger.Debug().
		Str("plot_title", payload.PlotTitle).
		Int("rows", len(payload.Rows)).
		Msg("fetched result set")

	return payload, nil
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("source api error (%d): %s", status, apiErr.Error)
		}
		if apiErr.Description != "" {
			return fmt.Errorf("source api error (%d): %s", status, apiErr.Description)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("source api error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("source api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("source api error (%d)", status)
}

var _ Source = (*HTTPSource)(nil)
