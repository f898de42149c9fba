// Package fal submits generation jobs to the Fal queue API.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/infra"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/providers"
)

// Options configures the Fal client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Fal queue endpoint. Fal fetches image
// URLs itself, so submissions pass references through rather than inlining.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type imageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type submitPayload struct {
	Prompt    string     `json:"prompt"`
	ImageURL  string     `json:"image_url,omitempty"`
	ImageSize *imageSize `json:"image_size,omitempty"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Detail    string `json:"detail"`
}

type callbackPayload struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Error     string `json:"error"`
	Payload   struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"payload"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("fal: api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://queue.fal.run"
	}
	model := strings.Trim(strings.TrimSpace(opts.Model), "/")
	if model == "" {
		model = "fal-ai/flux/dev"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Name identifies this adapter in the provider registry and webhook routes.
func (c *Client) Name() string {
	return "fal"
}

// Submit enqueues one generation job and returns the provider-issued
// request id. The decode fails closed on a response without one.
func (c *Client) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("fal: prompt is required")
	}
	payload := submitPayload{
		Prompt:   prompt,
		ImageURL: strings.TrimSpace(req.SubjectURL),
	}
	if req.Width > 0 && req.Height > 0 {
		payload.ImageSize = &imageSize{Width: req.Width, Height: req.Height}
	}

	endpoint := c.baseURL + "/" + c.model
	if req.CallbackURL != "" {
		endpoint += "?fal_webhook=" + url.QueryEscape(req.CallbackURL)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("fal: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fal: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fal: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fal: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("fal: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("fal: decode response: %w", err)
	}
	requestID := strings.TrimSpace(decoded.RequestID)
	if requestID == "" {
		return "", fmt.Errorf("fal: response missing request id: %s", strings.TrimSpace(decoded.Detail))
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("job_id", requestID).
		Msg("fal: job submitted")
	return requestID, nil
}

// ParseCallback normalizes a Fal webhook body. Fal reports status "OK" on
// success and "ERROR" on failure.
func (c *Client) ParseCallback(body []byte) (*providers.CallbackEvent, error) {
	var decoded callbackPayload
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("fal: decode callback: %w", err)
	}
	requestID := strings.TrimSpace(decoded.RequestID)
	if requestID == "" {
		return nil, errors.New("fal: callback missing request id")
	}
	event := &providers.CallbackEvent{
		JobID:     requestID,
		Succeeded: strings.EqualFold(decoded.Status, "OK"),
		Error:     strings.TrimSpace(decoded.Error),
	}
	for _, img := range decoded.Payload.Images {
		if u := strings.TrimSpace(img.URL); u != "" {
			event.OutputURL = u
			break
		}
	}
	return event, nil
}

var _ providers.Provider = (*Client)(nil)
