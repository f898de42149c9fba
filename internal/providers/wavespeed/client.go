// Package wavespeed submits generation jobs to the WaveSpeed API.
package wavespeed

import (
	"bytes"
	"context"
	"encoding/base64"
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

// Options configures the WaveSpeed client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the WaveSpeed job-submission endpoint.
// WaveSpeed cannot fetch reference URLs itself, so submissions carry inline
// base64 data URIs produced by ResolveImage.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type submitPayload struct {
	Prompt  string   `json:"prompt"`
	Images  []string `json:"images,omitempty"`
	Size    string   `json:"size,omitempty"`
	Webhook string   `json:"webhook,omitempty"`
}

type submitResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

type callbackPayload struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Outputs []string `json:"outputs"`
	Error   string   `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("wavespeed: api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.wavespeed.ai/api/v3"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "bytedance/seedream-v4"
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
	return "wavespeed"
}

// Submit posts one generation job and returns the provider-issued id. The
// response decode fails closed: a success status without an extractable id
// is an error, not a silent fallthrough.
func (c *Client) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("wavespeed: prompt is required")
	}
	payload := submitPayload{
		Prompt:  prompt,
		Images:  req.InlineImages,
		Webhook: req.CallbackURL,
	}
	if req.Width > 0 && req.Height > 0 {
		payload.Size = fmt.Sprintf("%d*%d", req.Width, req.Height)
	}

	endpoint := c.baseURL + "/" + c.model
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("wavespeed: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("wavespeed: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("wavespeed: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("wavespeed: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("wavespeed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("wavespeed: decode response: %w", err)
	}
	jobID := strings.TrimSpace(decoded.Data.ID)
	if jobID == "" {
		return "", fmt.Errorf("wavespeed: response missing job id (code %d: %s)", decoded.Code, decoded.Message)
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("job_id", jobID).
		Msg("wavespeed: job submitted")
	return jobID, nil
}

// ParseCallback normalizes a WaveSpeed webhook body. A body without a job id
// is malformed and rejected; the caller decides how softly to treat that.
func (c *Client) ParseCallback(body []byte) (*providers.CallbackEvent, error) {
	var decoded callbackPayload
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("wavespeed: decode callback: %w", err)
	}
	jobID := strings.TrimSpace(decoded.ID)
	if jobID == "" {
		return nil, errors.New("wavespeed: callback missing job id")
	}
	event := &providers.CallbackEvent{
		JobID:     jobID,
		Succeeded: strings.EqualFold(decoded.Status, "completed"),
		Error:     strings.TrimSpace(decoded.Error),
	}
	for _, out := range decoded.Outputs {
		if out = strings.TrimSpace(out); out != "" {
			event.OutputURL = out
			break
		}
	}
	return event, nil
}

// ResolveImage fetches a reference image and encodes it as a base64 data
// URI for inline submission. Fetch failures propagate; there is no partial
// fallback to submitting the bare URL.
func (c *Client) ResolveImage(ctx context.Context, imageURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return "", fmt.Errorf("wavespeed: invalid image url: %s", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("wavespeed: build image request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wavespeed: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("wavespeed: fetch image status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("wavespeed: read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

var (
	_ providers.Provider      = (*Client)(nil)
	_ providers.ImageResolver = (*Client)(nil)
)
