package store

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

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/domain"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/infra"
)

// Fields holds the column values of one record, keyed by column name.
type Fields map[string]any

// StatusError is returned when the record store answers with a non-success
// HTTP status. Callers decide whether to surface or swallow it.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store: status %d: %s", e.Code, e.Body)
}

// Options configures the record store client.
type Options struct {
	BaseURL        string
	Table          string
	APIToken       string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs create/read/patch calls against a single table of the
// external record store. There is no cache, no retry, and no concurrency
// token: a Patch is a blind overwrite of the named columns.
type Client struct {
	baseURL    string
	table      string
	apiToken   string
	httpClient *http.Client
	logger     *infra.Logger
}

type recordEnvelope struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("store: base url is required")
	}
	table := strings.TrimSpace(opts.Table)
	if table == "" {
		return nil, errors.New("store: table is required")
	}
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, errors.New("store: api token is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
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
		baseURL:    baseURL,
		table:      table,
		apiToken:   strings.TrimSpace(opts.APIToken),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Create inserts a record and returns its store-assigned id.
func (c *Client) Create(ctx context.Context, fields Fields) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, c.tableURL(), recordEnvelope{Fields: fields})
	if err != nil {
		return "", err
	}
	var decoded recordEnvelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("store: decode create response: %w", err)
	}
	if decoded.ID == "" {
		return "", errors.New("store: create response missing record id")
	}
	c.logger.Debug().Str("record_id", decoded.ID).Msg("store: record created")
	return decoded.ID, nil
}

// Patch overwrites the named columns of an existing record, leaving the
// rest untouched.
func (c *Client) Patch(ctx context.Context, recordID string, fields Fields) error {
	_, err := c.do(ctx, http.MethodPatch, c.recordURL(recordID), recordEnvelope{Fields: fields})
	return err
}

// Read fetches the current column values of a record. A 404 from the store
// unwraps to domain.ErrNotFound.
func (c *Client) Read(ctx context.Context, recordID string) (Fields, error) {
	raw, err := c.do(ctx, http.MethodGet, c.recordURL(recordID), nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("store: record %s: %w", recordID, domain.ErrNotFound)
		}
		return nil, err
	}
	var decoded recordEnvelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("store: decode read response: %w", err)
	}
	return decoded.Fields, nil
}

func (c *Client) tableURL() string {
	return c.baseURL + "/" + url.PathEscape(c.table)
}

func (c *Client) recordURL(recordID string) string {
	return c.tableURL() + "/" + url.PathEscape(recordID)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("store: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("store: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("store: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}
