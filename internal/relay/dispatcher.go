// Package relay implements the batch fan-out and the webhook-driven
// completion tracking around the external record store.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/domain"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/infra"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/providers"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/store"
)

// RecordStore is the slice of the record store client the relay depends on.
type RecordStore interface {
	Create(ctx context.Context, fields store.Fields) (string, error)
	Patch(ctx context.Context, recordID string, fields store.Fields) error
	Read(ctx context.Context, recordID string) (store.Fields, error)
}

// BatchInput is one user-submitted batch request.
type BatchInput struct {
	Prompt        string
	SubjectURL    string
	ReferenceURLs []string
	Width         int
	Height        int
	Count         int
	Provider      string
}

// BatchReceipt identifies a dispatched batch and summarizes the fan-out.
type BatchReceipt struct {
	RecordID  string
	RunID     string
	Submitted int
	Failed    int
}

// DispatcherOptions wires a Dispatcher.
type DispatcherOptions struct {
	Store         RecordStore
	Providers     providers.Registry
	PublicBaseURL string
	MaxCount      int
	Logger        *infra.Logger
}

// Dispatcher turns one batch request into N parallel provider submissions
// and records the outcome on the batch record.
type Dispatcher struct {
	store         RecordStore
	registry      providers.Registry
	publicBaseURL string
	maxCount      int
	logger        *infra.Logger
	now           func() time.Time
}

// NewDispatcher validates and assembles a Dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("relay: record store is required")
	}
	if len(opts.Providers) == 0 {
		return nil, fmt.Errorf("relay: at least one provider is required")
	}
	if opts.PublicBaseURL == "" {
		return nil, fmt.Errorf("relay: public base url is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("relay: logger is required")
	}
	maxCount := opts.MaxCount
	if maxCount <= 0 {
		maxCount = 1
	}
	return &Dispatcher{
		store:         opts.Store,
		registry:      opts.Providers,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		maxCount:      maxCount,
		logger:        opts.Logger,
		now:           time.Now,
	}, nil
}

// StartBatch creates the batch record, fans out the submissions in parallel
// and writes the summary back. Each submission succeeds or fails on its own:
// a failing slot does not cancel its siblings, and the join waits for all of
// them. Status becomes processing when at least one submission succeeded,
// failed otherwise.
func (d *Dispatcher) StartBatch(ctx context.Context, in BatchInput) (*BatchReceipt, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	provider, ok := d.registry[in.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, in.Provider)
	}
	count := in.Count
	if count <= 0 {
		count = 1
	}
	if count > d.maxCount {
		count = d.maxCount
	}

	runID := uuid.NewString()
	rec := &domain.BatchRecord{
		Prompt:        prompt,
		SubjectURL:    strings.TrimSpace(in.SubjectURL),
		ReferenceURLs: in.ReferenceURLs,
		Provider:      provider.Name(),
		RunID:         runID,
	}
	if in.Width > 0 && in.Height > 0 {
		rec.Size = fmt.Sprintf("%dx%d", in.Width, in.Height)
	}
	recordID, err := d.store.Create(ctx, rec.CreateFields(d.now()))
	if err != nil {
		return nil, fmt.Errorf("relay: create batch record: %w", err)
	}
	d.logger.Info().
		Str("record_id", recordID).
		Str("run_id", runID).
		Str("provider", provider.Name()).
		Int("count", count).
		Msg("batch accepted")

	req := providers.SubmitRequest{
		Prompt:        prompt,
		SubjectURL:    rec.SubjectURL,
		ReferenceURLs: in.ReferenceURLs,
		Width:         in.Width,
		Height:        in.Height,
		CallbackURL:   providers.CallbackURL(d.publicBaseURL, provider.Name(), recordID, runID),
	}

	// Resolve reference images once and reuse the encoded blobs across all
	// N submissions instead of fetching them N times.
	if resolver, ok := provider.(providers.ImageResolver); ok {
		inline, err := resolveImages(ctx, resolver, rec.SubjectURL, in.ReferenceURLs)
		if err != nil {
			d.failBatch(ctx, recordID, err)
			return nil, fmt.Errorf("relay: resolve reference images: %w", err)
		}
		req.InlineImages = inline
	}

	jobIDs := make([]string, count)
	failures := make([]string, count)
	var g errgroup.Group
	for i := 0; i < count; i++ {
		slot := i
		g.Go(func() error {
			jobID, err := provider.Submit(ctx, req)
			if err != nil {
				failures[slot] = fmt.Sprintf("submission %d: %v", slot+1, err)
				d.logger.Warn().
					Str("record_id", recordID).
					Int("slot", slot+1).
					Err(err).
					Msg("submission failed")
				return nil
			}
			jobIDs[slot] = jobID
			d.logger.Debug().
				Str("record_id", recordID).
				Str("job_id", jobID).
				Int("slot", slot+1).
				Msg("submission accepted")
			return nil
		})
	}
	_ = g.Wait()

	submitted := compact(jobIDs)
	failed := compact(failures)
	status := domain.BatchStatusProcessing
	note := fmt.Sprintf("submitted %d of %d jobs", len(submitted), count)
	if len(submitted) == 0 {
		status = domain.BatchStatusFailed
		note = "all submissions failed"
	}
	patch := store.Fields{
		domain.FieldSubmittedIDs: domain.EncodeLines(submitted),
		domain.FieldFailures:     domain.EncodeLines(failed),
		domain.FieldStatus:       string(status),
		domain.FieldNote:         note,
		domain.FieldUpdatedAt:    d.now().UTC().Format(time.RFC3339),
	}
	if err := d.store.Patch(ctx, recordID, patch); err != nil {
		return nil, fmt.Errorf("relay: record batch summary: %w", err)
	}
	d.logger.Info().
		Str("record_id", recordID).
		Str("status", string(status)).
		Int("submitted", len(submitted)).
		Int("failed", len(failed)).
		Msg("batch dispatched")

	return &BatchReceipt{
		RecordID:  recordID,
		RunID:     runID,
		Submitted: len(submitted),
		Failed:    len(failed),
	}, nil
}

func (d *Dispatcher) failBatch(ctx context.Context, recordID string, cause error) {
	patch := store.Fields{
		domain.FieldStatus:    string(domain.BatchStatusFailed),
		domain.FieldFailures:  cause.Error(),
		domain.FieldNote:      "batch aborted before submission",
		domain.FieldUpdatedAt: d.now().UTC().Format(time.RFC3339),
	}
	if err := d.store.Patch(ctx, recordID, patch); err != nil {
		d.logger.Error().
			Str("record_id", recordID).
			Err(err).
			Msg("failed to mark batch as failed")
	}
}

func resolveImages(ctx context.Context, resolver providers.ImageResolver, subjectURL string, referenceURLs []string) ([]string, error) {
	var urls []string
	if subjectURL != "" {
		urls = append(urls, subjectURL)
	}
	for _, u := range referenceURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	inline := make([]string, 0, len(urls))
	for _, u := range urls {
		encoded, err := resolver.ResolveImage(ctx, u)
		if err != nil {
			return nil, err
		}
		inline = append(inline, encoded)
	}
	return inline, nil
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
