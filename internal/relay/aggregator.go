package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/domain"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/infra"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/providers"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/store"
)

// AggregatorOptions wires an Aggregator.
type AggregatorOptions struct {
	Store     RecordStore
	Providers providers.Registry
	Logger    *infra.Logger
}

// Aggregator merges asynchronous provider callbacks into the batch record's
// running tally and flips the batch to completed once every submitted
// sub-job has reported back.
type Aggregator struct {
	store    RecordStore
	registry providers.Registry
	locks    *recordLocks
	logger   *infra.Logger
	now      func() time.Time
}

// CallbackResult describes what a callback did to the batch record.
type CallbackResult struct {
	Applied   bool
	Completed bool
	Note      string
}

// NewAggregator validates and assembles an Aggregator.
func NewAggregator(opts AggregatorOptions) (*Aggregator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("relay: record store is required")
	}
	if len(opts.Providers) == 0 {
		return nil, fmt.Errorf("relay: at least one provider is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("relay: logger is required")
	}
	return &Aggregator{
		store:    opts.Store,
		registry: opts.Providers,
		locks:    newRecordLocks(),
		logger:   opts.Logger,
		now:      time.Now,
	}, nil
}

// HandleCallback merges one provider webhook into the batch record.
// Deliveries are deduplicated by job id, so redelivered or out-of-order
// callbacks cannot inflate the tally. Updates for the same record are
// serialized through a per-record lock; distinct records do not contend.
//
// A callback that reports success without an extractable output URL is
// acknowledged without touching the record and never counts toward the
// completion threshold; some providers signal completion before the asset
// URL exists, and the relay treats that as a no-op rather than an error.
func (a *Aggregator) HandleCallback(ctx context.Context, providerName, recordID string, body []byte) (*CallbackResult, error) {
	provider, ok := a.registry[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, providerName)
	}
	if strings.TrimSpace(recordID) == "" {
		return nil, fmt.Errorf("relay: callback missing record id")
	}
	event, err := provider.ParseCallback(body)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}

	unlock := a.locks.Lock(recordID)
	defer unlock()

	if !event.Succeeded {
		return a.recordFailure(ctx, recordID, event)
	}
	if event.OutputURL == "" {
		a.logger.Info().
			Str("record_id", recordID).
			Str("job_id", event.JobID).
			Msg("callback reported success without output, ignoring")
		return &CallbackResult{Applied: false, Note: "no output url"}, nil
	}
	return a.recordOutput(ctx, recordID, event)
}

func (a *Aggregator) recordFailure(ctx context.Context, recordID string, event *providers.CallbackEvent) (*CallbackResult, error) {
	rec, err := a.readRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	entry := event.JobID + ": " + failureReason(event)
	for _, existing := range rec.Failures {
		if strings.HasPrefix(existing, event.JobID+":") {
			return &CallbackResult{Applied: false, Note: "failure already recorded"}, nil
		}
	}
	rec.Failures = append(rec.Failures, entry)
	patch := store.Fields{
		domain.FieldFailures:  domain.EncodeLines(rec.Failures),
		domain.FieldUpdatedAt: a.now().UTC().Format(time.RFC3339),
	}
	if err := a.store.Patch(ctx, recordID, patch); err != nil {
		return nil, fmt.Errorf("relay: record failure: %w", err)
	}
	a.logger.Warn().
		Str("record_id", recordID).
		Str("job_id", event.JobID).
		Str("reason", failureReason(event)).
		Msg("sub-job failed")
	return &CallbackResult{Applied: true, Note: "failure recorded"}, nil
}

func (a *Aggregator) recordOutput(ctx context.Context, recordID string, event *providers.CallbackEvent) (*CallbackResult, error) {
	rec, err := a.readRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !rec.SeenJobIDs.Add(event.JobID) {
		a.logger.Debug().
			Str("record_id", recordID).
			Str("job_id", event.JobID).
			Msg("duplicate callback, tally unchanged")
		return &CallbackResult{Applied: false, Note: "duplicate delivery"}, nil
	}
	rec.OutputURLs = append(rec.OutputURLs, event.OutputURL)

	seen := rec.SeenJobIDs.Len()
	expected := len(rec.SubmittedJobIDs)
	now := a.now().UTC()
	patch := store.Fields{
		domain.FieldOutputURLs: domain.EncodeLines(rec.OutputURLs),
		domain.FieldSeenIDs:    rec.SeenJobIDs.Encode(),
		domain.FieldUpdatedAt:  now.Format(time.RFC3339),
	}
	result := &CallbackResult{Applied: true}
	if rec.Complete() {
		result.Completed = true
		result.Note = fmt.Sprintf("all %d jobs completed", expected)
		patch[domain.FieldStatus] = string(domain.BatchStatusCompleted)
		patch[domain.FieldCompletedAt] = now.Format(time.RFC3339)
	} else {
		result.Note = fmt.Sprintf("%d of %d received", seen, expected)
	}
	patch[domain.FieldNote] = result.Note

	if err := a.store.Patch(ctx, recordID, patch); err != nil {
		return nil, fmt.Errorf("relay: record output: %w", err)
	}
	a.logger.Info().
		Str("record_id", recordID).
		Str("job_id", event.JobID).
		Int("seen", seen).
		Int("expected", expected).
		Bool("completed", result.Completed).
		Msg("callback merged")
	return result, nil
}

func (a *Aggregator) readRecord(ctx context.Context, recordID string) (*domain.BatchRecord, error) {
	fields, err := a.store.Read(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("relay: read batch record: %w", err)
	}
	return domain.BatchFromFields(recordID, fields), nil
}

func failureReason(event *providers.CallbackEvent) string {
	if event.Error != "" {
		return event.Error
	}
	return "generation failed"
}
