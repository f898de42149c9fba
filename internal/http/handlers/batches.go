package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/domain"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/relay"
)

type startBatchResponse struct {
	OK             bool   `json:"ok"`
	ParentRecordID string `json:"parentRecordId"`
	RunID          string `json:"runId"`
	Message        string `json:"message"`
}

type batchSnapshot struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	Prompt         string   `json:"prompt"`
	Provider       string   `json:"provider"`
	RunID          string   `json:"runId"`
	Note           string   `json:"note"`
	SubmittedCount int      `json:"submittedCount"`
	SeenCount      int      `json:"seenCount"`
	OutputURLs     []string `json:"outputUrls"`
	Failures       []string `json:"failures"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	CompletedAt    string   `json:"completedAt,omitempty"`
}

// StartBatch accepts the form submission and fans the batch out.
func (a *App) StartBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	in := relayInputFromForm(r)

	receipt, err := a.Starter.StartBatch(r.Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPrompt) || errors.Is(err, domain.ErrUnknownProvider) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("start batch failed")
		a.error(w, http.StatusInternalServerError, "failed to start batch")
		return
	}
	a.json(w, http.StatusOK, startBatchResponse{
		OK:             true,
		ParentRecordID: receipt.RecordID,
		RunID:          receipt.RunID,
		Message:        fmt.Sprintf("submitted %d of %d jobs", receipt.Submitted, receipt.Submitted+receipt.Failed),
	})
}

// GetBatch returns the current snapshot of a batch record.
func (a *App) GetBatch(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	fields, err := a.Store.Read(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "batch not found")
			return
		}
		a.Logger.Error().Str("record_id", recordID).Err(err).Msg("read batch failed")
		a.error(w, http.StatusInternalServerError, "failed to read batch")
		return
	}
	rec := domain.BatchFromFields(recordID, fields)
	snapshot := batchSnapshot{
		ID:             rec.ID,
		Status:         string(rec.Status),
		Prompt:         rec.Prompt,
		Provider:       rec.Provider,
		RunID:          rec.RunID,
		Note:           rec.Note,
		SubmittedCount: len(rec.SubmittedJobIDs),
		SeenCount:      rec.SeenJobIDs.Len(),
		OutputURLs:     rec.OutputURLs,
		Failures:       rec.Failures,
	}
	if !rec.CreatedAt.IsZero() {
		snapshot.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	if !rec.CompletedAt.IsZero() {
		snapshot.CompletedAt = rec.CompletedAt.Format(time.RFC3339)
	}
	a.json(w, http.StatusOK, snapshot)
}

func relayInputFromForm(r *http.Request) relay.BatchInput {
	var refs []string
	for _, raw := range strings.Split(r.FormValue("referenceUrls"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			refs = append(refs, raw)
		}
	}
	provider := strings.TrimSpace(r.FormValue("provider"))
	if provider == "" {
		provider = "wavespeed"
	}
	return relay.BatchInput{
		Prompt:        r.FormValue("prompt"),
		SubjectURL:    strings.TrimSpace(r.FormValue("subjectUrl")),
		ReferenceURLs: refs,
		Width:         formInt(r, "width"),
		Height:        formInt(r, "height"),
		Count:         formInt(r, "count"),
		Provider:      provider,
	}
}

func formInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0
	}
	return v
}
