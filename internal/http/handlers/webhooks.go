package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxWebhookBody = 1 << 20

// ProviderWebhook ingests one asynchronous provider callback. The response
// is HTTP 200 no matter what happened internally: providers treat non-2xx as
// an invitation to redeliver, and a retry storm against a record that cannot
// be read helps nobody. ok:false signals that the merge did not apply.
func (a *App) ProviderWebhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	recordID := r.URL.Query().Get("record_id")
	runID := r.URL.Query().Get("run_id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.Logger.Warn().Str("provider", provider).Err(err).Msg("webhook body unreadable")
		a.json(w, http.StatusOK, map[string]any{"ok": false})
		return
	}

	result, err := a.Callbacks.HandleCallback(r.Context(), provider, recordID, body)
	if err != nil {
		a.Logger.Warn().
			Str("provider", provider).
			Str("record_id", recordID).
			Str("run_id", runID).
			Err(err).
			Msg("webhook not applied")
		a.json(w, http.StatusOK, map[string]any{"ok": false})
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"ok":        true,
		"applied":   result.Applied,
		"completed": result.Completed,
		"note":      result.Note,
	})
}
