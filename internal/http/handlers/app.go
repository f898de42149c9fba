package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/infra"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/relay"
)

// BatchStarter dispatches one batch request.
type BatchStarter interface {
	StartBatch(ctx context.Context, in relay.BatchInput) (*relay.BatchReceipt, error)
}

// CallbackHandler merges one provider webhook into a batch record.
type CallbackHandler interface {
	HandleCallback(ctx context.Context, provider, recordID string, body []byte) (*relay.CallbackResult, error)
}

// App bundles the handler dependencies.
type App struct {
	Starter   BatchStarter
	Callbacks CallbackHandler
	Store     relay.RecordStore
	Logger    *infra.Logger
}

// NewApp constructs the handler container.
func NewApp(starter BatchStarter, callbacks CallbackHandler, store relay.RecordStore, logger *infra.Logger) *App {
	return &App{Starter: starter, Callbacks: callbacks, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]any{"error": message})
}
