package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/domain"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/infra"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/providers"
	"github.com/Josephabidoyefreelance/wavespeed-fresh/internal/store"
)

func testLogger() *infra.Logger {
	discard := zerolog.New(io.Discard)
	l := infra.Logger(discard)
	return &l
}

// fakeStore is an in-memory stand-in for the record store client.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	records   map[string]store.Fields
	createErr error
	patchErr  error
	readErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]store.Fields{}}
}

func (s *fakeStore) Create(_ context.Context, fields store.Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.seq++
	id := fmt.Sprintf("rec-%d", s.seq)
	s.records[id] = cloneFields(fields)
	return id, nil
}

func (s *fakeStore) Patch(_ context.Context, recordID string, fields store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patchErr != nil {
		return s.patchErr
	}
	rec, ok := s.records[recordID]
	if !ok {
		return &store.StatusError{Code: http.StatusNotFound, Body: "record not found"}
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

func (s *fakeStore) Read(_ context.Context, recordID string) (store.Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	rec, ok := s.records[recordID]
	if !ok {
		return nil, fmt.Errorf("store: record %s: %w", recordID, domain.ErrNotFound)
	}
	return cloneFields(rec), nil
}

func (s *fakeStore) record(t *testing.T, recordID string) *domain.BatchRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.records[recordID]
	if !ok {
		t.Fatalf("record %s not found in fake store", recordID)
	}
	return domain.BatchFromFields(recordID, cloneFields(fields))
}

func cloneFields(fields store.Fields) store.Fields {
	cloned := make(store.Fields, len(fields))
	for k, v := range fields {
		cloned[k] = v
	}
	return cloned
}

// fakeProvider counts submissions and yields deterministic job ids unless a
// custom submitFn is installed.
type fakeProvider struct {
	name     string
	mu       sync.Mutex
	requests []providers.SubmitRequest
	submitFn func(slot int, req providers.SubmitRequest) (string, error)
}

func (p *fakeProvider) Name() string {
	if p.name == "" {
		return "fake"
	}
	return p.name
}

func (p *fakeProvider) Submit(_ context.Context, req providers.SubmitRequest) (string, error) {
	p.mu.Lock()
	slot := len(p.requests)
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.submitFn != nil {
		return p.submitFn(slot, req)
	}
	return fmt.Sprintf("job-%d", slot+1), nil
}

type fakeCallback struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Output string `json:"output"`
	Error  string `json:"error"`
}

func (p *fakeProvider) ParseCallback(body []byte) (*providers.CallbackEvent, error) {
	var decoded fakeCallback
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("fake: decode callback: %w", err)
	}
	if strings.TrimSpace(decoded.JobID) == "" {
		return nil, errors.New("fake: callback missing job id")
	}
	return &providers.CallbackEvent{
		JobID:     decoded.JobID,
		Succeeded: decoded.Status == "succeeded",
		OutputURL: decoded.Output,
		Error:     decoded.Error,
	}, nil
}

func callbackBody(t *testing.T, cb fakeCallback) []byte {
	t.Helper()
	body, err := json.Marshal(cb)
	if err != nil {
		t.Fatalf("marshal callback: %v", err)
	}
	return body
}

// fakeResolvingProvider additionally implements providers.ImageResolver.
type fakeResolvingProvider struct {
	fakeProvider
	resolved   []string
	resolveErr error
}

func (p *fakeResolvingProvider) ResolveImage(_ context.Context, imageURL string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolveErr != nil {
		return "", p.resolveErr
	}
	p.resolved = append(p.resolved, imageURL)
	return "data:image/png;base64," + imageURL, nil
}
