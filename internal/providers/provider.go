// Package providers defines the contract between the batch relay and the
// external image-generation services it submits work to.
package providers

import (
	"context"
	"net/url"
)

// SubmitRequest captures one sub-job submission. Width/Height of zero let
// the provider pick its default size.
type SubmitRequest struct {
	Prompt        string
	SubjectURL    string
	ReferenceURLs []string
	// InlineImages holds pre-resolved data URIs for providers that cannot
	// fetch reference URLs themselves. Populated by the dispatcher once per
	// batch via ImageResolver.
	InlineImages []string
	Width        int
	Height       int
	CallbackURL  string
}

// CallbackEvent is the normalized form of a provider webhook payload.
type CallbackEvent struct {
	JobID     string
	Succeeded bool
	OutputURL string
	Error     string
}

// Provider submits generation jobs and interprets the webhooks they later
// deliver. Submit performs exactly one outbound call with no retry; the
// provider-issued job id is the only handle the relay keeps.
type Provider interface {
	Name() string
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	ParseCallback(body []byte) (*CallbackEvent, error)
}

// ImageResolver is implemented by providers whose submissions need reference
// images resolved to inline payloads up front. The dispatcher resolves once
// per batch and reuses the result across all submissions.
type ImageResolver interface {
	ResolveImage(ctx context.Context, imageURL string) (string, error)
}

// Registry maps provider names to adapters.
type Registry map[string]Provider

// CallbackURL builds the webhook address a provider will call back, with the
// record and run ids embedded as query parameters.
func CallbackURL(publicBaseURL, provider, recordID, runID string) string {
	q := url.Values{}
	q.Set("record_id", recordID)
	q.Set("run_id", runID)
	return publicBaseURL + "/webhooks/" + url.PathEscape(provider) + "?" + q.Encode()
}
