package domain

import (
	"testing"
	"time"
)

func TestBatchCompleteInvariant(t *testing.T) {
	cases := []struct {
		name      string
		submitted []string
		seen      []string
		want      bool
	}{
		{"no submissions", nil, nil, false},
		{"partial", []string{"a", "b"}, []string{"a"}, false},
		{"all seen", []string{"a", "b"}, []string{"a", "b"}, true},
		{"duplicates do not inflate", []string{"a", "b"}, []string{"a", "a"}, false},
		{"seen exceeds submitted", []string{"a"}, []string{"a", "b"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &BatchRecord{
				SubmittedJobIDs: tc.submitted,
				SeenJobIDs:      NewIDSet(tc.seen...),
			}
			if got := rec.Complete(); got != tc.want {
				t.Fatalf("Complete = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBatchFromFieldsRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec := &BatchRecord{
		Prompt:        "a lighthouse at dusk",
		SubjectURL:    "https://cdn.example.com/subject.png",
		ReferenceURLs: []string{"https://cdn.example.com/r1.png", "https://cdn.example.com/r2.png"},
		Size:          "1024x768",
		Provider:      "wavespeed",
		RunID:         "run-123",
	}
	fields := rec.CreateFields(created)
	fields[FieldSubmittedIDs] = EncodeLines([]string{"a", "b"})
	fields[FieldSeenIDs] = NewIDSet("a").Encode()
	fields[FieldStatus] = string(BatchStatusProcessing)
	fields[FieldNote] = "1 of 2 received"

	got := BatchFromFields("rec-1", fields)
	if got.ID != "rec-1" {
		t.Fatalf("ID = %q", got.ID)
	}
	if got.Prompt != rec.Prompt || got.Provider != rec.Provider || got.RunID != rec.RunID {
		t.Fatalf("scalar fields mismatch: %+v", got)
	}
	if len(got.ReferenceURLs) != 2 {
		t.Fatalf("ReferenceURLs = %v", got.ReferenceURLs)
	}
	if got.Status != BatchStatusProcessing {
		t.Fatalf("Status = %q", got.Status)
	}
	if len(got.SubmittedJobIDs) != 2 || got.SeenJobIDs.Len() != 1 {
		t.Fatalf("id lists mismatch: submitted %v seen %v", got.SubmittedJobIDs, got.SeenJobIDs.Values())
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if !got.CompletedAt.IsZero() {
		t.Fatalf("CompletedAt should be zero")
	}
}

func TestEncodeLinesFlattensEmbeddedNewlines(t *testing.T) {
	encoded := EncodeLines([]string{"first\nfailure", "", "second"})
	decoded := DecodeLines(encoded)
	if len(decoded) != 2 {
		t.Fatalf("decoded = %v, want 2 entries", decoded)
	}
	if decoded[0] != "first failure" {
		t.Fatalf("decoded[0] = %q", decoded[0])
	}
}
