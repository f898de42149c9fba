package domain

import (
	"strings"
	"time"
)

// BatchStatus enumerates batch lifecycle states.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// Record store column names. The store is a tabular datastore; multi-value
// columns hold one entry per line (see EncodeLines).
const (
	FieldPrompt        = "Prompt"
	FieldSubjectURL    = "Subject URL"
	FieldReferenceURLs = "Reference URLs"
	FieldSize          = "Size"
	FieldProvider      = "Provider"
	FieldRunID         = "Run ID"
	FieldStatus        = "Status"
	FieldSubmittedIDs  = "Submitted Job IDs"
	FieldFailures      = "Failures"
	FieldOutputURLs    = "Output URLs"
	FieldSeenIDs       = "Seen Job IDs"
	FieldNote          = "Note"
	FieldCreatedAt     = "Created At"
	FieldUpdatedAt     = "Updated At"
	FieldCompletedAt   = "Completed At"
)

// BatchRecord is the single external record tracking one user-submitted
// batch. It is the relay's only persistent state and lives entirely in the
// record store; in-process copies are snapshots.
type BatchRecord struct {
	ID              string
	Prompt          string
	SubjectURL      string
	ReferenceURLs   []string
	Size            string
	Provider        string
	RunID           string
	Status          BatchStatus
	SubmittedJobIDs []string
	Failures        []string
	OutputURLs      []string
	SeenJobIDs      *IDSet
	Note            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     time.Time
}

// Complete reports whether every submitted sub-job has reported back: the
// count of distinct seen ids has reached the submitted count, and at least
// one sub-job was submitted.
func (b *BatchRecord) Complete() bool {
	return len(b.SubmittedJobIDs) > 0 && b.SeenJobIDs.Len() >= len(b.SubmittedJobIDs)
}

// CreateFields renders the initial column values for record creation.
func (b *BatchRecord) CreateFields(now time.Time) map[string]any {
	return map[string]any{
		FieldPrompt:        b.Prompt,
		FieldSubjectURL:    b.SubjectURL,
		FieldReferenceURLs: EncodeLines(b.ReferenceURLs),
		FieldSize:          b.Size,
		FieldProvider:      b.Provider,
		FieldRunID:         b.RunID,
		FieldStatus:        string(BatchStatusPending),
		FieldCreatedAt:     now.UTC().Format(time.RFC3339),
	}
}

// BatchFromFields rebuilds a record snapshot from store column values.
// Unknown or missing columns decode to zero values.
func BatchFromFields(id string, fields map[string]any) *BatchRecord {
	return &BatchRecord{
		ID:              id,
		Prompt:          fieldString(fields, FieldPrompt),
		SubjectURL:      fieldString(fields, FieldSubjectURL),
		ReferenceURLs:   DecodeLines(fieldString(fields, FieldReferenceURLs)),
		Size:            fieldString(fields, FieldSize),
		Provider:        fieldString(fields, FieldProvider),
		RunID:           fieldString(fields, FieldRunID),
		Status:          BatchStatus(fieldString(fields, FieldStatus)),
		SubmittedJobIDs: DecodeLines(fieldString(fields, FieldSubmittedIDs)),
		Failures:        DecodeLines(fieldString(fields, FieldFailures)),
		OutputURLs:      DecodeLines(fieldString(fields, FieldOutputURLs)),
		SeenJobIDs:      DecodeIDSet(fieldString(fields, FieldSeenIDs)),
		Note:            fieldString(fields, FieldNote),
		CreatedAt:       fieldTime(fields, FieldCreatedAt),
		UpdatedAt:       fieldTime(fields, FieldUpdatedAt),
		CompletedAt:     fieldTime(fields, FieldCompletedAt),
	}
}

// EncodeLines serializes a multi-value column, one entry per line. Entries
// containing newlines are flattened to spaces so the column stays parseable.
func EncodeLines(values []string) string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(strings.ReplaceAll(v, "\n", " "))
		if v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return strings.Join(cleaned, "\n")
}

// DecodeLines parses a line-per-entry column value.
func DecodeLines(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			values = append(values, line)
		}
	}
	return values
}

func fieldString(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldTime(fields map[string]any, key string) time.Time {
	raw := fieldString(fields, key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
