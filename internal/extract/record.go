package extract

import "time"

// SubmissionRecord is one detected, validated submission ready for delivery.
// Field names match the backend's submit contract.
type SubmissionRecord struct {
	Slug         string `json:"slug"`
	Code         string `json:"code"`
	Language     string `json:"language"`
	Timestamp    string `json:"timestamp"`
	ProblemTitle string `json:"problemTitle"`
}

// NewRecord assembles a record stamped with the current time.
func NewRecord(slug, title, language, code string) *SubmissionRecord {
	return &SubmissionRecord{
		Slug:         slug,
		Code:         code,
		Language:     language,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		ProblemTitle: title,
	}
}
