package models

import "time"

type SavedResult struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ResultType      string    `json:"result_type"`
	Content         string    `json:"content"`
	SourceFile      string    `json:"source_file"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ProcessingLogID int64     `json:"processing_log_id,omitempty"`
	Tags            []string  `json:"tags"`
}

// SavedResultFilter narrows ListSavedResults. Zero values mean "any".
type SavedResultFilter struct {
	Type  string
	Query string
	Limit int
}
