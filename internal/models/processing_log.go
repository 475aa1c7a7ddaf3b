package models

import "time"

// ProcessingLog records one processing request.
type ProcessingLog struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Files      string    `json:"files"`
	PromptType string    `json:"prompt_type"`
	Success    bool      `json:"success"`
	ResultFile string    `json:"result_file"`
	Notes      string    `json:"notes"`
	Tags       []string  `json:"tags"`
	Starred    bool      `json:"starred"`
}
