package processing

import (
	"context"

	"metinanaliz/internal/models"
	"metinanaliz/internal/output"
)

// Mode selects how files are sent to the model.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeCombined Mode = "combined"
	ModeSeparate Mode = "separate"
)

// combineKeywords switch auto mode to combined when found in the prompt.
var combineKeywords = []string{"blog", "makale", "yazı", "kompozisyon", "hikaye", "deneme"}

// Request is one processing invocation.
type Request struct {
	Files        []models.UploadedFile
	PromptType   string
	Topic        string
	CustomPrompt string
	OutputFormat string
	Mode         Mode
	Model        string
	// IsCustomType marks PromptType as the name of a stored prompt type whose
	// text is in CustomPrompt.
	IsCustomType bool
	// RequestID keys progress snapshots; empty disables progress.
	RequestID string
}

// Message is a user-facing note collected while processing.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	msgInfo    = "info"
	msgSuccess = "success"
	msgWarning = "warning"
	msgError   = "error"
)

// Outcome is returned for every request that did not fail outright. Result
// is nil when nothing was produced.
type Outcome struct {
	Result        models.ProcessingResult
	Messages      []Message
	Mode          Mode
	LogID         int64
	SavedResultID int64
}

// Extractor turns a stored upload into text chunks.
type Extractor interface {
	Extract(ctx context.Context, path string, category models.FileCategory, vision bool) ([]string, error)
}

// PromptBuilder renders the built-in prompt templates.
type PromptBuilder interface {
	Build(promptType models.PromptType, topic, custom string) (string, error)
}

// ResultWriter stores result files and returns their names.
type ResultWriter interface {
	WriteText(content string, format output.Format) (string, error)
	WriteQA(pairs []models.QAPair) (string, error)
}

// Recorder persists the processing history.
type Recorder interface {
	LogProcessing(ctx context.Context, files []string, promptType string, success bool, resultFile string) (int64, error)
	SaveResult(ctx context.Context, r models.SavedResult, tags []string) (int64, bool, error)
	Backup(ctx context.Context, dir string, keep int) (string, error)
}
