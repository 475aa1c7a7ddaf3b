package models

// FileCategory is the semantic kind of an uploaded file.
type FileCategory string

const (
	CategoryPDF   FileCategory = "pdf"
	CategoryImage FileCategory = "image"
	CategoryText  FileCategory = "text"
	CategoryWord  FileCategory = "word"
	CategoryJSON  FileCategory = "json"
)

// UploadedFile is a stored upload; read-only once written.
type UploadedFile struct {
	Name     string       `json:"name"`
	Path     string       `json:"-"`
	Category FileCategory `json:"category"`
	Size     int64        `json:"size"`
	MimeType string       `json:"mime_type"`
}
