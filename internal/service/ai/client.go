package ai

import (
	"context"
	"errors"
)

// Messages returned to callers in Result.Error.
const (
	MsgEmptyResponse   = "API boş yanıt döndürdü"
	MsgInvalidResponse = "Geçersiz yanıt formatı"
	MsgMissingKey      = "API anahtarı ayarlanmamış"
)

var (
	// ErrVisionUnsupported is reported by clients without image input.
	ErrVisionUnsupported = errors.New("vision not supported by this model")
	// ErrEmptyResponse marks a well-formed reply without usable content.
	ErrEmptyResponse = errors.New(MsgEmptyResponse)
	// ErrInvalidResponse marks a reply in an unexpected shape.
	ErrInvalidResponse = errors.New(MsgInvalidResponse)
)

// Result is the outcome of one model call, after retries.
type Result struct {
	Success  bool   `json:"success"`
	Content  string `json:"content,omitempty"`
	Error    string `json:"message,omitempty"`
	Attempts int    `json:"-"`
}

func failed(msg string, attempts int) Result {
	return Result{Error: msg, Attempts: attempts}
}

// Client is a remote text model. Implementations never panic and report
// failures through Result.
type Client interface {
	Name() string
	// GenerateText sends prompt followed by body.
	GenerateText(ctx context.Context, prompt, body string) Result
	// GenerateVision describes the image at imagePath following prompt.
	GenerateVision(ctx context.Context, prompt, imagePath string) Result
	SupportsVision() bool
	TestConnectivity(ctx context.Context) bool
	// UpdateAPIKey validates key against the provider and switches to it.
	// The previous key stays active on failure.
	UpdateAPIKey(ctx context.Context, key string) error
}
