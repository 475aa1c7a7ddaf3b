package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/logger"
)

const (
	GeminiName         = "gemini"
	DefaultGeminiModel = "gemini-1.5-flash"
	// MinAPIKeyLength rejects obviously malformed keys before any network call.
	MinAPIKeyLength = 10
	keyCheckPrompt  = "Merhaba"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// GeminiClient talks to the hosted Gemini API through the genai SDK.
type GeminiClient struct {
	mu     sync.RWMutex
	cfg    GeminiConfig
	client *genai.Client
	retry  retrier
	log    *logrus.Entry
}

// NewGeminiClient builds the client. An empty key is allowed: calls fail
// until UpdateAPIKey succeeds.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	g := &GeminiClient{
		cfg: cfg,
		log: logger.For("ai").WithField("provider", GeminiName),
	}
	g.retry = newRetrier(cfg.MaxAttempts, cfg.RetryDelay, g.log)
	if cfg.APIKey != "" {
		client, err := newGenaiClient(ctx, cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		g.client = client
	}
	return g, nil
}

func newGenaiClient(ctx context.Context, key, baseURL string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}
	return client, nil
}

func (g *GeminiClient) Name() string { return GeminiName }

func (g *GeminiClient) SupportsVision() bool { return false }

// APIKey returns the key currently in use.
func (g *GeminiClient) APIKey() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg.APIKey
}

func (g *GeminiClient) current() (*genai.Client, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.client, g.cfg.Model
}

func (g *GeminiClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, g.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (g *GeminiClient) GenerateText(ctx context.Context, prompt, body string) Result {
	client, model := g.current()
	if client == nil {
		return failed("Gemini "+MsgMissingKey, 0)
	}
	text := promptWithBody(prompt, body)
	return g.retry.run(ctx, func(ctx context.Context) (string, error) {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		return generate(ctx, client, model, text)
	})
}

func generate(ctx context.Context, client *genai.Client, model, text string) (string, error) {
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(text), nil)
	if err != nil {
		return "", fmt.Errorf("API çağrısı sırasında hata: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", permanent(ErrEmptyResponse)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", permanent(ErrEmptyResponse)
	}
	return b.String(), nil
}

func (g *GeminiClient) GenerateVision(context.Context, string, string) Result {
	return failed(ErrVisionUnsupported.Error(), 0)
}

// TestConnectivity fetches the model metadata with the current key.
func (g *GeminiClient) TestConnectivity(ctx context.Context) bool {
	client, model := g.current()
	key := g.APIKey()
	if client == nil {
		g.log.Warn("connectivity check skipped: api key not set")
		return false
	}
	if len(key) < MinAPIKeyLength {
		g.log.Warn("api key looks malformed: too short")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := client.Models.Get(ctx, model, nil); err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
				g.log.WithField("status", apiErr.Code).Warn("api key rejected: check the key format")
				return false
			}
		}
		g.log.WithError(err).Warn("connectivity check failed")
		return false
	}
	return true
}

// UpdateAPIKey checks key with a short prompt and switches to it on success.
func (g *GeminiClient) UpdateAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if len(key) < MinAPIKeyLength {
		return apperr.Validation("Geçersiz API anahtarı formatı")
	}
	client, err := newGenaiClient(ctx, key, g.cfg.BaseURL)
	if err != nil {
		return apperr.Validationf("API anahtarı geçersiz: %v", err)
	}
	_, model := g.current()
	checkCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	if _, err := generate(checkCtx, client, model, keyCheckPrompt); err != nil {
		return apperr.Validationf("API anahtarı geçersiz: %v", err)
	}
	g.mu.Lock()
	g.client = client
	g.cfg.APIKey = key
	g.mu.Unlock()
	g.log.Info("api key updated")
	return nil
}

// RestoreAPIKey switches back to key without checking it against the
// provider. An empty key leaves the client unconfigured.
func (g *GeminiClient) RestoreAPIKey(ctx context.Context, key string) error {
	var client *genai.Client
	if key != "" {
		var err error
		if client, err = newGenaiClient(ctx, key, g.cfg.BaseURL); err != nil {
			return err
		}
	}
	g.mu.Lock()
	g.client = client
	g.cfg.APIKey = key
	g.mu.Unlock()
	return nil
}
