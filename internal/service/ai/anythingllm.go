package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/logger"
)

const (
	LlamaName             = "llama"
	DefaultLlamaURL       = "http://localhost:3001"
	DefaultLlamaWorkspace = "chatting"
	DefaultLlamaModel     = "llama"

	browserKeyPrefix  = "brx-"
	probeTimeout      = 5 * time.Second
	visionSystemText  = "Sen görüntüleri analiz edebilen yardımcı bir asistansın."
	invalidKeyMessage = "No valid api key found"
	errorBodyLimit    = 500
)

type AnythingLLMConfig struct {
	BaseURL     string
	APIKey      string
	Workspace   string
	Model       string
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// AnythingLLMClient talks to a self-hosted AnythingLLM instance.
type AnythingLLMClient struct {
	mu        sync.RWMutex
	baseURL   string
	apiKey    string
	workspace string
	model     string
	timeout   time.Duration
	http      *http.Client
	retry     retrier
	log       *logrus.Entry
}

// ParseEndpoint splits the "url|key" form. A key embedded in the URL is used
// only when key is empty. The trailing slash is dropped.
func ParseEndpoint(rawURL, key string) (string, string) {
	base := strings.TrimSpace(rawURL)
	if i := strings.Index(base, "|"); i >= 0 {
		if key == "" {
			key = strings.TrimSpace(base[i+1:])
		}
		base = base[:i]
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultLlamaURL
	}
	return base, strings.TrimSpace(key)
}

func NewAnythingLLMClient(cfg AnythingLLMConfig) *AnythingLLMClient {
	base, key := ParseEndpoint(cfg.BaseURL, cfg.APIKey)
	if cfg.Workspace == "" {
		cfg.Workspace = DefaultLlamaWorkspace
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLlamaModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &AnythingLLMClient{
		baseURL:   base,
		apiKey:    key,
		workspace: cfg.Workspace,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		http:      httpClient,
		log:       logger.For("ai").WithField("provider", LlamaName),
	}
	c.retry = newRetrier(cfg.MaxAttempts, cfg.RetryDelay, c.log)
	return c
}

func (c *AnythingLLMClient) Name() string { return LlamaName }

func (c *AnythingLLMClient) SupportsVision() bool { return true }

// Endpoint returns the base URL and key in use.
func (c *AnythingLLMClient) Endpoint() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL, c.apiKey
}

// Configure swaps the endpoint and key.
func (c *AnythingLLMClient) Configure(rawURL, key string) {
	base, key := ParseEndpoint(rawURL, key)
	c.mu.Lock()
	c.baseURL, c.apiKey = base, key
	c.mu.Unlock()
	c.log.WithField("base_url", base).Info("endpoint configured")
}

// UpdateAPIKey probes the instance with key and keeps it when accepted.
func (c *AnythingLLMClient) UpdateAPIKey(ctx context.Context, key string) error {
	base, _ := c.Endpoint()
	if !c.probe(ctx, base, strings.TrimSpace(key)) {
		return apperr.Validation("AnythingLLM API anahtarı doğrulanamadı")
	}
	c.Configure(base, key)
	return nil
}

func setAuth(req *http.Request, key string) {
	if key == "" {
		return
	}
	if strings.HasPrefix(key, browserKeyPrefix) {
		req.Header.Set("Authorization", "Bearer "+key)
		return
	}
	req.Header.Set("x-api-key", key)
}

type workspaceChatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

type workspaceChatResponse struct {
	TextResponse *string `json:"textResponse"`
}

// promptWithBody appends the document text under a "Metin:" label. Every
// backend sends the same layout.
func promptWithBody(prompt, body string) string {
	if body == "" {
		return prompt
	}
	return prompt + "\n\nMetin: " + body
}

func (c *AnythingLLMClient) GenerateText(ctx context.Context, prompt, body string) Result {
	payload, err := json.Marshal(workspaceChatRequest{Message: promptWithBody(prompt, body), Mode: "chat"})
	if err != nil {
		return failed(err.Error(), 0)
	}
	base, key := c.Endpoint()
	endpoint := fmt.Sprintf("%s/v1/workspace/%s/chat", base, c.workspace)
	return c.retry.run(ctx, func(ctx context.Context) (string, error) {
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		setAuth(req, key)
		resp, err := c.http.Do(req)
		if err != nil {
			return "", fmt.Errorf("API çağrısı sırasında hata: %w", err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", &statusError{Code: resp.StatusCode, Body: truncateBody(data)}
		}
		var out workspaceChatResponse
		if err := json.Unmarshal(data, &out); err != nil || out.TextResponse == nil {
			c.log.WithField("body", truncateBody(data)).Warn("unexpected response shape")
			return "", permanent(ErrInvalidResponse)
		}
		return *out.TextResponse, nil
	})
}

func truncateBody(data []byte) string {
	s := string(data)
	if len(s) > errorBodyLimit {
		return s[:errorBodyLimit]
	}
	return s
}

// GenerateVision sends the image as a data URL to the OpenAI compatible
// endpoint of the instance. It is attempted once.
func (c *AnythingLLMClient) GenerateVision(ctx context.Context, prompt, imagePath string) Result {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return failed(fmt.Sprintf("Vision API çağrısı sırasında hata: %v", err), 0)
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimetype.Detect(raw).String(), base64.StdEncoding.EncodeToString(raw))

	base, key := c.Endpoint()
	temperature := float32(0.7)
	maxTokens := 1024
	cfg := &openai.ChatModelConfig{
		BaseURL:     base + "/v1/openai",
		APIKey:      key,
		Model:       c.model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		HTTPClient:  c.http,
	}
	if c.timeout > 0 {
		cfg.Timeout = 2 * c.timeout
	}
	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return failed(fmt.Sprintf("Vision API hatası: %v", err), 0)
	}
	once := newRetrier(1, 0, c.log)
	return once.run(ctx, func(ctx context.Context) (string, error) {
		msg, err := chatModel.Generate(ctx, []*schema.Message{
			schema.SystemMessage(visionSystemText),
			{
				Role: schema.User,
				MultiContent: []schema.ChatMessagePart{
					{Type: schema.ChatMessagePartTypeText, Text: prompt},
					{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: dataURL}},
				},
			},
		})
		if err != nil {
			return "", fmt.Errorf("Vision API hatası: %w", err)
		}
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			return "", permanent(ErrInvalidResponse)
		}
		return msg.Content, nil
	})
}

// TestConnectivity calls the auth endpoint with the current credentials.
func (c *AnythingLLMClient) TestConnectivity(ctx context.Context) bool {
	base, key := c.Endpoint()
	return c.probe(ctx, base, key)
}

// Probe checks arbitrary credentials without changing the client.
func (c *AnythingLLMClient) Probe(ctx context.Context, rawURL, key string) bool {
	base, key := ParseEndpoint(rawURL, key)
	return c.probe(ctx, base, key)
}

func (c *AnythingLLMClient) probe(ctx context.Context, base, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/auth", nil)
	if err != nil {
		c.log.WithError(err).Warn("build auth probe")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, key)
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("auth probe failed")
		return false
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode == http.StatusForbidden && strings.Contains(string(data), invalidKeyMessage) {
		c.log.Warn("api key rejected: wrong key format")
		return false
	}
	return resp.StatusCode == http.StatusOK
}
