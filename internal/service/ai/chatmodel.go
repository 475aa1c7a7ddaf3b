package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/config"
	"metinanaliz/internal/logger"
)

const (
	OpenAIName = "openai"
	ClaudeName = "claude"

	claudeMaxTokens = 3000
)

// NewChatModel builds the eino chat model for provider. The llama provider
// goes through the OpenAI compatible endpoint of AnythingLLM.
func NewChatModel(ctx context.Context, provider string, prov config.ProviderConfig, key string) (model.BaseChatModel, error) {
	if key == "" {
		key = prov.APIKey
	}
	switch strings.ToLower(provider) {
	case OpenAIName:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: prov.BaseURL,
			Model:   prov.Model,
			APIKey:  key,
		})
	case LlamaName:
		base, key := ParseEndpoint(prov.BaseURL, key)
		modelName := prov.Model
		if modelName == "" {
			modelName = DefaultLlamaModel
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: base + "/v1/openai",
			Model:   modelName,
			APIKey:  key,
		})
	case GeminiName:
		if key == "" {
			return nil, apperr.Validation("Gemini " + MsgMissingKey)
		}
		client, err := newGenaiClient(ctx, key, prov.BaseURL)
		if err != nil {
			return nil, err
		}
		modelName := prov.Model
		if modelName == "" {
			modelName = DefaultGeminiModel
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case ClaudeName:
		var baseURLPtr *string
		if prov.BaseURL != "" {
			baseURLPtr = &prov.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    key,
			Model:     prov.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: claudeMaxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

// ChatModelClient adapts an eino chat model to Client, so configured OpenAI
// or Claude providers can process documents too.
type ChatModelClient struct {
	name    string
	model   model.BaseChatModel
	retry   retrier
	timeout time.Duration
	log     *logrus.Entry
}

type ChatModelClientConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

func NewChatModelClient(name string, m model.BaseChatModel, cfg ChatModelClientConfig) *ChatModelClient {
	log := logger.For("ai").WithField("provider", name)
	return &ChatModelClient{
		name:    name,
		model:   m,
		retry:   newRetrier(cfg.MaxAttempts, cfg.RetryDelay, log),
		timeout: cfg.Timeout,
		log:     log,
	}
}

func (c *ChatModelClient) Name() string { return c.name }

func (c *ChatModelClient) SupportsVision() bool { return false }

func (c *ChatModelClient) GenerateText(ctx context.Context, prompt, body string) Result {
	text := prompt
	if body != "" {
		text = prompt + "\n\n" + body
	}
	return c.retry.run(ctx, func(ctx context.Context) (string, error) {
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		msg, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(text)})
		if err != nil {
			return "", fmt.Errorf("API çağrısı sırasında hata: %w", err)
		}
		if msg == nil || msg.Content == "" {
			return "", permanent(ErrEmptyResponse)
		}
		return msg.Content, nil
	})
}

func (c *ChatModelClient) GenerateVision(context.Context, string, string) Result {
	return failed(ErrVisionUnsupported.Error(), 0)
}

// TestConnectivity sends a one word prompt without retries.
func (c *ChatModelClient) TestConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(keyCheckPrompt)}); err != nil {
		c.log.WithError(err).Warn("connectivity check failed")
		return false
	}
	return true
}

func (c *ChatModelClient) UpdateAPIKey(context.Context, string) error {
	return apperr.Validationf("%s anahtarı yapılandırma dosyasından değiştirilir", c.name)
}
