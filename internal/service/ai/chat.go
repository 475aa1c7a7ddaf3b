package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/config"
	"metinanaliz/internal/logger"
	"metinanaliz/internal/models"
)

// ChatHistoryTurns is how many previous turns are sent with a chat message.
const ChatHistoryTurns = 5

// ModelFactory builds a chat model for a provider with the given key.
type ModelFactory func(ctx context.Context, provider string, prov config.ProviderConfig, key string) (model.BaseChatModel, error)

// KeySource returns the key currently configured for provider.
type KeySource func(provider string) string

// ChatService answers chat turns through eino chat models. Providers without
// a chat model fall back to the registry client with a transcript prompt.
type ChatService struct {
	cfg      *config.Config
	keys     KeySource
	factory  ModelFactory
	registry *Registry

	mu     sync.Mutex
	cached map[string]cachedModel
	log    *logrus.Entry
}

type cachedModel struct {
	key   string
	model model.BaseChatModel
}

type ChatOption func(*ChatService)

// WithModelFactory replaces NewChatModel.
func WithModelFactory(f ModelFactory) ChatOption {
	return func(s *ChatService) { s.factory = f }
}

func NewChatService(cfg *config.Config, registry *Registry, keys KeySource, opts ...ChatOption) *ChatService {
	s := &ChatService{
		cfg:      cfg,
		keys:     keys,
		factory:  NewChatModel,
		registry: registry,
		cached:   make(map[string]cachedModel),
		log:      logger.For("chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// chatModel returns the cached model for provider, rebuilding it when the
// key changed since it was built.
func (s *ChatService) chatModel(ctx context.Context, provider string) (model.BaseChatModel, error) {
	key := ""
	if s.keys != nil {
		key = s.keys(provider)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cached[provider]; ok && c.key == key {
		return c.model, nil
	}
	m, err := s.factory(ctx, provider, s.cfg.Provider(provider), key)
	if err != nil {
		return nil, err
	}
	s.cached[provider] = cachedModel{key: key, model: m}
	return m, nil
}

func lastTurns(history []models.ChatMessage) []models.ChatMessage {
	if len(history) > ChatHistoryTurns {
		return history[len(history)-ChatHistoryTurns:]
	}
	return history
}

func convertMessages(history []models.ChatMessage, message string) []*schema.Message {
	turns := lastTurns(history)
	messages := make([]*schema.Message, 0, len(turns)+1)
	for _, msg := range turns {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{Role: role, Content: msg.Content})
	}
	return append(messages, schema.UserMessage(message))
}

// TranscriptPrompt renders history and message as a single prompt for models
// without multi-turn input.
func TranscriptPrompt(history []models.ChatMessage, message string) string {
	var b strings.Builder
	for _, msg := range lastTurns(history) {
		if msg.Role == models.RoleUser {
			fmt.Fprintf(&b, "Kullanıcı: %s\n", msg.Content)
		} else {
			fmt.Fprintf(&b, "Gemini: %s\n", msg.Content)
		}
	}
	fmt.Fprintf(&b, "\nKullanıcı: %s\nGemini:", message)
	return b.String()
}

// Chat answers message given the previous turns.
func (s *ChatService) Chat(ctx context.Context, provider string, history []models.ChatMessage, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperr.Validation("Mesaj boş olamaz")
	}
	provider = strings.ToLower(provider)
	m, err := s.chatModel(ctx, provider)
	if err != nil {
		return s.fallback(ctx, provider, history, message, err)
	}
	resp, err := m.Generate(ctx, convertMessages(history, message))
	if err != nil {
		return "", apperr.RemoteAPI("Mesaj işlenirken hata oluştu", err)
	}
	if resp == nil || resp.Content == "" {
		return "", apperr.RemoteAPI(MsgEmptyResponse, nil)
	}
	return resp.Content, nil
}

func (s *ChatService) fallback(ctx context.Context, provider string, history []models.ChatMessage, message string, cause error) (string, error) {
	client, ok := s.registry.Get(provider)
	if !ok {
		return "", apperr.RemoteAPI("Sohbet modeli hazırlanamadı", cause)
	}
	s.log.WithError(cause).WithField("provider", provider).Debug("chat model unavailable, using client")
	res := client.GenerateText(ctx, TranscriptPrompt(history, message), "")
	if !res.Success {
		return "", apperr.RemoteAPI(res.Error, nil)
	}
	return res.Content, nil
}

// StreamChat streams the answer, calling onChunk with the text received so
// far after each chunk. It returns the full answer.
func (s *ChatService) StreamChat(ctx context.Context, provider string, history []models.ChatMessage, message string, onChunk func(string) error) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperr.Validation("Mesaj boş olamaz")
	}
	provider = strings.ToLower(provider)
	m, err := s.chatModel(ctx, provider)
	if err != nil {
		full, err := s.fallback(ctx, provider, history, message, err)
		if err != nil {
			return "", err
		}
		if onChunk != nil {
			if err := onChunk(full); err != nil {
				return "", err
			}
		}
		return full, nil
	}
	reader, err := m.Stream(ctx, convertMessages(history, message))
	if err != nil {
		return "", apperr.RemoteAPI("Mesaj işlenirken hata oluştu", err)
	}
	defer reader.Close()

	var full strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return full.String(), apperr.RemoteAPI("Yanıt akışı kesildi", err)
		}
		full.WriteString(chunk.Content)
		if onChunk != nil {
			if err := onChunk(full.String()); err != nil {
				return full.String(), err
			}
		}
	}
	return full.String(), nil
}
