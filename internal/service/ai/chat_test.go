package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/config"
	"metinanaliz/internal/models"
)

type fakeChatModel struct {
	seen   []*schema.Message
	reply  string
	chunks []string
	err    error
}

func (f *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.seen = in
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.seen = in
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

type stubClient struct {
	name   string
	prompt string
	result Result
}

func (s *stubClient) Name() string { return s.name }
func (s *stubClient) GenerateText(_ context.Context, prompt, body string) Result {
	s.prompt = prompt
	return s.result
}
func (s *stubClient) GenerateVision(context.Context, string, string) Result { return s.result }
func (s *stubClient) SupportsVision() bool                                { return false }
func (s *stubClient) TestConnectivity(context.Context) bool               { return true }
func (s *stubClient) UpdateAPIKey(context.Context, string) error          { return nil }

func history(n int) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		out = append(out, models.ChatMessage{Role: role, Content: string(rune('a' + i))})
	}
	return out
}

func TestChatSendsLastFiveTurns(t *testing.T) {
	fake := &fakeChatModel{reply: "merhaba"}
	var builtWith string
	svc := NewChatService(&config.Config{}, NewRegistry(), func(string) string { return "key-1" },
		WithModelFactory(func(_ context.Context, provider string, _ config.ProviderConfig, key string) (model.BaseChatModel, error) {
			builtWith = provider + ":" + key
			return fake, nil
		}))

	got, err := svc.Chat(context.Background(), "Gemini", history(8), "son soru")
	require.NoError(t, err)
	assert.Equal(t, "merhaba", got)
	assert.Equal(t, "gemini:key-1", builtWith)
	require.Len(t, fake.seen, 6)
	assert.Equal(t, "d", fake.seen[0].Content)
	assert.Equal(t, schema.Assistant, fake.seen[0].Role)
	assert.Equal(t, "son soru", fake.seen[5].Content)
	assert.Equal(t, schema.User, fake.seen[5].Role)
}

func TestChatRebuildsModelWhenKeyChanges(t *testing.T) {
	key := "k1"
	builds := 0
	svc := NewChatService(&config.Config{}, NewRegistry(), func(string) string { return key },
		WithModelFactory(func(context.Context, string, config.ProviderConfig, string) (model.BaseChatModel, error) {
			builds++
			return &fakeChatModel{reply: "x"}, nil
		}))
	for i := 0; i < 2; i++ {
		_, err := svc.Chat(context.Background(), "gemini", nil, "selam")
		require.NoError(t, err)
	}
	key = "k2"
	_, err := svc.Chat(context.Background(), "gemini", nil, "selam")
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestChatFallsBackToClient(t *testing.T) {
	stub := &stubClient{name: "llama", result: Result{Success: true, Content: "yanıt"}}
	svc := NewChatService(&config.Config{}, NewRegistry(stub), nil,
		WithModelFactory(func(context.Context, string, config.ProviderConfig, string) (model.BaseChatModel, error) {
			return nil, errors.New("no chat model")
		}))

	got, err := svc.Chat(context.Background(), "llama", []models.ChatMessage{
		{Role: models.RoleUser, Content: "selam"},
		{Role: models.RoleAssistant, Content: "merhaba"},
	}, "nasılsın")
	require.NoError(t, err)
	assert.Equal(t, "yanıt", got)
	assert.Equal(t, "Kullanıcı: selam\nGemini: merhaba\n\nKullanıcı: nasılsın\nGemini:", stub.prompt)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	svc := NewChatService(&config.Config{}, NewRegistry(), nil)
	_, err := svc.Chat(context.Background(), "gemini", nil, "  ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestChatUnknownProvider(t *testing.T) {
	svc := NewChatService(&config.Config{}, NewRegistry(), nil)
	_, err := svc.Chat(context.Background(), "mistral", nil, "selam")
	assert.True(t, apperr.Is(err, apperr.KindRemoteAPI))
}

func TestStreamChatAccumulates(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"Mer", "ha", "ba"}}
	svc := NewChatService(&config.Config{}, NewRegistry(), nil,
		WithModelFactory(func(context.Context, string, config.ProviderConfig, string) (model.BaseChatModel, error) {
			return fake, nil
		}))
	var seen []string
	full, err := svc.StreamChat(context.Background(), "openai", nil, "selam", func(s string) error {
		seen = append(seen, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Merhaba", full)
	assert.Equal(t, []string{"Mer", "Merha", "Merhaba"}, seen)
}

func TestChatModelClientGenerateText(t *testing.T) {
	fake := &fakeChatModel{reply: "cevap"}
	c := NewChatModelClient("openai", fake, ChatModelClientConfig{MaxAttempts: 1})
	res := c.GenerateText(context.Background(), "talimat", "gövde")
	require.True(t, res.Success)
	assert.Equal(t, "cevap", res.Content)
	assert.True(t, strings.HasSuffix(fake.seen[0].Content, "\n\ngövde"))

	fake.reply = ""
	res = c.GenerateText(context.Background(), "talimat", "")
	assert.False(t, res.Success)
	assert.Equal(t, MsgEmptyResponse, res.Error)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&stubClient{name: "llama"}, &stubClient{name: "Gemini"}, nil)
	assert.True(t, r.Supported("gemini"))
	assert.True(t, r.Supported("LLAMA"))
	assert.False(t, r.Supported("gpt"))
	assert.Equal(t, []string{"gemini", "llama"}, r.Names())
}
