package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLlama(t *testing.T, url, key string) *AnythingLLMClient {
	t.Helper()
	c := NewAnythingLLMClient(AnythingLLMConfig{BaseURL: url, APIKey: key, MaxAttempts: 3})
	c.retry.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestParseEndpoint(t *testing.T) {
	base, key := ParseEndpoint("http://localhost:3001/api/|brx-123", "")
	assert.Equal(t, "http://localhost:3001/api", base)
	assert.Equal(t, "brx-123", key)

	base, key = ParseEndpoint("http://host:3001|brx-ignored", "explicit")
	assert.Equal(t, "http://host:3001", base)
	assert.Equal(t, "explicit", key)

	base, _ = ParseEndpoint("", "")
	assert.Equal(t, DefaultLlamaURL, base)
}

func TestAnythingLLMRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/workspace/chatting/chat", r.URL.Path)
		assert.Equal(t, "dev-key", r.Header.Get("x-api-key"))
		var body workspaceChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "özetle\n\nMetin: metin", body.Message)
		assert.Equal(t, "chat", body.Mode)
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"textResponse": "kısa özet"}`))
	}))
	defer srv.Close()

	res := newTestLlama(t, srv.URL, "dev-key").GenerateText(context.Background(), "özetle", "metin")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "kısa özet", res.Content)
	assert.Equal(t, 3, res.Attempts)
}

func TestPromptWithBody(t *testing.T) {
	assert.Equal(t, "özetle", promptWithBody("özetle", ""))
	assert.Equal(t, "özetle\n\nMetin: içerik", promptWithBody("özetle", "içerik"))
}

func TestAnythingLLMExhaustsAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	res := newTestLlama(t, srv.URL, "").GenerateText(context.Background(), "p", "")
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Contains(t, res.Error, "API hatası: 502")
}

func TestAnythingLLMInvalidShapeNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"id": "x"}`))
	}))
	defer srv.Close()

	res := newTestLlama(t, srv.URL, "").GenerateText(context.Background(), "p", "b")
	assert.False(t, res.Success)
	assert.Equal(t, MsgInvalidResponse, res.Error)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestAnythingLLMBrowserKeyUsesBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer brx-abc", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"textResponse": "ok"}`))
	}))
	defer srv.Close()

	res := newTestLlama(t, srv.URL+"/|brx-abc", "").GenerateText(context.Background(), "p", "")
	assert.True(t, res.Success)
}

func TestAnythingLLMConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/auth", r.URL.Path)
		if r.Header.Get("x-api-key") == "good-key" {
			_, _ = w.Write([]byte(`{"authenticated": true}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "No valid api key found."}`))
	}))
	defer srv.Close()

	c := newTestLlama(t, srv.URL, "bad")
	assert.False(t, c.TestConnectivity(context.Background()))
	assert.True(t, c.Probe(context.Background(), srv.URL, "good-key"))

	require.NoError(t, c.UpdateAPIKey(context.Background(), "good-key"))
	_, key := c.Endpoint()
	assert.Equal(t, "good-key", key)
	assert.True(t, c.TestConnectivity(context.Background()))
}

func TestAnythingLLMVision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/openai/chat/completions", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, _ := json.Marshal(body["messages"])
		assert.Contains(t, string(raw), "data:image/png;base64,")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"llama",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"bir kedi"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	img := filepath.Join(t.TempDir(), "kedi.png")
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	require.NoError(t, os.WriteFile(img, png, 0o600))

	res := newTestLlama(t, srv.URL, "k").GenerateVision(context.Background(), "anlat", img)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "bir kedi", res.Content)
}

func TestAnythingLLMVisionMissingImage(t *testing.T) {
	res := newTestLlama(t, "http://127.0.0.1:1", "").GenerateVision(context.Background(), "p", "/yok/resim.png")
	assert.False(t, res.Success)
}
