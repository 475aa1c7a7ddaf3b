package ai

import (
	"context"
	"testing"

	"metinanaliz/internal/apperr"
)

func TestGeminiWithoutKey(t *testing.T) {
	g, err := NewGeminiClient(context.Background(), GeminiConfig{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	res := g.GenerateText(context.Background(), "p", "b")
	if res.Success || res.Attempts != 0 {
		t.Fatalf("expected immediate failure, got %+v", res)
	}
	if g.TestConnectivity(context.Background()) {
		t.Fatalf("connectivity must fail without a key")
	}
	if g.SupportsVision() {
		t.Fatalf("hosted client must not claim vision")
	}
	if res := g.GenerateVision(context.Background(), "p", "x.png"); res.Success {
		t.Fatalf("vision must fail")
	}
}

func TestGeminiRejectsShortKey(t *testing.T) {
	g, err := NewGeminiClient(context.Background(), GeminiConfig{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	err = g.UpdateAPIKey(context.Background(), "short")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if g.APIKey() != "" {
		t.Fatalf("key must not change on failure")
	}
}

func TestImageGeneratorValidation(t *testing.T) {
	g, err := NewGeminiClient(context.Background(), GeminiConfig{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	gen := NewImageGenerator(g, "")
	cases := []struct {
		prompt string
		count  int
	}{
		{"", 1},
		{"kedi", 0},
		{"kedi", 5},
		{"kedi", 2},
	}
	for _, tc := range cases {
		if _, err := gen.Generate(context.Background(), tc.prompt, tc.count, "1:1"); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("Generate(%q, %d) expected validation error, got %v", tc.prompt, tc.count, err)
		}
	}
}

func TestGeminiRestoreAPIKey(t *testing.T) {
	g, err := NewGeminiClient(context.Background(), GeminiConfig{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := g.RestoreAPIKey(context.Background(), "AIzaSyRestored123"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if g.APIKey() != "AIzaSyRestored123" {
		t.Fatalf("unexpected key %q", g.APIKey())
	}
	if err := g.RestoreAPIKey(context.Background(), ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if g.APIKey() != "" {
		t.Fatalf("key not cleared")
	}
	if res := g.GenerateText(context.Background(), "p", ""); res.Success || res.Attempts != 0 {
		t.Fatalf("cleared client must fail without calling out, got %+v", res)
	}
}
