package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := Extraction("report.pdf", errors.New("bad xref"))
	wrapped := fmt.Errorf("process: %w", base)
	if KindOf(wrapped) != KindExtraction {
		t.Fatalf("expected extraction kind, got %s", KindOf(wrapped))
	}
	if !Is(wrapped, KindExtraction) {
		t.Fatalf("Is should match wrapped kind")
	}
	if got := wrapped.Error(); got != "process: report.pdf okunamadı: bad xref" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Fatalf("plain error should be unknown")
	}
	if Is(nil, KindUnknown) {
		t.Fatalf("nil must not match any kind")
	}
}

func TestMessageFallback(t *testing.T) {
	if got := Message(Validation("prompt is empty"), "x"); got != "prompt is empty" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message(errors.New("raw"), "generic failure"); got != "generic failure" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
