package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/document"
	"golang.org/x/text/encoding/charmap"
)

var errInvalidJSON = errors.New("invalid json")

// readText loads the file through the document loader and decodes it as
// UTF-8, falling back to ISO-8859-1.
func (e *Extractor) readText(ctx context.Context, path string) (string, error) {
	docs, err := e.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("load file: %w", err)
	}
	var raw []byte
	for _, doc := range docs {
		raw = append(raw, doc.Content...)
	}
	return decodeText(raw)
}

func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return strings.TrimPrefix(string(raw), "\ufeff"), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}

// readJSON returns the document re-serialized without insignificant
// whitespace; key order and non-ASCII text are kept.
func (e *Extractor) readJSON(ctx context.Context, path string) (string, error) {
	text, err := e.readText(ctx, path)
	if err != nil {
		return "", err
	}
	return compactJSON(text)
}

func compactJSON(text string) (string, error) {
	if !json.Valid([]byte(text)) {
		return "", errInvalidJSON
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return "", fmt.Errorf("compact json: %w", err)
	}
	return buf.String(), nil
}

func nonBlank(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []string{text}
}
