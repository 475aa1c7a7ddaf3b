// Package extract turns uploaded files into ordered text chunks.
package extract

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/sirupsen/logrus"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/logger"
	"metinanaliz/internal/models"
)

const (
	DefaultPDFChunkPages = 5
	DefaultOCRLanguage   = "tur"
)

type Config struct {
	PDFChunkPages int
	OCRLanguage   string
	Tesseract     string
}

type Extractor struct {
	cfg    Config
	runner Runner
	loader *file.FileLoader
	log    *logrus.Entry
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for OCR.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, opts ...Option) (*Extractor, error) {
	if cfg.PDFChunkPages <= 0 {
		cfg.PDFChunkPages = DefaultPDFChunkPages
	}
	if cfg.OCRLanguage == "" {
		cfg.OCRLanguage = DefaultOCRLanguage
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	ctx := context.Background()
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init file parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	e := &Extractor{
		cfg:    cfg,
		runner: execRunner{},
		loader: loader,
		log:    logger.For("extract"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract returns the text chunks of the file at path. With vision set, an
// image is not read at all and its path is returned as the only chunk.
// Failures are apperr extraction errors naming the file.
func (e *Extractor) Extract(ctx context.Context, path string, category models.FileCategory, vision bool) ([]string, error) {
	name := filepath.Base(path)
	switch category {
	case models.CategoryPDF:
		chunks, err := e.extractPDF(path)
		if err != nil {
			return nil, apperr.Extraction(name, err)
		}
		return chunks, nil
	case models.CategoryImage:
		if vision {
			return []string{path}, nil
		}
		text, err := e.ocrImage(ctx, path)
		if err != nil {
			return nil, apperr.Extraction(name, fmt.Errorf("ocr: %w", err))
		}
		if text == "" {
			return nil, nil
		}
		return []string{text}, nil
	case models.CategoryText:
		text, err := e.readText(ctx, path)
		if err != nil {
			return nil, apperr.Extraction(name, err)
		}
		return nonBlank(text), nil
	case models.CategoryWord:
		text, err := readDocx(path)
		if err != nil {
			return nil, apperr.Extraction(name, err)
		}
		return nonBlank(text), nil
	case models.CategoryJSON:
		text, err := e.readJSON(ctx, path)
		if err != nil {
			return nil, apperr.Extraction(name, err)
		}
		return []string{text}, nil
	default:
		return nil, apperr.Extraction(name, fmt.Errorf("unsupported category %q", category))
	}
}
