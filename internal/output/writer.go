// Package output writes processing results and generated images to the
// results directory.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/logger"
	"metinanaliz/internal/models"
)

// Format is the requested file type of a text result.
type Format string

const (
	FormatTXT  Format = "TXT"
	FormatDOCX Format = "DOCX"
	FormatPDF  Format = "PDF"
)

const (
	summaryPrefix = "ozet"
	qaPrefix      = "soru_cevap"
	imagePrefix   = "imagen"
	timeLayout    = "20060102150405"
)

// ParseFormat accepts TXT, DOCX and PDF in any case. Empty means TXT.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case "":
		return FormatTXT, nil
	case FormatTXT, FormatDOCX, FormatPDF:
		return f, nil
	default:
		return "", apperr.Validationf("Desteklenmeyen çıktı formatı: %s", s)
	}
}

func (f Format) ext() string { return "." + strings.ToLower(string(f)) }

// Writer creates result files under Dir.
type Writer struct {
	dir      string
	fontPath string
	now      func() time.Time
	log      *logrus.Entry
}

type Option func(*Writer)

// WithClock replaces time.Now for file name timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// NewWriter creates dir if needed. fontPath is an optional TTF used for PDF
// output.
func NewWriter(dir, fontPath string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	w := &Writer{dir: dir, fontPath: fontPath, now: time.Now, log: logger.For("output")}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Writer) Dir() string { return w.dir }

// Path resolves a result file name, refusing anything outside the results
// directory.
func (w *Writer) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", apperr.NotFound("file")
	}
	path := filepath.Join(w.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", apperr.NotFound("file")
	}
	return path, nil
}

// uniqueName returns prefix_<ts><suffix>ext, adding a counter when a file of
// that name already exists.
func (w *Writer) uniqueName(prefix, suffix, ext string) string {
	stamp := w.now().Format(timeLayout)
	name := fmt.Sprintf("%s_%s%s%s", prefix, stamp, suffix, ext)
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(w.dir, name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s_%s%s_%d%s", prefix, stamp, suffix, i, ext)
	}
}

// WriteText stores content in the requested format and returns the file name.
func (w *Writer) WriteText(content string, format Format) (string, error) {
	if format == "" {
		format = FormatTXT
	}
	name := w.uniqueName(summaryPrefix, "", format.ext())
	path := filepath.Join(w.dir, name)
	var err error
	switch format {
	case FormatTXT:
		err = os.WriteFile(path, []byte(content), 0o644)
	case FormatDOCX:
		err = writeDocx(path, content)
	case FormatPDF:
		err = w.writePDF(path, content)
	default:
		return "", apperr.Validationf("Desteklenmeyen çıktı formatı: %s", format)
	}
	if err != nil {
		return "", apperr.Persistence("sonuç dosyası yazılamadı", err)
	}
	w.log.WithFields(logrus.Fields{"file": name, "format": format}).Debug("result written")
	return name, nil
}

// WriteQA stores pairs as an indented JSON document.
func (w *Writer) WriteQA(pairs []models.QAPair) (string, error) {
	if pairs == nil {
		pairs = []models.QAPair{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(models.QADocument{Pairs: pairs}); err != nil {
		return "", fmt.Errorf("encode qa document: %w", err)
	}
	name := w.uniqueName(qaPrefix, "", ".json")
	if err := os.WriteFile(filepath.Join(w.dir, name), bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return "", apperr.Persistence("sonuç dosyası yazılamadı", err)
	}
	return name, nil
}

// Read returns the content of a result file.
func (w *Writer) Read(name string) ([]byte, error) {
	path, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
