package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"metinanaliz/internal/models"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// expectedMIME lists the sniffed types accepted for categories whose content
// has a reliable signature. Text and JSON are checked by the extractor.
var expectedMIME = map[models.FileCategory][]string{
	models.CategoryPDF:   {"application/pdf"},
	models.CategoryImage: {"image/jpeg", "image/png"},
	models.CategoryWord:  {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
}

type uploadedFileView struct {
	Name     string              `json:"name"`
	Path     string              `json:"path"`
	Type     models.FileCategory `json:"type"`
	Size     int64               `json:"size"`
	MimeType string              `json:"mime_type"`
}

func (h *Handler) info(c *gin.Context) {
	ctx := c.Request.Context()
	settings, err := h.settings(ctx)
	if err != nil {
		h.respondError(c, err, "Ayarlar okunamadı")
		return
	}
	custom, err := h.store.ListPromptTypes(ctx)
	if err != nil {
		h.respondError(c, err, "İşlem türleri okunamadı")
		return
	}
	if custom == nil {
		custom = []models.CustomPromptType{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"allowed_extensions":  h.resolver.Extensions(),
		"max_file_size":       settings.MaxFileSizeMB,
		"models":              h.clients.Names(),
		"default_model":       settings.DefaultModel,
		"prompt_types":        models.BuiltinPromptTypes,
		"custom_prompt_types": custom,
	})
}

// upload stores every file of the request in a fresh batch directory. The
// batch is rejected as a whole when any file is unsupported.
func (h *Handler) upload(c *gin.Context) {
	settings, err := h.settings(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Ayarlar okunamadı")
		return
	}
	limit := settings.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("Dosya boyutu %d MB sınırını aşıyor", settings.MaxFileSizeMB))
			return
		}
		fail(c, http.StatusBadRequest, "Dosya yüklenmedi")
		return
	}
	form := c.Request.MultipartForm
	headers := append(form.File["files"], form.File["files[]"]...)
	if len(headers) == 0 {
		fail(c, http.StatusBadRequest, "Dosya yüklenmedi")
		return
	}

	batch := uuid.NewString()
	batchDir := filepath.Join(h.uploadDir, batch)
	discard := func() { _ = os.RemoveAll(batchDir) }

	uploaded := make([]uploadedFileView, 0, len(headers))
	for _, fh := range headers {
		if strings.TrimSpace(fh.Filename) == "" {
			continue
		}
		name := sanitizeFilename(fh.Filename)
		category, err := h.resolver.ResolveName(name)
		if err != nil {
			discard()
			fail(c, http.StatusBadRequest, fmt.Sprintf("Desteklenmeyen dosya formatı: %s", strings.ToLower(filepath.Ext(name))))
			return
		}
		mime, err := sniff(fh)
		if err != nil {
			discard()
			fail(c, http.StatusBadRequest, "Dosya okunamadı: "+name)
			return
		}
		if !contentMatches(category, mime) {
			discard()
			fail(c, http.StatusBadRequest, fmt.Sprintf("Dosya içeriği uzantısıyla uyuşmuyor: %s (%s)", name, mime.String()))
			return
		}
		if err := os.MkdirAll(batchDir, 0o755); err != nil {
			h.log.WithError(err).Error("create upload dir")
			fail(c, http.StatusInternalServerError, "Yükleme klasörü oluşturulamadı")
			return
		}
		destPath, finalName := uniqueFilePath(batchDir, name)
		if err := c.SaveUploadedFile(fh, destPath); err != nil {
			discard()
			h.log.WithError(err).WithField("file", finalName).Error("save upload")
			fail(c, http.StatusInternalServerError, "Dosya kaydedilemedi")
			return
		}
		uploaded = append(uploaded, uploadedFileView{
			Name:     finalName,
			Path:     path.Join(batch, finalName),
			Type:     category,
			Size:     fh.Size,
			MimeType: mime.String(),
		})
	}
	if len(uploaded) == 0 {
		fail(c, http.StatusBadRequest, "Hiçbir dosya yüklenemedi")
		return
	}
	h.log.WithField("batch", batch).WithField("files", len(uploaded)).Info("files uploaded")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%d dosya başarıyla yüklendi", len(uploaded)),
		"batch":   batch,
		"files":   uploaded,
	})
}

func sniff(fh *multipart.FileHeader) (*mimetype.MIME, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mimetype.DetectReader(f)
}

func contentMatches(category models.FileCategory, mime *mimetype.MIME) bool {
	expected, ok := expectedMIME[category]
	if !ok {
		return true
	}
	for m := mime; m != nil; m = m.Parent() {
		for _, want := range expected {
			if m.Is(want) {
				return true
			}
		}
	}
	return false
}

// sanitizeFilename keeps letters, digits, dots, dashes and underscores of the
// base name. Spaces become underscores.
func sanitizeFilename(raw string) string {
	base := filepath.Base(strings.ReplaceAll(raw, "\\", "/"))
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		default:
			return -1
		}
	}, base)
	ext := filepath.Ext(cleaned)
	stem := strings.TrimLeft(strings.TrimSuffix(cleaned, ext), "._")
	if stem == "" {
		stem = "dosya"
	}
	return stem + ext
}

// uniqueFilePath returns a path in dir that does not exist yet, appending
// " (n)" to the base name on collision.
func uniqueFilePath(dir, filename string) (string, string) {
	destPath := filepath.Join(dir, filename)
	if _, err := os.Stat(destPath); os.IsNotExist(err) {
		return destPath, filename
	}
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	for idx := 1; ; idx++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, idx, ext)
		p := filepath.Join(dir, candidate)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p, candidate
		}
	}
}

// resolveUpload maps a path returned by upload back to the stored file,
// refusing anything outside the upload directory.
func (h *Handler) resolveUpload(rel string) (string, bool) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", false
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) {
		r, err := filepath.Rel(h.uploadDir, clean)
		if err != nil {
			return "", false
		}
		clean = r
	}
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	full := filepath.Join(h.uploadDir, clean)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}
