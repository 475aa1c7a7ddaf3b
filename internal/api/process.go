package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/models"
	"metinanaliz/internal/progress"
	"metinanaliz/internal/service/processing"
)

const processFailure = "İşlem sırasında hata oluştu"

type fileRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

type processRequest struct {
	Files          []fileRef `json:"files"`
	PromptType     string    `json:"prompt_type"`
	Topic          string    `json:"topic"`
	CustomPrompt   string    `json:"custom_prompt"`
	OutputFormat   string    `json:"output_format"`
	IsCustomType   bool      `json:"is_custom_type"`
	ProcessingMode string    `json:"processing_mode"`
	Model          string    `json:"model"`
	RequestID      string    `json:"request_id"`
}

func (h *Handler) process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Geçersiz istek gövdesi")
		return
	}
	if len(req.Files) == 0 {
		fail(c, http.StatusBadRequest, "İşlenecek dosya bulunamadı")
		return
	}
	ctx := c.Request.Context()

	files := make([]models.UploadedFile, 0, len(req.Files))
	for _, ref := range req.Files {
		full, ok := h.resolveUpload(ref.Path)
		if !ok {
			fail(c, http.StatusBadRequest, "Yüklenen dosya bulunamadı: "+ref.Name)
			return
		}
		// the category is always taken from the stored name, never from the client
		category, err := h.resolver.ResolveName(full)
		if err != nil {
			fail(c, http.StatusBadRequest, "Desteklenmeyen dosya formatı: "+filepath.Ext(full))
			return
		}
		name := ref.Name
		if name == "" {
			name = filepath.Base(full)
		}
		files = append(files, models.UploadedFile{Name: name, Path: full, Category: category})
	}

	mode := processing.Mode(strings.ToLower(strings.TrimSpace(req.ProcessingMode)))
	switch mode {
	case "":
		mode = processing.ModeAuto
	case processing.ModeAuto, processing.ModeCombined, processing.ModeSeparate:
	default:
		fail(c, http.StatusBadRequest, "Geçersiz işleme modu: "+req.ProcessingMode)
		return
	}

	modelName := strings.TrimSpace(req.Model)
	if modelName == "" {
		settings, err := h.settings(ctx)
		if err != nil {
			h.respondError(c, err, "Ayarlar okunamadı")
			return
		}
		modelName = settings.DefaultModel
	}

	customPrompt := req.CustomPrompt
	if req.IsCustomType && strings.TrimSpace(customPrompt) == "" {
		pt, err := h.store.PromptTypeByName(ctx, req.PromptType)
		if err != nil {
			if isNotFound(err) {
				fail(c, http.StatusBadRequest, "Bilinmeyen işlem tipi: "+req.PromptType)
				return
			}
			h.respondError(c, err, "İşlem türü okunamadı")
			return
		}
		customPrompt = pt.PromptText
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" && h.progress != nil {
		requestID = uuid.NewString()
	}

	outcome, err := h.processor.Process(ctx, processing.Request{
		Files:        files,
		PromptType:   req.PromptType,
		Topic:        req.Topic,
		CustomPrompt: customPrompt,
		OutputFormat: req.OutputFormat,
		Mode:         mode,
		Model:        modelName,
		IsCustomType: req.IsCustomType,
		RequestID:    requestID,
	})
	if err != nil {
		h.log.WithError(err).Error("process request")
		switch apperr.KindOf(err) {
		case apperr.KindValidation:
			fail(c, http.StatusBadRequest, apperr.Message(err, "Geçersiz istek"))
		case apperr.KindExtraction, apperr.KindPersistence:
			// the message names the file or the step that failed
			fail(c, http.StatusInternalServerError, processFailure+": "+apperr.Message(err, err.Error()))
		default:
			fail(c, http.StatusInternalServerError, processFailure)
		}
		return
	}

	body := gin.H{
		"success":    true,
		"messages":   outcome.Messages,
		"results":    outcome.Result,
		"mode":       outcome.Mode,
		"request_id": requestID,
	}
	if outcome.Messages == nil {
		body["messages"] = []processing.Message{}
	}
	if outcome.Result != nil {
		body["download_url"] = models.DownloadURL(outcome.Result.OutputFile())
		body["log_id"] = outcome.LogID
		body["saved_result_id"] = outcome.SavedResultID
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) processProgress(c *gin.Context) {
	if h.progress == nil {
		fail(c, http.StatusNotFound, "İlerleme bilgisi bulunamadı")
		return
	}
	snap, err := h.progress.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			fail(c, http.StatusNotFound, "İlerleme bilgisi bulunamadı")
			return
		}
		h.respondError(c, err, "İlerleme bilgisi okunamadı")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "progress": snap})
}

func (h *Handler) download(c *gin.Context) {
	name := c.Param("filename")
	p, err := h.writer.Path(name)
	if err != nil {
		fail(c, http.StatusNotFound, "Dosya bulunamadı")
		return
	}
	c.FileAttachment(p, name)
}
