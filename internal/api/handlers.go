package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/extract"
	"metinanaliz/internal/logger"
	"metinanaliz/internal/models"
	"metinanaliz/internal/output"
	"metinanaliz/internal/progress"
	"metinanaliz/internal/service/ai"
	"metinanaliz/internal/service/processing"
	"metinanaliz/internal/service/store"
)

// Processor runs one processing request.
type Processor interface {
	Process(ctx context.Context, req processing.Request) (*processing.Outcome, error)
}

// KeyUpdater is the hosted client whose key can be replaced at runtime.
type KeyUpdater interface {
	UpdateAPIKey(ctx context.Context, key string) error
	RestoreAPIKey(ctx context.Context, key string) error
	APIKey() string
}

// SelfHosted is the AnythingLLM client as seen by the settings endpoints.
type SelfHosted interface {
	Endpoint() (string, string)
	Configure(rawURL, key string)
	Probe(ctx context.Context, rawURL, key string) bool
	GenerateText(ctx context.Context, prompt, body string) ai.Result
}

// Chatter answers chat turns.
type Chatter interface {
	Chat(ctx context.Context, provider string, history []models.ChatMessage, message string) (string, error)
	StreamChat(ctx context.Context, provider string, history []models.ChatMessage, message string, onChunk func(string) error) (string, error)
}

// ImageGenerator produces raw image bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, count int, aspect string) ([][]byte, error)
}

// Dependencies groups everything the handlers need.
type Dependencies struct {
	Store     *store.Service
	Defaults  store.SettingDefaults
	Processor Processor
	Resolver  *extract.Resolver
	Clients   *ai.Registry
	Gemini    KeyUpdater
	Llama     SelfHosted
	Chat      Chatter
	Images    ImageGenerator
	Writer    *output.Writer
	Progress  progress.Store
	UploadDir string
}

// Handler wires HTTP routes to the processing pipeline and the result store.
type Handler struct {
	store     *store.Service
	defaults  store.SettingDefaults
	processor Processor
	resolver  *extract.Resolver
	clients   *ai.Registry
	gemini    KeyUpdater
	llama     SelfHosted
	chat      Chatter
	images    ImageGenerator
	writer    *output.Writer
	progress  progress.Store
	uploadDir string
	log       *logrus.Entry
}

// NewHandler constructs a Handler instance.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		store:     deps.Store,
		defaults:  deps.Defaults,
		processor: deps.Processor,
		resolver:  deps.Resolver,
		clients:   deps.Clients,
		gemini:    deps.Gemini,
		llama:     deps.Llama,
		chat:      deps.Chat,
		images:    deps.Images,
		writer:    deps.Writer,
		progress:  deps.Progress,
		uploadDir: deps.UploadDir,
		log:       logger.For("api"),
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/download/:filename", h.download)

	api := router.Group("/api")
	api.GET("/info", h.info)
	api.POST("/upload", h.upload)
	api.POST("/process", h.process)
	api.GET("/process/:id/progress", h.processProgress)

	api.POST("/update-key", h.updateKey)
	api.GET("/settings", h.getSettings)
	api.POST("/update-settings", h.updateSettings)
	api.POST("/check-llama", h.checkLlama)
	api.POST("/test-llama-chat", h.testLlamaChat)

	api.GET("/custom-prompt-types", h.listPromptTypes)
	api.POST("/custom-prompt-types", h.savePromptType)
	api.PUT("/custom-prompt-types/:id", h.updatePromptType)
	api.DELETE("/custom-prompt-types/:id", h.deletePromptType)

	api.POST("/chat", h.chatTurn)
	api.POST("/chat/stream", h.chatStream)
	api.POST("/generate-image", h.generateImage)

	api.GET("/saved-results", h.listSavedResults)
	api.POST("/save-result", h.saveResult)
	api.GET("/saved-results/:id", h.getSavedResult)
	api.DELETE("/saved-results/:id", h.deleteSavedResult)

	api.POST("/log/update-notes", h.updateLogNotes)
	api.POST("/log/toggle-star", h.toggleLogStar)
	api.GET("/logs", h.listLogs)
	api.GET("/logs/export", h.exportLogs)
	api.GET("/log-details/:id", h.logDetails)
	api.GET("/recent-processings", h.recentProcessings)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// respondError maps err to a status code. Validation and not-found messages
// are shown as they are; everything else gets fallback.
func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		fail(c, http.StatusBadRequest, apperr.Message(err, fallback))
	case apperr.KindNotFound:
		fail(c, http.StatusNotFound, fallback)
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		fail(c, http.StatusInternalServerError, fallback)
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Geçersiz kayıt numarası")
		return 0, false
	}
	return id, true
}

func queryLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func (h *Handler) settings(ctx context.Context) (store.EffectiveSettings, error) {
	return h.store.Settings(ctx, h.defaults)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || apperr.Is(err, apperr.KindNotFound)
}
