package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"metinanaliz/internal/api"
	"metinanaliz/internal/config"
	"metinanaliz/internal/extract"
	"metinanaliz/internal/logger"
	"metinanaliz/internal/output"
	"metinanaliz/internal/progress"
	"metinanaliz/internal/prompt"
	"metinanaliz/internal/redis"
	"metinanaliz/internal/service/ai"
	"metinanaliz/internal/service/processing"
	"metinanaliz/internal/service/store"
	"metinanaliz/internal/storage"
)

// app is the fully wired service.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	store  *store.Service
	router *gin.Engine
	rdb    *redis.Client
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// openStore opens and migrates the database.
func openStore(cfg *config.Config) (*sql.DB, *store.Service, error) {
	if storage.IsSQLite(cfg.Database.Driver) && cfg.Database.DSN != "" && !strings.HasPrefix(cfg.Database.DSN, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db, cfg.Database.Driver); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, store.NewService(db, strings.ToLower(cfg.Database.Driver)), nil
}

func settingDefaults(cfg *config.Config) store.SettingDefaults {
	llama := cfg.Provider(ai.LlamaName)
	return store.SettingDefaults{
		GeminiAPIKey:  cfg.Provider(ai.GeminiName).APIKey,
		MaxFileSizeMB: cfg.Server.MaxUploadMB,
		DefaultModel:  cfg.Processing.DefaultModel,
		LlamaAPIURL:   llama.BaseURL,
		LlamaAPIKey:   llama.APIKey,
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.For("app")
	a := &app{cfg: cfg}
	var err error
	a.db, a.store, err = openStore(cfg)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.ResultsDir, cfg.Paths.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	defaults := settingDefaults(cfg)
	settings, err := a.store.Settings(ctx, defaults)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	extractor, err := extract.NewExtractor(extract.Config{
		PDFChunkPages: cfg.Processing.PDFChunkPages,
		OCRLanguage:   cfg.Processing.OCRLanguage,
		Tesseract:     cfg.Processing.TesseractPath,
	})
	if err != nil {
		return nil, err
	}

	geminiProv := cfg.Provider(ai.GeminiName)
	gemini, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
		APIKey:      settings.GeminiAPIKey,
		Model:       geminiProv.Model,
		BaseURL:     geminiProv.BaseURL,
		MaxAttempts: cfg.Processing.MaxAttempts,
		RetryDelay:  cfg.Processing.RetryDelay(),
		Timeout:     cfg.Processing.Timeout(),
	})
	if err != nil {
		// a broken stored key must not keep the service down
		log.WithError(err).Warn("gemini client unavailable until a new key is saved")
		gemini, err = ai.NewGeminiClient(ctx, ai.GeminiConfig{
			Model:       geminiProv.Model,
			BaseURL:     geminiProv.BaseURL,
			MaxAttempts: cfg.Processing.MaxAttempts,
			RetryDelay:  cfg.Processing.RetryDelay(),
			Timeout:     cfg.Processing.Timeout(),
		})
		if err != nil {
			return nil, err
		}
	}

	llamaProv := cfg.Provider(ai.LlamaName)
	llama := ai.NewAnythingLLMClient(ai.AnythingLLMConfig{
		BaseURL:     settings.LlamaAPIURL,
		APIKey:      settings.LlamaAPIKey,
		Workspace:   llamaProv.Workspace,
		Model:       llamaProv.Model,
		MaxAttempts: cfg.Processing.MaxAttempts,
		RetryDelay:  cfg.Processing.RetryDelay(),
		Timeout:     cfg.Processing.Timeout(),
	})

	clients := []ai.Client{gemini, llama}
	for _, name := range []string{ai.OpenAIName, ai.ClaudeName} {
		prov := cfg.Provider(name)
		if prov.APIKey == "" {
			continue
		}
		m, err := ai.NewChatModel(ctx, name, prov, "")
		if err != nil {
			log.WithError(err).WithField("provider", name).Warn("skip provider")
			continue
		}
		clients = append(clients, ai.NewChatModelClient(name, m, ai.ChatModelClientConfig{
			MaxAttempts: cfg.Processing.MaxAttempts,
			RetryDelay:  cfg.Processing.RetryDelay(),
			Timeout:     cfg.Processing.Timeout(),
		}))
	}
	registry := ai.NewRegistry(clients...)

	writer, err := output.NewWriter(cfg.Paths.ResultsDir, cfg.Processing.PDFFontPath)
	if err != nil {
		return nil, err
	}

	var progressStore progress.Store = progress.NewMemoryStore(cfg.Redis.ProgressTTLDuration())
	if cfg.Redis.Enabled {
		a.rdb, err = redis.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		progressStore = redis.NewProgressStore(a.rdb, cfg.Redis.ProgressTTLDuration())
	}

	processor := processing.NewService(processing.Config{
		DefaultModel:  settings.DefaultModel,
		VisionEnabled: cfg.Processing.VisionEnabled,
		BackupDir:     cfg.Paths.BackupDir,
		BackupKeep:    cfg.Processing.BackupKeep,
	}, extractor, prompt.NewBuilder(), registry, writer, a.store, processing.WithProgress(progressStore))

	keys := func(provider string) string {
		switch provider {
		case ai.GeminiName:
			return gemini.APIKey()
		case ai.LlamaName:
			_, key := llama.Endpoint()
			return key
		default:
			return cfg.Provider(provider).APIKey
		}
	}
	chat := ai.NewChatService(cfg, registry, keys)

	handler := api.NewHandler(api.Dependencies{
		Store:     a.store,
		Defaults:  defaults,
		Processor: processor,
		Resolver:  extract.NewResolver(cfg.Processing.AllowedExtensions),
		Clients:   registry,
		Gemini:    gemini,
		Llama:     llama,
		Chat:      chat,
		Images:    ai.NewImageGenerator(gemini, geminiProv.ImageModel),
		Writer:    writer,
		Progress:  progressStore,
		UploadDir: cfg.Paths.UploadDir,
	})
	a.router = api.NewRouter(handler)

	log.WithField("models", registry.Names()).Info("service wired")
	ok = true
	return a, nil
}
