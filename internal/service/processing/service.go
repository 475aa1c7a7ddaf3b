// Package processing runs uploaded files through a model and turns the
// replies into one result.
package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/logger"
	"metinanaliz/internal/models"
	"metinanaliz/internal/output"
	"metinanaliz/internal/progress"
	"metinanaliz/internal/prompt"
	"metinanaliz/internal/service/ai"
)

// Config holds the processing switches read from the application config.
type Config struct {
	DefaultModel  string
	VisionEnabled bool
	BackupDir     string
	BackupKeep    int
}

// Service orchestrates extraction, model calls and persistence.
type Service struct {
	cfg       Config
	extractor Extractor
	prompts   PromptBuilder
	clients   *ai.Registry
	writer    ResultWriter
	recorder  Recorder
	progress  progress.Store
	log       *logrus.Entry
}

type Option func(*Service)

// WithProgress enables progress snapshots for requests carrying an id.
func WithProgress(store progress.Store) Option {
	return func(s *Service) { s.progress = store }
}

func NewService(cfg Config, extractor Extractor, prompts PromptBuilder, clients *ai.Registry, writer ResultWriter, recorder Recorder, opts ...Option) *Service {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = ai.GeminiName
	}
	s := &Service{
		cfg:       cfg,
		extractor: extractor,
		prompts:   prompts,
		clients:   clients,
		writer:    writer,
		recorder:  recorder,
		log:       logger.For("processing"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// plan is the validated form of a Request.
type plan struct {
	req     Request
	client  ai.Client
	prompt  string
	format  output.Format
	mode    Mode
	vision  bool
	summary bool
	qa      bool
	custom  bool
}

func (s *Service) plan(req Request) (*plan, error) {
	if len(req.Files) == 0 {
		return nil, apperr.Validation("İşlenecek dosya bulunamadı")
	}
	if req.PromptType == "" {
		req.PromptType = string(models.PromptQA)
	}
	name := req.Model
	if name == "" {
		name = s.cfg.DefaultModel
	}
	client, ok := s.clients.Get(name)
	if !ok {
		return nil, apperr.Validationf("Desteklenmeyen model: %s", name)
	}
	format, err := output.ParseFormat(req.OutputFormat)
	if err != nil {
		return nil, err
	}

	p := &plan{req: req, client: client, format: format}
	p.summary = req.PromptType == string(models.PromptSummary)
	p.qa = req.PromptType == string(models.PromptQA)
	p.custom = req.PromptType == string(models.PromptCustom) || req.IsCustomType

	if req.IsCustomType {
		p.prompt = req.CustomPrompt
		if strings.TrimSpace(p.prompt) == "" {
			p.prompt = prompt.DefaultCustomPrompt
		}
	} else {
		text, err := s.prompts.Build(models.PromptType(req.PromptType), req.Topic, req.CustomPrompt)
		if errors.Is(err, prompt.ErrUnknownPromptType) {
			return nil, apperr.Validationf("Bilinmeyen işlem tipi: %s", req.PromptType)
		}
		if err != nil {
			return nil, err
		}
		p.prompt = text
	}

	if client.SupportsVision() && s.cfg.VisionEnabled {
		for _, f := range req.Files {
			if f.Category == models.CategoryImage {
				p.vision = true
				break
			}
		}
	}
	p.mode = resolveMode(req.Mode, p.summary, p.custom, p.prompt)
	return p, nil
}

// resolveMode honours an explicit mode. Auto combines summaries, custom
// prompts and prompts asking for long-form writing.
func resolveMode(requested Mode, summary, custom bool, promptText string) Mode {
	switch requested {
	case ModeCombined, ModeSeparate:
		return requested
	}
	if summary || custom {
		return ModeCombined
	}
	lower := strings.ToLower(promptText)
	for _, kw := range combineKeywords {
		if strings.Contains(lower, kw) {
			return ModeCombined
		}
	}
	return ModeSeparate
}

func fileNames(files []models.UploadedFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

// Process runs req to completion. Validation problems are returned before
// anything is recorded. Once processing starts every request produces exactly
// one log entry.
func (s *Service) Process(ctx context.Context, req Request) (*Outcome, error) {
	p, err := s.plan(req)
	if err != nil {
		return nil, err
	}
	names := fileNames(req.Files)
	log := s.log.WithFields(logrus.Fields{
		"prompt_type": req.PromptType,
		"model":       p.client.Name(),
		"mode":        p.mode,
		"files":       len(names),
	})

	r := newRun(s, p)
	result, err := r.execute(ctx)
	if err != nil {
		if _, logErr := s.recorder.LogProcessing(ctx, names, req.PromptType, false, ""); logErr != nil {
			log.WithError(logErr).Error("record failed processing")
		}
		log.WithError(err).Error("processing failed")
		s.finishProgress(ctx, p, "failed")
		return nil, err
	}

	out := &Outcome{Result: result, Messages: r.messages, Mode: p.mode}
	if result == nil {
		out.Messages = append(out.Messages, Message{Type: msgWarning, Text: "İşlenecek sonuç bulunamadı!"})
		if _, logErr := s.recorder.LogProcessing(ctx, names, req.PromptType, false, ""); logErr != nil {
			log.WithError(logErr).Error("record empty processing")
		}
		s.finishProgress(ctx, p, "finalizing")
		log.Warn("processing produced no result")
		return out, nil
	}

	logID, err := s.recorder.LogProcessing(ctx, names, req.PromptType, true, result.OutputFile())
	if err != nil {
		return nil, apperr.Persistence("işlem kaydı yazılamadı", err)
	}
	out.LogID = logID

	if s.cfg.BackupDir != "" {
		if _, err := s.recorder.Backup(ctx, s.cfg.BackupDir, s.cfg.BackupKeep); err != nil {
			log.WithError(err).Warn("database backup failed")
		}
	}

	title := "İsimsiz"
	if len(names) > 0 {
		title = names[0]
	}
	id, _, err := s.recorder.SaveResult(ctx, models.SavedResult{
		Title:           fmt.Sprintf("%s - %s", req.PromptType, title),
		Description:     fmt.Sprintf("İşlem sonucu: %s", result.Kind()),
		ResultType:      string(result.Kind()),
		Content:         result.StoredContent(),
		SourceFile:      result.OutputFile(),
		ProcessingLogID: logID,
	}, nil)
	if err != nil {
		return nil, apperr.Persistence("sonuç kaydedilemedi", err)
	}
	out.SavedResultID = id
	s.finishProgress(ctx, p, "logged")
	log.WithFields(logrus.Fields{"result": result.Kind(), "file": result.OutputFile()}).Info("processing finished")
	return out, nil
}

func (s *Service) finishProgress(ctx context.Context, p *plan, stage string) {
	s.report(ctx, p, progress.Snapshot{Stage: stage, FilePercent: 100, ChunkPercent: 100, Done: true})
}

// report stores a snapshot. Failures never affect processing.
func (s *Service) report(ctx context.Context, p *plan, snap progress.Snapshot) {
	if s.progress == nil || p.req.RequestID == "" {
		return
	}
	snap.RequestID = p.req.RequestID
	if err := s.progress.Save(ctx, snap); err != nil {
		s.log.WithError(err).Debug("save progress")
	}
}
