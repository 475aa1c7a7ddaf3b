package processing

import (
	"context"
	"fmt"
	"strings"

	"metinanaliz/internal/models"
	"metinanaliz/internal/progress"
)

// run carries the state of one request through the pipeline.
type run struct {
	s    *Service
	p    *plan
	text strings.Builder
	// modelDone is set when combined mode already produced the final text.
	modelDone bool
	qa        *models.QASet
	vision    []models.VisionOutput
	messages  []Message
}

func newRun(s *Service, p *plan) *run {
	return &run{s: s, p: p, qa: models.NewQASet()}
}

func (r *run) note(kind, format string, args ...any) {
	r.messages = append(r.messages, Message{Type: kind, Text: fmt.Sprintf(format, args...)})
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}

func (r *run) execute(ctx context.Context) (models.ProcessingResult, error) {
	var err error
	if r.p.mode == ModeCombined {
		err = r.combined(ctx)
	} else {
		err = r.separate(ctx)
	}
	if err != nil {
		return nil, err
	}
	return r.finalize(ctx)
}

func (r *run) useVision(f models.UploadedFile) bool {
	return r.p.vision && f.Category == models.CategoryImage
}

// describe runs the vision call for one image and records its output.
func (r *run) describe(ctx context.Context, f models.UploadedFile) (string, bool) {
	r.note(msgInfo, "Görüntü işleniyor: %s (Vision API kullanılıyor)", f.Name)
	res := r.p.client.GenerateVision(ctx, r.p.prompt, f.Path)
	if !res.Success {
		r.note(msgError, "Görsel analizi başarısız: %s", res.Error)
		return "", false
	}
	r.note(msgSuccess, "Görsel analizi başarıyla tamamlandı: %s", f.Name)
	r.vision = append(r.vision, models.VisionOutput{File: f.Name, Content: res.Content})
	return res.Content, true
}

func (r *run) combined(ctx context.Context) error {
	var all strings.Builder
	total := len(r.p.req.Files)
	for i, f := range r.p.req.Files {
		r.note(msgInfo, "Dosya okunuyor: %s", f.Name)
		if r.useVision(f) {
			if content, ok := r.describe(ctx, f); ok {
				fmt.Fprintf(&all, "\n\n--- Görsel Analizi: %s ---\n%s\n\n", f.Name, content)
			}
		} else {
			chunks, err := r.s.extractor.Extract(ctx, f.Path, f.Category, false)
			if err != nil {
				return err
			}
			if len(chunks) == 0 {
				r.note(msgWarning, "%s: Metin çıkarılamadı!", f.Name)
			} else {
				all.WriteString(strings.Join(chunks, "\n\n"))
				all.WriteString("\n\n")
			}
		}
		r.s.report(ctx, r.p, progress.Snapshot{Stage: "extracting", File: f.Name, FilePercent: percent(i+1, total), ChunkPercent: 100})
	}

	if strings.TrimSpace(all.String()) == "" {
		return nil
	}
	r.note(msgInfo, "Tüm içerik birleştirildi, işleniyor...")
	r.s.report(ctx, r.p, progress.Snapshot{Stage: "combined", FilePercent: 100})
	res := r.p.client.GenerateText(ctx, r.p.prompt, all.String())
	if !res.Success {
		r.note(msgError, "API hatası: %s", res.Error)
		return nil
	}
	if r.p.qa {
		r.mergeQA(res.Content, "")
		return nil
	}
	r.text.WriteString(res.Content)
	r.modelDone = true
	return nil
}

func (r *run) separate(ctx context.Context) error {
	total := len(r.p.req.Files)
	for i, f := range r.p.req.Files {
		r.note(msgInfo, "Dosya işleniyor: %s", f.Name)
		if r.useVision(f) {
			if content, ok := r.describe(ctx, f); ok {
				r.fold(content, " (görsel analizi)")
			}
			r.s.report(ctx, r.p, progress.Snapshot{Stage: "separate", File: f.Name, FilePercent: percent(i+1, total), ChunkPercent: 100})
			continue
		}
		chunks, err := r.s.extractor.Extract(ctx, f.Path, f.Category, false)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			r.note(msgWarning, "%s: Metin çıkarılamadı!", f.Name)
		}
		for j, chunk := range chunks {
			r.note(msgInfo, "Bölüm %d/%d işleniyor... (Dosya: %d/%d)", j+1, len(chunks), i+1, total)
			if r.p.summary {
				r.text.WriteString(chunk)
				r.text.WriteString("\n\n")
			} else {
				res := r.p.client.GenerateText(ctx, r.p.prompt, chunk)
				if res.Success {
					r.fold(res.Content, "")
				} else {
					r.note(msgError, "API hatası: %s", res.Error)
				}
			}
			r.s.report(ctx, r.p, progress.Snapshot{
				Stage:        "separate",
				File:         f.Name,
				FilePercent:  percent(i+1, total),
				ChunkPercent: percent(j+1, len(chunks)),
			})
		}
	}
	return nil
}

// fold adds one model output to the running summary text, custom text or QA
// set.
func (r *run) fold(content, source string) {
	switch {
	case r.p.summary:
		r.text.WriteString(content)
		r.text.WriteString("\n\n")
	case r.p.custom:
		if r.text.Len() > 0 {
			r.text.WriteString("\n\n")
		}
		r.text.WriteString(content)
	case r.p.qa:
		r.mergeQA(content, source)
	}
}

func (r *run) finalize(ctx context.Context) (models.ProcessingResult, error) {
	r.s.report(ctx, r.p, progress.Snapshot{Stage: "finalizing", FilePercent: 100, ChunkPercent: 100})
	text := r.text.String()
	switch {
	case r.p.summary && strings.TrimSpace(text) != "":
		if !r.modelDone {
			res := r.p.client.GenerateText(ctx, r.p.prompt, strings.TrimSpace(text))
			if !res.Success {
				r.note(msgError, "Özet oluşturma hatası: %s", res.Error)
				return nil, nil
			}
			text = res.Content
		}
		name, err := r.s.writer.WriteText(text, r.p.format)
		if err != nil {
			return nil, err
		}
		return models.SummaryResult{Content: text, Filename: name, Vision: r.vision}, nil
	case r.p.custom && text != "":
		name, err := r.s.writer.WriteText(text, r.p.format)
		if err != nil {
			return nil, err
		}
		return models.CustomResult{Content: text, Filename: name, Vision: r.vision}, nil
	case r.p.qa && r.qa.Len() > 0:
		pairs := r.qa.Pairs()
		name, err := r.s.writer.WriteQA(pairs)
		if err != nil {
			return nil, err
		}
		return models.QAResult{Pairs: pairs, Filename: name, Vision: r.vision}, nil
	case len(r.vision) > 0:
		parts := make([]string, len(r.vision))
		for i, v := range r.vision {
			parts[i] = fmt.Sprintf("--- %s Analizi ---\n%s", v.File, v.Content)
		}
		content := strings.Join(parts, "\n\n")
		name, err := r.s.writer.WriteText(content, r.p.format)
		if err != nil {
			return nil, err
		}
		return models.VisionResult{Content: content, Filename: name, Vision: r.vision}, nil
	}
	return nil, nil
}
