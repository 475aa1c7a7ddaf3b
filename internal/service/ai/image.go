package ai

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"metinanaliz/internal/apperr"
)

const (
	DefaultImageModel = "imagen-3.0-generate-002"
	MaxImages         = 4
)

var aspectRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
}

// ImageGenerator creates images with the key of the hosted client.
type ImageGenerator struct {
	gemini *GeminiClient
	model  string
}

func NewImageGenerator(gemini *GeminiClient, model string) *ImageGenerator {
	if model == "" {
		model = DefaultImageModel
	}
	return &ImageGenerator{gemini: gemini, model: model}
}

// Generate returns the raw bytes of up to count images. An unknown aspect
// ratio falls back to 1:1.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string, count int, aspect string) ([][]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperr.Validation("Görsel istemi (prompt) boş olamaz")
	}
	if count < 1 || count > MaxImages {
		return nil, apperr.Validationf("Görsel sayısı 1 ile %d arasında olmalı", MaxImages)
	}
	if !aspectRatios[aspect] {
		aspect = "1:1"
	}
	client, _ := g.gemini.current()
	if client == nil || len(g.gemini.APIKey()) < MinAPIKeyLength {
		return nil, apperr.Validation("Gemini " + MsgMissingKey)
	}
	resp, err := client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
		AspectRatio:    aspect,
	})
	if err != nil {
		return nil, apperr.RemoteAPI("Görsel oluşturma başarısız", err)
	}
	var images [][]byte
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, img.Image.ImageBytes)
	}
	if len(images) == 0 {
		return nil, apperr.RemoteAPI("Görsel oluşturulamadı", nil)
	}
	return images, nil
}
