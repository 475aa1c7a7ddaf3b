package models

import "time"

// PromptType names a processing template.
type PromptType string

const (
	PromptQA      PromptType = "Soru-Cevap Üretimi"
	PromptSummary PromptType = "Metin Özeti Oluştur"
	PromptCustom  PromptType = "Özel Prompt"
)

// BuiltinPromptTypes lists the templates shipped with the service.
var BuiltinPromptTypes = []PromptType{PromptQA, PromptSummary, PromptCustom}

// CustomPromptType is a user-managed named prompt.
type CustomPromptType struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PromptText string    `json:"prompt_text"`
	CreatedAt  time.Time `json:"created_at"`
}
