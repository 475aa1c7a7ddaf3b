// Package prompt renders the instruction text sent ahead of document content.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-sommer/stick"

	"metinanaliz/internal/models"
)

// ErrUnknownPromptType is returned for types outside the built-in set.
var ErrUnknownPromptType = errors.New("unknown prompt type")

const (
	// DefaultCustomPrompt is used when a custom prompt is left blank.
	DefaultCustomPrompt = "Lütfen metni analiz et ve yanıt ver."
	// TopicPlaceholder fills the QA template when no topic is given.
	TopicPlaceholder = "[KONU]"
)

const qaTemplate = `Aşağıdaki metni analiz et, {{ topic }} (fine tunning metoduyla) eğiteceğimiz yapay zekamızı en iyi şekilde eğitebileceğim şekilde, **özetlenmiş** olarak, **tekrarsız** bir şekilde **farklı** soru-cevap çiftleri üret.
**Önemli Not:** Aynı soru-cevap çiftlerini tekrar etme!

JSON formatında çıktı üret:
{
"soru-cevaplar": [
    {
    "soru": "örnek soru",
    "cevap": "örnek cevap"
    }
]
}`

const summaryTemplate = `Aşağıdaki metni analiz et ve kapsamlı bir özet oluştur. 
Önemli noktaları, ana fikirleri ve temel argümanları içermelidir.
Paragraflar halinde, akıcı ve anlaşılır bir dilde yaz.`

// Builder renders prompt templates.
type Builder struct {
	env *stick.Env
}

func NewBuilder() *Builder {
	return &Builder{env: stick.New(nil)}
}

// Build returns the prompt for promptType. The topic only affects the QA
// template; custom is only read for the custom type.
func (b *Builder) Build(promptType models.PromptType, topic, custom string) (string, error) {
	switch promptType {
	case models.PromptCustom:
		if strings.TrimSpace(custom) == "" {
			return DefaultCustomPrompt, nil
		}
		return custom, nil
	case models.PromptQA:
		if strings.TrimSpace(topic) == "" {
			topic = TopicPlaceholder
		}
		var sb strings.Builder
		if err := b.env.Execute(qaTemplate, &sb, map[string]stick.Value{"topic": topic}); err != nil {
			return "", fmt.Errorf("render qa template: %w", err)
		}
		return sb.String(), nil
	case models.PromptSummary:
		return summaryTemplate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPromptType, promptType)
	}
}

// Template exposes the raw built-in template for promptType, used by the info
// endpoint. The custom type has no template.
func Template(promptType models.PromptType) string {
	switch promptType {
	case models.PromptQA:
		return qaTemplate
	case models.PromptSummary:
		return summaryTemplate
	}
	return ""
}
