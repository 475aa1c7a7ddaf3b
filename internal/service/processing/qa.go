package processing

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"metinanaliz/internal/models"
	"metinanaliz/internal/service/ai"
)

// qaSchema accepts any object holding a soru-cevaplar array of objects.
// Field types inside the pairs are normalised in decodePairs.
const qaSchema = `{
	"type": "object",
	"required": ["soru-cevaplar"],
	"properties": {
		"soru-cevaplar": {
			"type": "array",
			"items": {"type": "object"}
		}
	}
}`

var qaDocumentSchema = jsonschema.MustCompileString("qa-document.json", qaSchema)

// parseQA extracts and validates the pairs embedded in a model reply.
func parseQA(content string) ([]models.QAPair, error) {
	doc := ai.ExtractEmbeddedJSON(content)
	if doc == nil {
		return nil, fmt.Errorf("yanıtta JSON bulunamadı")
	}
	if err := qaDocumentSchema.Validate(map[string]any(doc)); err != nil {
		return nil, fmt.Errorf("beklenmeyen JSON yapısı: %w", err)
	}
	items, _ := doc[models.QAKey].([]any)
	return decodePairs(items), nil
}

func decodePairs(items []any) []models.QAPair {
	pairs := make([]models.QAPair, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q, _ := obj["soru"].(string)
		pairs = append(pairs, models.QAPair{Question: q, Answer: stringify(obj["cevap"])})
	}
	return pairs
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func (r *run) mergeQA(content, source string) {
	pairs, err := parseQA(content)
	if err != nil {
		r.note(msgWarning, "JSON çıkarma hatası%s: %v", source, err)
		return
	}
	added := r.qa.Merge(pairs)
	r.note(msgSuccess, "%d yeni soru-cevap eklendi%s", added, source)
}
