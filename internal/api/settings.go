package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/service/ai"
	"metinanaliz/internal/service/store"
)

// maxFileSizeWarnMB is the limit above which a warning accompanies a saved
// max_file_size.
const maxFileSizeWarnMB = 100

const defaultLlamaTestPrompt = "Merhaba, nasılsın?"

func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + strings.Repeat("*", 4) + s[len(s)-4:]
	}
}

func (h *Handler) updateKey(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Geçersiz istek gövdesi")
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		fail(c, http.StatusBadRequest, "API anahtarı boş olamaz. Lütfen geçerli bir API anahtarı girin.")
		return
	}
	ctx := c.Request.Context()
	prev := h.gemini.APIKey()
	if err := h.gemini.UpdateAPIKey(ctx, key); err != nil {
		fail(c, http.StatusBadRequest, "API anahtarı doğrulanamadı: "+apperr.Message(err, err.Error()))
		return
	}
	if err := h.store.SetSetting(ctx, store.SettingGeminiAPIKey, key); err != nil {
		h.restoreGeminiKey(ctx, prev)
		h.respondError(c, apperr.Persistence("store api key", err), "API anahtarı kaydedilemedi")
		return
	}
	h.log.Info("gemini api key updated")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "API anahtarı başarıyla doğrulandı ve kaydedildi. Artık Gemini AI modelini kullanabilirsiniz.",
	})
}

// restoreGeminiKey puts the previous key back when the new one could not be
// stored, so the running client matches the settings table.
func (h *Handler) restoreGeminiKey(ctx context.Context, prev string) {
	if err := h.gemini.RestoreAPIKey(ctx, prev); err != nil {
		h.log.WithError(err).Error("restore gemini api key")
	}
}

func (h *Handler) getSettings(c *gin.Context) {
	settings, err := h.settings(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Ayarlar okunamadı")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"settings": gin.H{
			"gemini_api_key":     maskSecret(settings.GeminiAPIKey),
			"gemini_api_key_set": settings.GeminiAPIKey != "",
			"max_file_size":      settings.MaxFileSizeMB,
			"default_model":      settings.DefaultModel,
			"llama_api_url":      settings.LlamaAPIURL,
			"llama_api_key":      maskSecret(settings.LlamaAPIKey),
		},
		"supported_models": h.clients.Names(),
	})
}

type settingUpdate struct {
	Key     string `json:"key"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// updateSettings applies the submitted settings all-or-nothing: every value
// is validated, then a new Gemini key is checked live, then everything is
// stored.
func (h *Handler) updateSettings(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		fail(c, http.StatusBadRequest, "Geçersiz istek gövdesi")
		return
	}
	ctx := c.Request.Context()

	var (
		updates []settingUpdate
		pending = map[string]string{}
		valid   = true
	)
	reject := func(key, msg string) {
		valid = false
		updates = append(updates, settingUpdate{Key: key, Message: msg})
	}

	geminiKey, hasGemini := "", false
	if v, ok := raw[store.SettingGeminiAPIKey]; ok {
		hasGemini = true
		if err := json.Unmarshal(v, &geminiKey); err != nil || strings.TrimSpace(geminiKey) == "" {
			reject(store.SettingGeminiAPIKey, "API anahtarı boş olamaz")
		}
		geminiKey = strings.TrimSpace(geminiKey)
	}

	sizeMsg := ""
	if v, ok := raw[store.SettingMaxFileSize]; ok {
		size, err := parsePositiveInt(v)
		switch {
		case err != nil:
			reject(store.SettingMaxFileSize, "Geçersiz dosya boyutu değeri. Lütfen pozitif bir sayı girin.")
		case size <= 0:
			reject(store.SettingMaxFileSize, "Maksimum dosya boyutu pozitif bir sayı olmalıdır")
		default:
			pending[store.SettingMaxFileSize] = strconv.FormatInt(size, 10)
			sizeMsg = fmt.Sprintf("Maksimum dosya boyutu %d MB olarak ayarlandı", size)
			if size > maxFileSizeWarnMB {
				sizeMsg += " (yüksek değerler performans sorunlarına neden olabilir)"
			}
		}
	}

	if v, ok := raw[store.SettingDefaultModel]; ok {
		var model string
		if err := json.Unmarshal(v, &model); err != nil || !h.clients.Supported(model) {
			reject(store.SettingDefaultModel, fmt.Sprintf("Desteklenmeyen model: %s. Desteklenen modeller: %s",
				strings.Trim(string(v), `"`), strings.Join(h.clients.Names(), ", ")))
		} else {
			pending[store.SettingDefaultModel] = strings.ToLower(strings.TrimSpace(model))
		}
	}

	prevKey := h.gemini.APIKey()
	if valid && hasGemini {
		if err := h.gemini.UpdateAPIKey(ctx, geminiKey); err != nil {
			reject(store.SettingGeminiAPIKey, "API anahtarı doğrulanamadı: "+apperr.Message(err, err.Error()))
		} else {
			pending[store.SettingGeminiAPIKey] = geminiKey
		}
	}

	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":     false,
			"all_success": false,
			"message":     "Bazı ayarlar geçersiz olduğu için hiçbir ayar kaydedilmedi",
			"updates":     updates,
		})
		return
	}

	for _, key := range []string{store.SettingGeminiAPIKey, store.SettingMaxFileSize, store.SettingDefaultModel} {
		value, ok := pending[key]
		if !ok {
			continue
		}
		if err := h.store.SetSetting(ctx, key, value); err != nil {
			if key == store.SettingGeminiAPIKey {
				h.restoreGeminiKey(ctx, prevKey)
			}
			h.respondError(c, apperr.Persistence("store setting", err), "Ayarlar kaydedilirken hata oluştu")
			return
		}
		msg := "Ayar kaydedildi"
		switch key {
		case store.SettingGeminiAPIKey:
			msg = "API anahtarı başarıyla doğrulandı ve kaydedildi"
		case store.SettingMaxFileSize:
			msg = sizeMsg
		case store.SettingDefaultModel:
			msg = fmt.Sprintf("Varsayılan model %s olarak ayarlandı", value)
		}
		updates = append(updates, settingUpdate{Key: key, Success: true, Message: msg})
	}
	if updates == nil {
		updates = []settingUpdate{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"all_success": true,
		"message":     "Tüm ayarlar başarıyla güncellendi",
		"updates":     updates,
	})
}

// parsePositiveInt accepts a JSON number or a numeric string.
func parsePositiveInt(v json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.Int64()
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// checkLlama probes an AnythingLLM instance and, when it answers, stores the
// URL and key and switches the live client to them.
func (h *Handler) checkLlama(c *gin.Context) {
	var req struct {
		APIURL *string `json:"api_url"`
		APIKey *string `json:"api_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Geçersiz istek gövdesi")
		return
	}
	currentURL, currentKey := h.llama.Endpoint()
	rawURL, key := currentURL, currentKey
	if req.APIURL != nil {
		rawURL = *req.APIURL
	}
	if req.APIKey != nil {
		key = *req.APIKey
	}
	base, key := ai.ParseEndpoint(rawURL, key)

	ctx := c.Request.Context()
	available := h.llama.Probe(ctx, base, key)
	h.log.WithField("base_url", base).WithField("available", available).Info("anythingllm connectivity checked")
	if available {
		if err := h.store.SetSetting(ctx, store.SettingLlamaAPIURL, base); err != nil {
			h.respondError(c, apperr.Persistence("store llama url", err), "AnythingLLM ayarları kaydedilemedi")
			return
		}
		if key != "" {
			if err := h.store.SetSetting(ctx, store.SettingLlamaAPIKey, key); err != nil {
				h.respondError(c, apperr.Persistence("store llama key", err), "AnythingLLM ayarları kaydedilemedi")
				return
			}
		}
		h.llama.Configure(base, key)
	}
	msg := "Bağlantı başarısız"
	if available {
		msg = "Bağlantı başarılı"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"available": available,
		"message":   msg,
	})
}

func (h *Handler) testLlamaChat(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Geçersiz istek gövdesi")
			return
		}
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = defaultLlamaTestPrompt
	}
	res := h.llama.GenerateText(c.Request.Context(), prompt, "")
	c.JSON(http.StatusOK, gin.H{
		"success": res.Success,
		"content": res.Content,
		"message": res.Error,
	})
}
