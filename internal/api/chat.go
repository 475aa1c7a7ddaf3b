package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/models"
	"metinanaliz/internal/service/ai"
)

const streamTimeout = 2 * time.Minute

// historyItem accepts both the {sender, message} and the {role, content}
// shapes of a chat turn.
type historyItem struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (i historyItem) toMessage() models.ChatMessage {
	role := models.RoleAssistant
	if strings.EqualFold(i.Sender, "user") || strings.EqualFold(i.Role, string(models.RoleUser)) {
		role = models.RoleUser
	}
	content := i.Message
	if content == "" {
		content = i.Content
	}
	return models.ChatMessage{Role: role, Content: content}
}

type chatRequest struct {
	Message string        `json:"message"`
	History []historyItem `json:"history"`
	Model   string        `json:"model"`
}

func (r chatRequest) history() []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(r.History))
	for _, item := range r.History {
		out = append(out, item.toMessage())
	}
	return out
}

func (r chatRequest) provider() string {
	if p := strings.TrimSpace(r.Model); p != "" {
		return strings.ToLower(p)
	}
	return ai.GeminiName
}

func bindChat(c *gin.Context) (chatRequest, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Geçersiz istek gövdesi")
		return req, false
	}
	if strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, "Mesaj boş olamaz")
		return req, false
	}
	return req, true
}

func (h *Handler) chatTurn(c *gin.Context) {
	req, ok := bindChat(c)
	if !ok {
		return
	}
	answer, err := h.chat.Chat(c.Request.Context(), req.provider(), req.history(), req.Message)
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			fail(c, http.StatusBadRequest, apperr.Message(err, "Geçersiz istek"))
			return
		}
		h.log.WithError(err).Error("chat turn")
		fail(c, http.StatusInternalServerError, "Mesaj işlenirken hata oluştu: "+apperr.Message(err, "model yanıt vermedi"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "response": answer})
}

// chatStream answers a chat turn as server-sent events: "stream" events carry
// the text received so far, "done" the full answer and "error" a failure.
func (h *Handler) chatStream(c *gin.Context) {
	req, ok := bindChat(c)
	if !ok {
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		fail(c, http.StatusInternalServerError, "streaming not supported")
		return
	}
	streamCtx, cancel := context.WithTimeout(c.Request.Context(), streamTimeout)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	full, err := h.chat.StreamChat(streamCtx, req.provider(), req.history(), req.Message, func(soFar string) error {
		return sendEvent("stream", gin.H{"content": soFar})
	})
	if err != nil {
		h.log.WithError(err).Warn("chat stream")
		_ = sendEvent("error", gin.H{"message": apperr.Message(err, "Mesaj işlenirken hata oluştu")})
		return
	}
	_ = sendEvent("done", gin.H{"success": true, "response": full})
}

func (h *Handler) generateImage(c *gin.Context) {
	var req struct {
		Prompt      string `json:"prompt"`
		NumImages   int    `json:"num_images"`
		AspectRatio string `json:"aspect_ratio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Geçersiz istek gövdesi")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		fail(c, http.StatusBadRequest, "Görsel istemi (prompt) boş olamaz")
		return
	}
	if req.NumImages == 0 {
		req.NumImages = 1
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}
	images, err := h.images.Generate(c.Request.Context(), req.Prompt, req.NumImages, req.AspectRatio)
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			fail(c, http.StatusBadRequest, apperr.Message(err, "Geçersiz istek"))
			return
		}
		h.log.WithError(err).Error("generate image")
		fail(c, http.StatusInternalServerError, "Görsel oluşturma hatası: "+apperr.Message(err, "beklenmeyen hata"))
		return
	}
	names, err := h.writer.SaveImages(images)
	if err != nil {
		h.respondError(c, err, "Görseller kaydedilemedi")
		return
	}
	if len(names) == 0 {
		fail(c, http.StatusBadRequest, "Görsel oluşturulamadı")
		return
	}
	urls := make([]string, len(names))
	for i, n := range names {
		urls[i] = models.DownloadURL(n)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       fmt.Sprintf("%d görsel başarıyla oluşturuldu", len(names)),
		"image_count":   len(names),
		"download_urls": urls,
	})
}
