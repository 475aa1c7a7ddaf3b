package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"metinanaliz/internal/models"
	"metinanaliz/internal/service/store"
)

type promptTypeRequest struct {
	Name       string `json:"name"`
	PromptText string `json:"prompt_text"`
}

func (r *promptTypeRequest) valid() bool {
	r.Name = strings.TrimSpace(r.Name)
	return r.Name != "" && strings.TrimSpace(r.PromptText) != ""
}

func (h *Handler) listPromptTypes(c *gin.Context) {
	list, err := h.store.ListPromptTypes(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "İşlem türleri okunamadı")
		return
	}
	if list == nil {
		list = []models.CustomPromptType{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "custom_prompt_types": list})
}

// savePromptType creates a prompt type, or rewrites the text of the one that
// already has the name.
func (h *Handler) savePromptType(c *gin.Context) {
	var req promptTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		fail(c, http.StatusBadRequest, "İşlem türü adı ve prompt metni gereklidir.")
		return
	}
	pt, created, err := h.store.SavePromptType(c.Request.Context(), req.Name, req.PromptText)
	if err != nil {
		h.respondError(c, err, "İşlem türü kaydedilirken bir hata oluştu")
		return
	}
	msg := fmt.Sprintf("%q işlem türü başarıyla kaydedildi.", pt.Name)
	if !created {
		msg = fmt.Sprintf("%q işlem türü güncellendi.", pt.Name)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            msg,
		"created":            created,
		"custom_prompt_type": pt,
	})
}

func (h *Handler) updatePromptType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req promptTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		fail(c, http.StatusBadRequest, "İşlem türü adı ve prompt metni gereklidir.")
		return
	}
	err := h.store.UpdatePromptType(c.Request.Context(), id, req.Name, req.PromptText)
	switch {
	case errors.Is(err, store.ErrNameTaken):
		fail(c, http.StatusBadRequest, fmt.Sprintf("%q adında başka bir işlem türü zaten var.", req.Name))
		return
	case isNotFound(err):
		fail(c, http.StatusNotFound, "Düzenlenecek işlem türü bulunamadı.")
		return
	case err != nil:
		h.respondError(c, err, "İşlem türü güncellenirken bir hata oluştu")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "İşlem türü başarıyla güncellendi.",
		"updated_prompt": gin.H{
			"id":          id,
			"name":        req.Name,
			"prompt_text": req.PromptText,
		},
	})
}

func (h *Handler) deletePromptType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeletePromptType(c.Request.Context(), id); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "Silinecek işlem türü bulunamadı.")
			return
		}
		h.respondError(c, err, "İşlem türü silinirken bir hata oluştu")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "İşlem türü silindi.",
		"deleted_id": id,
	})
}
