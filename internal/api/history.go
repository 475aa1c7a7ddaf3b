package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"metinanaliz/internal/export"
	"metinanaliz/internal/models"
	"metinanaliz/internal/service/store"
)

const (
	contentUnavailable = "İçerik alınamadı"
	contentEmpty       = "Boş içerik"
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// savedResultView is a saved result with JSON content decoded for display.
type savedResultView struct {
	models.SavedResult
	Content any `json:"content"`
}

func viewOf(r models.SavedResult) savedResultView {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return savedResultView{SavedResult: r, Content: decodeIfJSON(r.Content)}
}

// decodeIfJSON returns s parsed when it holds a JSON object or array.
func decodeIfJSON(s string) any {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return s
	}
	return v
}

func (h *Handler) listSavedResults(c *gin.Context) {
	list, err := h.store.ListSavedResults(c.Request.Context(), models.SavedResultFilter{
		Type:  c.Query("type"),
		Query: c.Query("query"),
		Limit: queryLimit(c, store.DefaultLogLimit),
	})
	if err != nil {
		h.respondError(c, err, "Sonuçlar okunamadı")
		return
	}
	for i := range list {
		if list[i].Tags == nil {
			list[i].Tags = []string{}
		}
	}
	if list == nil {
		list = []models.SavedResult{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": list})
}

func (h *Handler) getSavedResult(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.store.GetSavedResult(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "Sonuç bulunamadı")
			return
		}
		h.respondError(c, err, "Sonuç detayları alınırken bir hata oluştu")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": viewOf(*r)})
}

func (h *Handler) deleteSavedResult(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteSavedResult(c.Request.Context(), id); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "Silinecek sonuç bulunamadı")
			return
		}
		h.respondError(c, err, "Sonuç silinirken bir hata oluştu")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Sonuç başarıyla silindi"})
}

type saveResultRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	ResultType      string          `json:"result_type"`
	Content         json.RawMessage `json:"content"`
	SourceFile      string          `json:"source_file"`
	ProcessingLogID int64           `json:"processing_log_id"`
	Tags            []string        `json:"tags"`
}

// content returns the submitted content as text. A JSON string is unquoted,
// other JSON values are kept verbatim; ok is false when none was sent.
func (r saveResultRequest) content() (string, bool) {
	raw := bytes.TrimSpace(r.Content)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

// saveResult stores a result by hand. Without content the result file of the
// referenced log is used.
func (h *Handler) saveResult(c *gin.Context) {
	var req saveResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Geçersiz istek gövdesi")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.ResultType) == "" {
		fail(c, http.StatusBadRequest, "Başlık ve sonuç türü alanları gereklidir.")
		return
	}
	ctx := c.Request.Context()

	var entry *models.ProcessingLog
	if req.ProcessingLogID > 0 {
		var err error
		entry, err = h.store.GetLog(ctx, req.ProcessingLogID)
		if err != nil {
			if isNotFound(err) {
				fail(c, http.StatusNotFound, "İşlem bulunamadı")
				return
			}
			h.respondError(c, err, "Sonuç kaydedilirken hata oluştu")
			return
		}
	}

	content, ok := req.content()
	if !ok {
		content = contentEmpty
		if entry != nil && entry.ResultFile != "" {
			data, err := h.writer.Read(entry.ResultFile)
			if err != nil {
				h.log.WithError(err).WithField("file", entry.ResultFile).Warn("read result file")
				content = contentUnavailable
			} else {
				content = string(data)
			}
		}
	}

	id, existed, err := h.store.SaveResult(ctx, models.SavedResult{
		Title:           req.Title,
		Description:     req.Description,
		ResultType:      req.ResultType,
		Content:         content,
		SourceFile:      req.SourceFile,
		ProcessingLogID: req.ProcessingLogID,
	}, req.Tags)
	if err != nil {
		h.respondError(c, err, "Sonuç kaydedilirken hata oluştu")
		return
	}
	msg := "Sonuç başarıyla kaydedildi."
	if existed {
		msg = "Bu sonuç zaten kaydedilmiş."
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "result_id": id})
}

type logIDRequest struct {
	LogID int64  `json:"log_id"`
	Notes string `json:"notes"`
}

func bindLogID(c *gin.Context) (logIDRequest, bool) {
	var req logIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LogID <= 0 {
		fail(c, http.StatusBadRequest, "İşlem ID gereklidir.")
		return req, false
	}
	return req, true
}

func (h *Handler) updateLogNotes(c *gin.Context) {
	req, ok := bindLogID(c)
	if !ok {
		return
	}
	if err := h.store.UpdateLogNotes(c.Request.Context(), req.LogID, req.Notes); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "İşlem bulunamadı.")
			return
		}
		h.respondError(c, err, "Notlar güncellenirken hata oluştu")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notlar başarıyla güncellendi."})
}

func (h *Handler) toggleLogStar(c *gin.Context) {
	req, ok := bindLogID(c)
	if !ok {
		return
	}
	starred, err := h.store.ToggleLogStar(c.Request.Context(), req.LogID)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "İşlem bulunamadı.")
			return
		}
		h.respondError(c, err, "İşlem yıldız durumu değiştirilirken hata oluştu")
		return
	}
	msg := "İşlem yıldızı kaldırıldı."
	if starred {
		msg = "İşlem yıldızlandı."
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "starred": starred})
}

func (h *Handler) writeLogs(c *gin.Context, logs []models.ProcessingLog, err error) {
	if err != nil {
		h.respondError(c, err, "İşlem geçmişi okunamadı")
		return
	}
	for i := range logs {
		if logs[i].Tags == nil {
			logs[i].Tags = []string{}
		}
	}
	if logs == nil {
		logs = []models.ProcessingLog{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": logs})
}

func (h *Handler) listLogs(c *gin.Context) {
	logs, err := h.store.ListLogs(c.Request.Context(), queryLimit(c, store.DefaultLogLimit))
	h.writeLogs(c, logs, err)
}

func (h *Handler) recentProcessings(c *gin.Context) {
	logs, err := h.store.RecentLogs(c.Request.Context(), queryLimit(c, store.DefaultRecentLimit))
	h.writeLogs(c, logs, err)
}

// logDetails returns a log with the content of its result file. Text and
// JSON files are inlined; other formats are only linked.
func (h *Handler) logDetails(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.store.GetLog(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "İşlem bulunamadı")
			return
		}
		h.respondError(c, err, "İşlem detayları alınırken bir hata oluştu")
		return
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	var resultContent any
	body := gin.H{"success": true, "log": entry}
	if entry.ResultFile != "" {
		ext := strings.ToLower(filepath.Ext(entry.ResultFile))
		if ext == ".txt" || ext == ".json" {
			if data, err := h.writer.Read(entry.ResultFile); err == nil {
				resultContent = string(data)
				if ext == ".json" {
					var decoded any
					if json.Unmarshal(data, &decoded) == nil {
						resultContent = decoded
					}
				}
			} else {
				h.log.WithError(err).WithField("file", entry.ResultFile).Warn("read result file")
			}
		}
		body["download_url"] = models.DownloadURL(entry.ResultFile)
	}
	body["result_content"] = resultContent
	c.JSON(http.StatusOK, body)
}

func (h *Handler) exportLogs(c *gin.Context) {
	data, err := export.LogsXLSX(c.Request.Context(), h.store, queryLimit(c, 1000))
	if err != nil {
		h.respondError(c, err, "İşlem geçmişi dışa aktarılamadı")
		return
	}
	name := fmt.Sprintf("islem_gecmisi_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}
