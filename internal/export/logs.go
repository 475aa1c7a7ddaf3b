// Package export renders the processing history as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"metinanaliz/internal/models"
)

const logsSheet = "İşlem Geçmişi"

// LogSource lists processing logs, newest first.
type LogSource interface {
	ListLogs(ctx context.Context, limit int) ([]models.ProcessingLog, error)
}

var logHeaders = []string{"ID", "Tarih", "Dosyalar", "İşlem Tipi", "Başarılı", "Sonuç Dosyası", "Notlar", "Etiketler", "Yıldızlı"}

// LogsXLSX returns a workbook with one row per log entry.
func LogsXLSX(ctx context.Context, src LogSource, limit int) ([]byte, error) {
	logs, err := src.ListLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(logsSheet)
	if err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range logHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(logsSheet, cell, h)
	}
	for r, l := range logs {
		row := r + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(logsSheet, cell, v)
		}
		write(1, l.ID)
		write(2, l.Timestamp.Format("2006-01-02 15:04:05"))
		write(3, l.Files)
		write(4, l.PromptType)
		write(5, yesNo(l.Success))
		write(6, l.ResultFile)
		write(7, l.Notes)
		write(8, strings.Join(l.Tags, ", "))
		write(9, yesNo(l.Starred))
	}

	_ = f.SetColWidth(logsSheet, "B", "B", 20)
	_ = f.SetColWidth(logsSheet, "C", "C", 40)
	_ = f.SetColWidth(logsSheet, "D", "D", 24)
	_ = f.SetColWidth(logsSheet, "F", "F", 30)
	_ = f.SetColWidth(logsSheet, "G", "H", 36)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(v bool) string {
	if v {
		return "Evet"
	}
	return "Hayır"
}
