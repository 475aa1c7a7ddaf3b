package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
)

const pdfFontFamily = "DejaVu"

// writePDF writes content line by line. Without a configured TTF font the
// core Helvetica font is used and text is mapped to cp1252.
func (w *Writer) writePDF(path, content string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	translate := func(s string) string { return s }
	if w.fontPath != "" && fileExists(w.fontPath) {
		pdf.AddUTF8Font(pdfFontFamily, "", w.fontPath)
		pdf.SetFont(pdfFontFamily, "", 12)
	} else {
		if w.fontPath != "" {
			w.log.WithField("font", w.fontPath).Warn("pdf font not found, using Helvetica")
		}
		pdf.SetFont("Helvetica", "", 12)
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}
	for _, line := range strings.Split(content, "\n") {
		pdf.MultiCell(0, 10, translate(line), "", "L", false)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
