package extract

import (
	"fmt"
	"strings"

	"baliance.com/gooxml/document"
)

// readDocx joins the text of every paragraph with newlines.
func readDocx(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read docx: %v", r)
		}
	}()
	doc, err := document.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	paragraphs := doc.Paragraphs()
	lines := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		var b strings.Builder
		for _, r := range p.Runs() {
			b.WriteString(r.Text())
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n"), nil
}
