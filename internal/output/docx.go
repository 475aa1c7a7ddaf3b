package output

import (
	"fmt"
	"strings"

	"baliance.com/gooxml/document"
)

const docxHeading = "Metin Özeti"

// writeDocx writes a titled document with one paragraph per blank-line
// separated block.
func writeDocx(path, content string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("write docx: %v", r)
		}
	}()
	doc := document.New()
	title := doc.AddParagraph()
	title.SetStyle("Title")
	title.AddRun().AddText(docxHeading)
	for _, block := range strings.Split(content, "\n\n") {
		doc.AddParagraph().AddRun().AddText(block)
	}
	if err := doc.SaveToFile(path); err != nil {
		return fmt.Errorf("save docx: %w", err)
	}
	return nil
}
