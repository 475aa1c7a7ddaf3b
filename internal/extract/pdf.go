package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSource is the part of a PDF reader the chunker needs. Pages are 1-based.
type pageSource interface {
	NumPage() int
	PageText(i int) (string, error)
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.r.NumPage() }

func (p pdfPages) PageText(i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", i, r)
		}
	}()
	page := p.r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (e *Extractor) extractPDF(path string) (chunks []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return e.chunkPages(pdfPages{r: reader}), nil
}

// chunkPages groups pages into batches of PDFChunkPages and drops batches
// without text. Unreadable pages are skipped.
func (e *Extractor) chunkPages(src pageSource) []string {
	size := e.cfg.PDFChunkPages
	total := src.NumPage()
	var chunks []string
	for start := 1; start <= total; start += size {
		end := min(start+size-1, total)
		var parts []string
		for i := start; i <= end; i++ {
			text, err := src.PageText(i)
			if err != nil {
				e.log.WithError(err).WithField("page", i).Warn("skipping unreadable pdf page")
				continue
			}
			parts = append(parts, text)
		}
		chunk := strings.TrimSpace(strings.Join(parts, "\n"))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
