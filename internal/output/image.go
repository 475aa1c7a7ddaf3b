package output

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// SaveImages stores generated images as imagen_<ts>_<i>.png. Images that
// cannot be decoded are skipped and logged.
func (w *Writer) SaveImages(images [][]byte) ([]string, error) {
	var names []string
	for i, raw := range images {
		data, err := asPNG(raw)
		if err != nil {
			w.log.WithError(err).WithField("index", i).Warn("skip generated image")
			continue
		}
		name := w.uniqueName(imagePrefix, fmt.Sprintf("_%d", i+1), ".png")
		if err := os.WriteFile(filepath.Join(w.dir, name), data, 0o644); err != nil {
			return names, fmt.Errorf("write image: %w", err)
		}
		names = append(names, name)
	}
	return names, nil
}

func asPNG(raw []byte) ([]byte, error) {
	if mimetype.Detect(raw).Is("image/png") {
		return raw, nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
