package output

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"baliance.com/gooxml/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/models"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(t.TempDir(), "", WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return w
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTXT, "txt": FormatTXT, "Docx": FormatDOCX, " PDF ": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("rtf")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestWriteTextNamesAndCollisions(t *testing.T) {
	w := newTestWriter(t)
	first, err := w.WriteText("özet", FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "ozet_20240309140506.txt", first)

	second, err := w.WriteText("başka özet", FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "ozet_20240309140506_2.txt", second)

	data, err := w.Read(first)
	require.NoError(t, err)
	assert.Equal(t, "özet", string(data))
}

func TestWriteDocx(t *testing.T) {
	w := newTestWriter(t)
	name, err := w.WriteText("Birinci blok\n\nİkinci blok", FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "ozet_20240309140506.docx", name)

	doc, err := document.Open(filepath.Join(w.Dir(), name))
	require.NoError(t, err)
	var texts []string
	for _, p := range doc.Paragraphs() {
		var b strings.Builder
		for _, r := range p.Runs() {
			b.WriteString(r.Text())
		}
		texts = append(texts, b.String())
	}
	assert.Equal(t, []string{"Metin Özeti", "Birinci blok", "İkinci blok"}, texts)
}

func TestWritePDF(t *testing.T) {
	w := newTestWriter(t)
	name, err := w.WriteText("Satır bir\nSatır iki", FormatPDF)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(w.Dir(), name))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestWriteQA(t *testing.T) {
	w := newTestWriter(t)
	name, err := w.WriteQA([]models.QAPair{{Question: "Başkent?", Answer: "Ankara <TR>"}})
	require.NoError(t, err)
	assert.Equal(t, "soru_cevap_20240309140506.json", name)
	data, err := w.Read(name)
	require.NoError(t, err)
	want := "{\n  \"soru-cevaplar\": [\n    {\n      \"soru\": \"Başkent?\",\n      \"cevap\": \"Ankara <TR>\"\n    }\n  ]\n}"
	assert.Equal(t, want, string(data))
}

func TestPathRejectsTraversal(t *testing.T) {
	w := newTestWriter(t)
	for _, name := range []string{"", "../secret", "a/b.txt", ".hidden", "yok.txt"} {
		_, err := w.Path(name)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), name)
	}
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img
}

func TestSaveImages(t *testing.T) {
	var pngBuf, jpgBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, testImage()))
	require.NoError(t, jpeg.Encode(&jpgBuf, testImage(), nil))

	w := newTestWriter(t)
	names, err := w.SaveImages([][]byte{pngBuf.Bytes(), []byte("bozuk"), jpgBuf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, []string{"imagen_20240309140506_1.png", "imagen_20240309140506_3.png"}, names)

	data, err := w.Read(names[1])
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}
