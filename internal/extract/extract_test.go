package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"baliance.com/gooxml/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/config"
	"metinanaliz/internal/models"
)

func TestResolverCategories(t *testing.T) {
	r := NewResolver(config.DefaultExtensions())
	cases := map[string]models.FileCategory{
		".pdf":  models.CategoryPDF,
		"PDF":   models.CategoryPDF,
		".jpg":  models.CategoryImage,
		".jpeg": models.CategoryImage,
		".PNG":  models.CategoryImage,
		".txt":  models.CategoryText,
		".docx": models.CategoryWord,
		".json": models.CategoryJSON,
	}
	for ext, want := range cases {
		got, err := r.Resolve(ext)
		require.NoError(t, err, ext)
		assert.Equal(t, want, got, ext)
	}
	for _, ext := range []string{".exe", ".doc", "", ".gif"} {
		_, err := r.Resolve(ext)
		assert.ErrorIs(t, err, ErrUnrecognized, ext)
	}
	cat, err := r.ResolveName("rapor.final.PDF")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPDF, cat)
}

func TestResolverIgnoresUnknownCategories(t *testing.T) {
	r := NewResolver(map[string][]string{"xml": {".xml"}, "text": {"md"}})
	_, err := r.Resolve(".xml")
	assert.ErrorIs(t, err, ErrUnrecognized)
	assert.Equal(t, []string{".md"}, r.Extensions())
}

type fakePages struct {
	texts map[int]string
	total int
	fail  map[int]bool
}

func (f fakePages) NumPage() int { return f.total }

func (f fakePages) PageText(i int) (string, error) {
	if f.fail[i] {
		return "", errors.New("broken page")
	}
	return f.texts[i], nil
}

func newTestExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	e, err := NewExtractor(Config{}, opts...)
	require.NoError(t, err)
	return e
}

func TestChunkPagesGroupsByFive(t *testing.T) {
	texts := map[int]string{}
	for i := 1; i <= 12; i++ {
		texts[i] = fmt.Sprintf("p%d", i)
	}
	chunks := newTestExtractor(t).chunkPages(fakePages{texts: texts, total: 12})
	require.Len(t, chunks, 3)
	assert.Equal(t, "p1\np2\np3\np4\np5", chunks[0])
	assert.Equal(t, "p11\np12", chunks[2])
}

func TestChunkPagesDropsBlankBatches(t *testing.T) {
	texts := map[int]string{1: "intro", 11: "end"}
	for i := 6; i <= 10; i++ {
		texts[i] = "  \n"
	}
	chunks := newTestExtractor(t).chunkPages(fakePages{texts: texts, total: 12, fail: map[int]bool{2: true}})
	assert.Equal(t, []string{"intro", "end"}, chunks)
}

func TestExtractPDFOpenFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bozuk.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))
	_, err := newTestExtractor(t).Extract(context.Background(), path, models.CategoryPDF, false)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindExtraction))
	assert.Contains(t, err.Error(), "bozuk.pdf")
}

func TestExtractTextUTF8AndLatin1(t *testing.T) {
	dir := t.TempDir()
	utf := filepath.Join(dir, "utf.txt")
	require.NoError(t, os.WriteFile(utf, []byte("Merhaba dünya"), 0o600))
	latin := filepath.Join(dir, "latin.txt")
	require.NoError(t, os.WriteFile(latin, []byte{'c', 'a', 'f', 0xe9}, 0o600))

	e := newTestExtractor(t)
	chunks, err := e.Extract(context.Background(), utf, models.CategoryText, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Merhaba dünya"}, chunks)

	chunks, err = e.Extract(context.Background(), latin, models.CategoryText, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"café"}, chunks)
}

func TestExtractTextMissingFile(t *testing.T) {
	_, err := newTestExtractor(t).Extract(context.Background(), filepath.Join(t.TempDir(), "yok.txt"), models.CategoryText, false)
	assert.True(t, apperr.Is(err, apperr.KindExtraction))
}

func TestExtractJSONCompacts(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "veri.json")
	require.NoError(t, os.WriteFile(good, []byte("{ \"b\" : 1,\n  \"a\": \"şü\" }"), 0o600))
	bad := filepath.Join(dir, "bozuk.json")
	require.NoError(t, os.WriteFile(bad, []byte("{oops"), 0o600))

	e := newTestExtractor(t)
	chunks, err := e.Extract(context.Background(), good, models.CategoryJSON, false)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"b":1,"a":"şü"}`}, chunks)

	_, err = e.Extract(context.Background(), bad, models.CategoryJSON, false)
	assert.True(t, apperr.Is(err, apperr.KindExtraction))
}

type fakeRunner struct {
	out  string
	err  error
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.args = append([]string{name}, args...)
	return []byte(f.out), nil, f.err
}

func TestExtractImageOCR(t *testing.T) {
	runner := &fakeRunner{out: "  Fatura metni \n"}
	e := newTestExtractor(t, WithRunner(runner))
	chunks, err := e.Extract(context.Background(), "/tmp/fatura.png", models.CategoryImage, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fatura metni"}, chunks)
	assert.Equal(t, []string{"tesseract", "/tmp/fatura.png", "stdout", "-l", "tur"}, runner.args)
}

func TestExtractImageEmptyOCR(t *testing.T) {
	e := newTestExtractor(t, WithRunner(&fakeRunner{out: " \n"}))
	chunks, err := e.Extract(context.Background(), "/tmp/bos.png", models.CategoryImage, false)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestExtractImageOCRFailure(t *testing.T) {
	e := newTestExtractor(t, WithRunner(&fakeRunner{err: errors.New("exit 1")}))
	_, err := e.Extract(context.Background(), "/tmp/x.png", models.CategoryImage, false)
	assert.True(t, apperr.Is(err, apperr.KindExtraction))
}

func TestExtractImageVisionBypass(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExtractor(t, WithRunner(runner))
	chunks, err := e.Extract(context.Background(), "/tmp/kedi.jpg", models.CategoryImage, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/kedi.jpg"}, chunks)
	assert.Nil(t, runner.args, "ocr must not run in vision mode")
}

func TestExtractDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "belge.docx")
	doc := document.New()
	doc.AddParagraph().AddRun().AddText("Birinci paragraf")
	doc.AddParagraph().AddRun().AddText("İkinci paragraf")
	require.NoError(t, doc.SaveToFile(path))

	chunks, err := newTestExtractor(t).Extract(context.Background(), path, models.CategoryWord, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Birinci paragraf\nİkinci paragraf"}, chunks)
}

func TestExtractUnsupportedCategory(t *testing.T) {
	_, err := newTestExtractor(t).Extract(context.Background(), "x.bin", models.FileCategory("binary"), false)
	assert.True(t, apperr.Is(err, apperr.KindExtraction))
}
