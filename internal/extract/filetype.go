package extract

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"metinanaliz/internal/models"
)

// ErrUnrecognized is returned for extensions outside the configured map.
var ErrUnrecognized = errors.New("unrecognized file type")

var knownCategories = map[models.FileCategory]bool{
	models.CategoryPDF:   true,
	models.CategoryImage: true,
	models.CategoryText:  true,
	models.CategoryWord:  true,
	models.CategoryJSON:  true,
}

// Resolver maps file extensions to categories.
type Resolver struct {
	byExt map[string]models.FileCategory
}

// NewResolver builds a resolver from a category → extensions map. Categories
// the extractor cannot handle are ignored.
func NewResolver(allowed map[string][]string) *Resolver {
	r := &Resolver{byExt: make(map[string]models.FileCategory)}
	for cat, exts := range allowed {
		category := models.FileCategory(strings.ToLower(cat))
		if !knownCategories[category] {
			continue
		}
		for _, ext := range exts {
			r.byExt[normalizeExt(ext)] = category
		}
	}
	return r
}

// Resolve returns the category for ext ("pdf", ".PDF" and ".pdf" are equal).
func (r *Resolver) Resolve(ext string) (models.FileCategory, error) {
	if cat, ok := r.byExt[normalizeExt(ext)]; ok {
		return cat, nil
	}
	return "", ErrUnrecognized
}

// ResolveName resolves the category from a file name.
func (r *Resolver) ResolveName(name string) (models.FileCategory, error) {
	return r.Resolve(filepath.Ext(name))
}

// Extensions returns the accepted extensions, sorted.
func (r *Resolver) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
