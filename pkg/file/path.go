package file

import (
	"path/filepath"
	"strings"
)

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}

	return filepath.Join(dir, filename[:lastDot]+ext)
}

// WithLanguage inserts a language tag before the extension:
// "docs/app.json" -> "docs/app.fr.json".
func WithLanguage(path, lang string) string {
	if path == "" || lang == "" {
		return path
	}
	ext := filepath.Ext(filepath.Base(path))
	if ext == filepath.Base(path) {
		ext = ""
	}
	return ReplaceExt(path, "."+lang+ext)
}
