package internal

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// ExportTimestampLayout is the layout used in generated file names
const ExportTimestampLayout = "20060102_150405"

// TimestampedName builds "<prefix>_<YYYYMMDD_HHMMSS>.<ext>"
func TimestampedName(prefix, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, t.Format(ExportTimestampLayout), strings.TrimPrefix(ext, "."))
}

// SanitizeFilename creates a safe filename from an uploaded file name.
// Directory components are dropped and anything that is not a letter,
// digit, dot, dash or underscore is replaced with an underscore.
func SanitizeFilename(s string) string {
	// Browsers on Windows may send full paths
	s = filepath.Base(strings.ReplaceAll(s, "\\", "/"))
	if s == "." || s == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range s {
		if isAlphaNumeric(r) || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.TrimLeft(b.String(), ".")
}

// isAlphaNumeric checks if a rune is a letter or digit in any script
func isAlphaNumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
