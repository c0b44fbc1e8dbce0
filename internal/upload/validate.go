package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrNoFile is returned when the request carried no file part
	ErrNoFile = errors.New("no file uploaded")

	// ErrNoFileSelected is returned when the file part has an empty name
	ErrNoFileSelected = errors.New("no file selected")

	// ErrInvalidType is returned for anything that is not an Excel workbook
	ErrInvalidType = errors.New("invalid file type")

	// ErrTooLarge is returned when the file exceeds the configured limit
	ErrTooLarge = errors.New("file too large")
)

// zipMagic starts every OOXML workbook
var zipMagic = []byte("PK\x03\x04")

// Extensions lists the workbook extensions excelize can open
var Extensions = map[string]bool{
	"xlsx": true,
	"xlsm": true,
	"xltx": true,
	"xltm": true,
}

// Limits configures upload validation
type Limits struct {
	MaxFileSize int64 // bytes, 0 means unlimited
}

// AllowedFile checks if the file name has an allowed extension
func AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ext != "" && Extensions[ext]
}

// Validate checks the declared name and size of an upload
func Validate(filename string, size int64, limits Limits) error {
	if filename == "" {
		return ErrNoFileSelected
	}
	if !AllowedFile(filename) {
		return ErrInvalidType
	}
	if limits.MaxFileSize > 0 && size > limits.MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds the limit of %d bytes", ErrTooLarge, size, limits.MaxFileSize)
	}
	return nil
}

// Sniff reads the whole file (bounded by the caller) and verifies it looks
// like a zip container. The returned bytes are safe to hand to the parser.
func Sniff(r io.Reader, limits Limits) ([]byte, error) {
	src := r
	if limits.MaxFileSize > 0 {
		// one extra byte tells an exact-size file apart from an oversize one
		src = io.LimitReader(r, limits.MaxFileSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if limits.MaxFileSize > 0 && int64(len(data)) > limits.MaxFileSize {
		return nil, ErrTooLarge
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return nil, ErrInvalidType
	}
	return data, nil
}

// HumanSize formats a byte count the way error messages show limits
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	v := float64(n) / float64(div)
	suffix := "KMGT"[exp : exp+1]
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d%sB", int64(v), suffix)
	}
	return fmt.Sprintf("%.1f%sB", v, suffix)
}
