package ingest

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadBytes caps uploaded workbooks. Cohort files are small; anything
// larger is almost certainly the wrong file.
const MaxUploadBytes = 50 << 20

// xlsx files are ZIP containers.
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// FileValidator performs pre-flight checks on uploaded workbooks before
// they reach the parser.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a validator. A nil logger falls back to
// slog.Default.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

// ValidateFile checks that path points to a readable, plausible .xlsx file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("cannot access file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > MaxUploadBytes {
		return fmt.Errorf("file exceeds %d MB limit: %s", MaxUploadBytes>>20, path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".xlsx" {
		return fmt.Errorf("unsupported file type %q, expected .xlsx", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open file %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("cannot read file header: %w", err)
	}
	if !bytes.Equal(header, zipMagic) {
		return fmt.Errorf("file is not a valid xlsx workbook: %s", path)
	}

	v.logger.Debug("file validated",
		slog.String("path", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateUpload checks an uploaded workbook held in memory.
func (v *FileValidator) ValidateUpload(filename string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("uploaded file is empty")
	}
	if len(data) > MaxUploadBytes {
		return fmt.Errorf("uploaded file exceeds %d MB limit", MaxUploadBytes>>20)
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".xlsx" {
		return fmt.Errorf("unsupported file type %q, expected .xlsx", ext)
	}
	if len(data) < len(zipMagic) || !bytes.Equal(data[:len(zipMagic)], zipMagic) {
		return fmt.Errorf("uploaded file is not a valid xlsx workbook")
	}
	return nil
}
