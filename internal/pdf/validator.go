package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

const maxSize = 100 * 1024 * 1024 // 100MB

var pdfMagic = []byte("%PDF-")

// Validator provides input validation for PDF files
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger *observability.Logger) *Validator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Validator{logger: logger}
}

// ValidatePath validates that a file path is valid and points to a PDF
func (v *Validator) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	if info.Size() > maxSize {
		// Just a warning, not an error
		v.logger.Warn().
			Int64("size_mb", info.Size()/(1024*1024)).
			Msg("PDF file is very large, preview may take a while")
	}

	return nil
}

// ValidateContent checks that the bytes look like a PDF document
func (v *Validator) ValidateContent(file domain.File) error {
	if len(file.Data) == 0 {
		return domain.DecodeError(fmt.Sprintf("%s is empty", file.Name), nil)
	}
	if !bytes.HasPrefix(file.Data, pdfMagic) {
		return domain.DecodeError(fmt.Sprintf("%s is not a PDF document", file.Name), nil)
	}
	return nil
}

// LoadFile validates path and reads the whole file into memory
func LoadFile(path string, v *Validator) (domain.File, error) {
	if err := v.ValidatePath(path); err != nil {
		return domain.File{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.File{}, domain.IOError(fmt.Sprintf("cannot read file: %s", path), err)
	}

	return domain.File{Name: filepath.Base(path), Data: data}, nil
}
