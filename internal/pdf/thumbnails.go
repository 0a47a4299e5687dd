package pdf

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/GordonCopestake/Logisplit/internal/domain"
)

// ThumbnailWriter saves rendered thumbnails as JPG files in a directory
type ThumbnailWriter struct {
	dir     string
	quality int
}

// NewThumbnailWriter creates the target directory if needed
func NewThumbnailWriter(dir string, quality int) (*ThumbnailWriter, error) {
	if quality < 1 || quality > 100 {
		return nil, domain.ValidationError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.IOError("failed to create thumbnail directory", err)
	}
	return &ThumbnailWriter{dir: dir, quality: quality}, nil
}

// Write encodes thumb and returns the written path
func (w *ThumbnailWriter) Write(thumb *domain.Thumbnail) (string, error) {
	outputPath := filepath.Join(w.dir, fmt.Sprintf("page_%03d.jpg", thumb.PageIndex+1))
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return "", domain.IOError(fmt.Sprintf("failed to create thumbnail for page %d", thumb.PageIndex+1), err)
	}

	err = jpeg.Encode(outputFile, thumb.Image, &jpeg.Options{Quality: w.quality})
	closeErr := outputFile.Close()
	if err != nil {
		return "", domain.IOError(fmt.Sprintf("failed to encode page %d as JPG", thumb.PageIndex+1), err)
	}
	if closeErr != nil {
		return "", domain.IOError(fmt.Sprintf("failed to write thumbnail for page %d", thumb.PageIndex+1), closeErr)
	}

	return outputPath, nil
}
