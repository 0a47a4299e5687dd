package pdf

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

// Document is a decoded PDF held in memory
type Document interface {
	// PageCount returns the number of pages
	PageCount() int

	// Rasterize renders page index (0-based) at the given resolution
	Rasterize(index int, dpi float64) (image.Image, error)

	// Close releases the decoded document
	Close() error
}

// Decoder implements in-memory PDF decoding using go-fitz
type Decoder struct {
	validator *Validator
	logger    *observability.Logger
}

// NewDecoder creates a new PDF decoder instance
func NewDecoder(logger *observability.Logger) *Decoder {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Decoder{
		validator: NewValidator(logger),
		logger:    logger.WithOperation("decode"),
	}
}

// Decode parses file and reports its page count
func (d *Decoder) Decode(ctx context.Context, file domain.File) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := d.validator.ValidateContent(file); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(file.Data)
	if err != nil {
		return nil, domain.DecodeError(fmt.Sprintf("failed to open %s", file.Name), err)
	}

	d.logger.Debug().
		Str("file", file.Name).
		Int("pages", doc.NumPage()).
		Msg("Decoded document")

	return &fitzDocument{doc: doc}, nil
}

// fitzDocument adapts *fitz.Document. go-fitz serialises page access internally.
type fitzDocument struct {
	doc *fitz.Document
}

func (f *fitzDocument) PageCount() int {
	return f.doc.NumPage()
}

func (f *fitzDocument) Rasterize(index int, dpi float64) (image.Image, error) {
	img, err := f.doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (f *fitzDocument) Close() error {
	return f.doc.Close()
}
