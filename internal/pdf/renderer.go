package pdf

import (
	"context"
	"fmt"

	"github.com/GordonCopestake/Logisplit/internal/domain"
)

// BaseDPI is the resolution of a page rendered at scale 1.
const BaseDPI = 72.0

// Renderer converts single pages of a decoded document into thumbnails
type Renderer struct {
	scale float64
}

// NewRenderer creates a renderer drawing pages at a fixed scale
func NewRenderer(scale float64) *Renderer {
	if scale <= 0 {
		scale = 0.5
	}
	return &Renderer{scale: scale}
}

// Scale returns the render scale
func (r *Renderer) Scale() float64 {
	return r.scale
}

// Render paints page index of doc into a thumbnail
func (r *Renderer) Render(ctx context.Context, doc Document, index int) (*domain.Thumbnail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if index < 0 || index >= doc.PageCount() {
		return nil, domain.RenderError(fmt.Sprintf("page %d out of range", index+1), nil)
	}

	img, err := doc.Rasterize(index, BaseDPI*r.scale)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to render page %d", index+1), err)
	}

	bounds := img.Bounds()
	return &domain.Thumbnail{
		PageIndex: index,
		Image:     img,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}, nil
}
