// Package preview decodes a document locally and renders a thumbnail for every page.
package preview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
	"github.com/GordonCopestake/Logisplit/internal/pdf"
)

// Decoder opens a document from raw bytes
type Decoder interface {
	Decode(ctx context.Context, file domain.File) (pdf.Document, error)
}

// Renderer draws one page of a decoded document
type Renderer interface {
	Render(ctx context.Context, doc pdf.Document, index int) (*domain.Thumbnail, error)
}

// ThumbnailSink persists a rendered thumbnail
type ThumbnailSink interface {
	Write(thumb *domain.Thumbnail) (string, error)
}

// Hooks receive preview progress. Hooks are never called concurrently.
type Hooks struct {
	// OnDecoded runs once the page count is known, after placeholders exist
	OnDecoded func(pages int)

	// OnPageRendered runs after each page render, in completion order
	OnPageRendered func(index, completed, total int)
}

// Placeholder is the slot reserved for one page, filled when the page renders
type Placeholder struct {
	Index     int
	Thumbnail *domain.Thumbnail
	Path      string // set when a ThumbnailSink is configured
}

// Preview is the resolved result of a Coordinator run
type Preview struct {
	PageCount    int
	Placeholders []*Placeholder
	Duration     time.Duration
}

// Coordinator orchestrates decoding and concurrent page rendering
type Coordinator struct {
	decoder       Decoder
	renderer      Renderer
	sink          ThumbnailSink
	maxConcurrent int
	logger        *observability.Logger
}

// NewCoordinator creates a coordinator. sink may be nil.
func NewCoordinator(decoder Decoder, renderer Renderer, sink ThumbnailSink, maxConcurrent int, logger *observability.Logger) *Coordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Coordinator{
		decoder:       decoder,
		renderer:      renderer,
		sink:          sink,
		maxConcurrent: maxConcurrent,
		logger:        logger.WithOperation("preview"),
	}
}

// Preview decodes file, creates one placeholder per page in page order and
// returns once every page has rendered. Pages render concurrently and may
// finish in any order. The first decode or render failure is returned.
func (c *Coordinator) Preview(ctx context.Context, file domain.File, hooks Hooks) (*Preview, error) {
	startTime := time.Now()

	doc, err := c.decoder.Decode(ctx, file)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	total := doc.PageCount()
	result := &Preview{
		PageCount:    total,
		Placeholders: make([]*Placeholder, total),
	}
	for i := range result.Placeholders {
		result.Placeholders[i] = &Placeholder{Index: i}
	}

	if hooks.OnDecoded != nil {
		hooks.OnDecoded(total)
	}

	if total == 0 {
		c.logger.Debug().Str("file", file.Name).Msg("Document has no pages")
		result.Duration = time.Since(startTime)
		return result, nil
	}

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for i := 0; i < total; i++ {
		placeholder := result.Placeholders[i]
		g.Go(func() error {
			thumb, err := c.renderer.Render(gctx, doc, placeholder.Index)
			if err != nil {
				return err
			}

			var path string
			if c.sink != nil {
				if path, err = c.sink.Write(thumb); err != nil {
					return err
				}
			}

			mu.Lock()
			defer mu.Unlock()

			placeholder.Thumbnail = thumb
			placeholder.Path = path
			completed++
			if hooks.OnPageRendered != nil {
				hooks.OnPageRendered(placeholder.Index, completed, total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Error().Err(err).Str("file", file.Name).Msg("Preview failed")
		return nil, err
	}

	if completed != total {
		return nil, domain.RenderError(fmt.Sprintf("rendered %d of %d pages", completed, total), nil)
	}

	result.Duration = time.Since(startTime)
	c.logger.Info().
		Str("file", file.Name).
		Int("pages", total).
		Dur("duration", result.Duration).
		Msg("Preview complete")

	return result, nil
}
