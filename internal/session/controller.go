package session

import (
	"context"
	"sync"
	"time"

	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
	"github.com/GordonCopestake/Logisplit/internal/preview"
	"github.com/GordonCopestake/Logisplit/internal/transfer"
)

// Previewer renders a local preview of a document
type Previewer interface {
	Preview(ctx context.Context, file domain.File, hooks preview.Hooks) (*preview.Preview, error)
}

// Starter submits a document and opens its progress channel
type Starter interface {
	Start(ctx context.Context, file domain.File) (*transfer.Transfer, error)
}

// Completer retrieves the processed result
type Completer interface {
	Complete(ctx context.Context) (string, error)
}

// Observer is notified as a session advances. PagesKnown and PageRendered
// may be called from render workers; calls never overlap.
type Observer interface {
	StateChanged(s *Session, from, to State)
	PagesKnown(s *Session, pages int)
	PageRendered(s *Session, index, completed, total int)
	SegmentDone(s *Session, index, completed, total int)
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) StateChanged(*Session, State, State)  {}
func (NopObserver) PagesKnown(*Session, int)             {}
func (NopObserver) PageRendered(*Session, int, int, int) {}
func (NopObserver) SegmentDone(*Session, int, int, int)  {}

// Controller runs upload sessions. At most one session is current; starting
// a new one tears the previous one down.
type Controller struct {
	previewer Previewer
	starter   Starter
	completer Completer
	observer  Observer
	logger    *observability.Logger

	mu      sync.Mutex
	current *Session
}

// NewController creates a new session controller
func NewController(previewer Previewer, starter Starter, completer Completer, logger *observability.Logger) *Controller {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Controller{
		previewer: previewer,
		starter:   starter,
		completer: completer,
		observer:  NopObserver{},
		logger:    logger,
	}
}

// SetObserver installs o; nil restores the no-op observer
func (c *Controller) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	c.observer = o
}

// Current returns the most recently started session
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Run takes file through preview, upload, progress tracking and download.
// The returned session is always non-nil; on failure it is in StateFailed
// and its error is also returned.
func (c *Controller) Run(ctx context.Context, file domain.File) (*Session, error) {
	s := newSession(file)
	logger := c.logger.WithSession(s.ID)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	s.cancel = cancel

	c.mu.Lock()
	prev := c.current
	c.current = s
	c.mu.Unlock()
	if prev != nil && !prev.State().Terminal() {
		logger.Info().Str("previous", prev.ID).Msg("Superseding running session")
		prev.abandon()
	}

	startTime := time.Now()
	logger.Info().Str("file", file.Name).Int64("bytes", file.Size()).Msg("Session started")

	// Preview must fully resolve before anything is sent
	if err := c.advance(s, StatePreviewing); err != nil {
		return c.fail(s, logger, err)
	}
	p, err := c.previewer.Preview(runCtx, file, preview.Hooks{
		OnDecoded: func(pages int) {
			s.setPages(pages)
			c.observer.PagesKnown(s, pages)
		},
		OnPageRendered: func(index, completed, total int) {
			s.markRendered(index)
			c.observer.PageRendered(s, index, completed, total)
		},
	})
	if err != nil {
		return c.fail(s, logger, err)
	}
	s.setPreview(p)
	if p.PageCount != s.PageCount() {
		s.setPages(p.PageCount)
	}

	if err := c.advance(s, StateUploading); err != nil {
		return c.fail(s, logger, err)
	}
	tr, err := c.starter.Start(runCtx, file)
	if err != nil {
		return c.fail(s, logger, err)
	}
	if !s.attach(tr.Channel) {
		_ = tr.Channel.Close()
		return c.fail(s, logger, context.Cause(runCtx))
	}

	if err := c.advance(s, StateAwaitingProgress); err != nil {
		return c.fail(s, logger, err)
	}
	if err := c.track(runCtx, s, tr, logger); err != nil {
		return c.fail(s, logger, err)
	}

	path, err := c.completer.Complete(runCtx)
	if err != nil {
		return c.fail(s, logger, err)
	}
	s.setArchivePath(path)

	if err := c.advance(s, StateCompleted); err != nil {
		return c.fail(s, logger, err)
	}

	logger.Info().
		Str("archive", path).
		Int("pages", s.PageCount()).
		Dur("duration", time.Since(startTime)).
		Msg("Session completed")

	return s, nil
}

// track applies progress ticks until the terminal tick. The channel is
// closed before returning.
func (c *Controller) track(ctx context.Context, s *Session, tr *transfer.Transfer, logger *observability.Logger) error {
	defer s.closeChannel()

	segs := s.Segments()
	ticks := tr.Channel.Ticks()
	upload := tr.Upload

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)

		case err := <-upload:
			upload = nil
			if err != nil {
				return err
			}
			logger.Debug().Msg("Upload finished")

		case tick, ok := <-ticks:
			if !ok {
				if ctx.Err() != nil {
					return context.Cause(ctx)
				}
				if err := tr.Channel.Err(); err != nil {
					return err
				}
				return domain.NetworkError("progress channel closed before completion", nil)
			}

			marked, terminal := transfer.Apply(segs, tick)
			if terminal {
				logger.Debug().Int("completed", segs.Completed()).Int("total", segs.Len()).Msg("Processing finished")
				return nil
			}
			if marked {
				c.observer.SegmentDone(s, tick.Index, segs.Completed(), segs.Len())
			} else if tick.Kind == domain.TickIndex {
				logger.Debug().Int("index", tick.Index).Msg("Ignoring tick for unknown or finished page")
			}
		}
	}
}

func (c *Controller) advance(s *Session, to State) error {
	from, err := s.transition(to)
	if err != nil {
		return err
	}
	c.observer.StateChanged(s, from, to)
	return nil
}

func (c *Controller) fail(s *Session, logger *observability.Logger, err error) (*Session, error) {
	s.closeChannel()
	s.setErr(err)
	err = s.Err()

	if from, terr := s.transition(StateFailed); terr == nil {
		c.observer.StateChanged(s, from, StateFailed)
	}

	logger.Error().Err(err).Str("file", s.File.Name).Msg("Session failed")
	return s, err
}
