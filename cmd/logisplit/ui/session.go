package ui

import (
	"strings"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/GordonCopestake/Logisplit/internal/session"
)

const (
	segmentDone    = "■"
	segmentPending = "□"

	// above this many pages the segment strip is replaced by a counter
	maxSegmentGlyphs = 60
)

// SessionView draws a session: a spinner while decoding, a render bar for
// the preview and one segment per page while the service processes them.
type SessionView struct {
	mu         sync.Mutex
	progress   *mpb.Progress
	spinner    *Spinner
	renderBar  *mpb.Bar
	segmentBar *mpb.Bar
}

// NewSessionView creates a view writing to stderr
func NewSessionView() *SessionView {
	return &SessionView{
		progress: mpb.New(mpb.WithOutput(errOut), mpb.WithWidth(48)),
	}
}

var _ session.Observer = (*SessionView)(nil)

// StateChanged implements session.Observer
func (v *SessionView) StateChanged(s *session.Session, from, to session.State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch to {
	case session.StatePreviewing:
		v.spinner = NewSpinner(to.Status())
		v.spinner.Start()
	case session.StateUploading:
		v.stopSpinner()
	case session.StateAwaitingProgress:
		v.addSegmentBar(s)
	case session.StateCompleted:
		v.stopSpinner()
		v.finish(v.renderBar)
		v.finish(v.segmentBar)
	case session.StateFailed:
		v.stopSpinner()
		v.abort(v.renderBar)
		v.abort(v.segmentBar)
	}
}

// PagesKnown implements session.Observer
func (v *SessionView) PagesKnown(s *session.Session, pages int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.stopSpinner()
	if pages == 0 {
		return
	}
	name := "Preview"
	v.renderBar = v.progress.AddBar(int64(pages),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), " done"),
		),
	)
}

// PageRendered implements session.Observer
func (v *SessionView) PageRendered(s *session.Session, index, completed, total int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.renderBar != nil {
		v.renderBar.SetCurrent(int64(completed))
	}
}

// SegmentDone implements session.Observer
func (v *SessionView) SegmentDone(s *session.Session, index, completed, total int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.segmentBar != nil {
		v.segmentBar.SetCurrent(int64(completed))
	}
}

// Wait blocks until every bar has been rendered for the last time
func (v *SessionView) Wait() {
	v.mu.Lock()
	v.stopSpinner()
	v.mu.Unlock()

	if IsTerminal() {
		v.progress.Wait()
	} else {
		v.progress.Shutdown()
	}
}

func (v *SessionView) addSegmentBar(s *session.Session) {
	segs := s.Segments()
	if segs.Len() == 0 {
		return
	}
	name := "Processing"
	v.segmentBar = v.progress.AddBar(int64(segs.Len()),
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				return SegmentStrip(segs.Snapshot())
			}),
		),
	)
}

// SegmentStrip renders one glyph per page, filled for processed pages
func SegmentStrip(done []bool) string {
	if len(done) > maxSegmentGlyphs {
		return ""
	}
	var b strings.Builder
	for _, d := range done {
		if d {
			b.WriteString(segmentDone)
		} else {
			b.WriteString(segmentPending)
		}
	}
	return b.String()
}

func (v *SessionView) stopSpinner() {
	if v.spinner != nil {
		v.spinner.Stop()
		v.spinner = nil
	}
}

// finish completes bar at its current value so Wait never blocks on it
func (v *SessionView) finish(bar *mpb.Bar) {
	if bar != nil && !bar.Completed() {
		bar.SetTotal(-1, true)
	}
}

func (v *SessionView) abort(bar *mpb.Bar) {
	if bar != nil && !bar.Completed() {
		bar.Abort(false)
	}
}
