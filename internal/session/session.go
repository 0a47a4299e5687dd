// Package session drives one document through preview, upload, progress and download.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/preview"
	"github.com/GordonCopestake/Logisplit/internal/transfer"
)

// ErrSuperseded is recorded on a session abandoned in favour of a newer one
var ErrSuperseded = errors.New("session superseded by a newer upload")

// Session is the state of one upload. It is created fresh by every Run.
type Session struct {
	ID   string
	File domain.File

	mu          sync.RWMutex
	state       State
	pageCount   int
	rendered    []bool
	segments    *domain.Segments
	preview     *preview.Preview
	archivePath string
	err         error
	channel     transfer.Channel
	cancel      context.CancelCauseFunc
}

func newSession(file domain.File) *Session {
	return &Session{
		ID:       uuid.New().String(),
		File:     file,
		state:    StateIdle,
		segments: domain.NewSegments(0),
	}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// PageCount returns the number of pages, known once the file is decoded
func (s *Session) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageCount
}

// Rendered returns a copy of the per-page render flags
func (s *Session) Rendered() []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bool, len(s.rendered))
	copy(out, s.rendered)
	return out
}

// Segments returns the progress segments
func (s *Session) Segments() *domain.Segments {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.segments
}

// Preview returns the resolved preview, nil until rendering finished
func (s *Session) Preview() *preview.Preview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preview
}

// ArchivePath returns where the result was saved
func (s *Session) ArchivePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.archivePath
}

// Err returns the failure that ended the session
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) transition(to State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.state
	if !CanTransition(from, to) {
		return from, fmt.Errorf("invalid session transition %s -> %s", from, to)
	}
	s.state = to
	return from, nil
}

func (s *Session) setPages(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageCount = n
	s.rendered = make([]bool, n)
	s.segments = domain.NewSegments(n)
}

func (s *Session) markRendered(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.rendered) {
		s.rendered[index] = true
	}
}

func (s *Session) setPreview(p *preview.Preview) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = p
}

func (s *Session) setArchivePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archivePath = path
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// attach records ch as the open channel. It reports false, leaving ch
// untouched, when the session has already been abandoned.
func (s *Session) attach(ch transfer.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() || s.err != nil {
		return false
	}
	s.channel = ch
	return true
}

// closeChannel closes the open channel, if any. Safe to call repeatedly.
func (s *Session) closeChannel() {
	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	s.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
}

// abandon tears the session down in favour of a newer one
func (s *Session) abandon() {
	s.setErr(ErrSuperseded)

	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel(ErrSuperseded)
	}
	s.closeChannel()
}
