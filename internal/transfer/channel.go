// Package transfer submits documents to the processing service and follows
// their per-page progress over a server-push channel.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/config"
	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

// Channel is an open progress stream. Ticks are delivered in arrival order.
// The tick channel is closed after a terminal tick, when the stream fails or
// when Close is called.
type Channel interface {
	Ticks() <-chan domain.Tick

	// Err reports why the stream stopped. It is nil after a terminal tick or
	// an explicit Close, and only meaningful once Ticks is closed.
	Err() error

	Close() error
}

// Opener opens a progress channel
type Opener interface {
	Open(ctx context.Context) (Channel, error)
}

// NewOpener returns the opener for the configured transport
func NewOpener(client *api.Client, cfg config.ProgressConfig, logger *observability.Logger) (Opener, error) {
	switch cfg.Transport {
	case config.TransportSSE, "":
		return NewSSEOpener(client, cfg.BufferSize, logger), nil
	case config.TransportWebSocket:
		return NewWebSocketOpener(client, cfg.BufferSize, logger), nil
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown progress transport %q", cfg.Transport), nil)
	}
}

// errStreamEnded is returned by token readers when the server ends the stream
var errStreamEnded = io.EOF

// stream is the transport independent half of a Channel: it turns raw tokens
// into ticks and owns the shutdown bookkeeping.
type stream struct {
	ticks  chan domain.Tick
	done   chan struct{}
	closer func() error
	logger *observability.Logger

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

func newStream(bufferSize int, closer func() error, logger *observability.Logger) *stream {
	if bufferSize < 0 {
		bufferSize = 0
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &stream{
		ticks:  make(chan domain.Tick, bufferSize),
		done:   make(chan struct{}),
		closer: closer,
		logger: logger,
	}
}

func (s *stream) Ticks() <-chan domain.Tick {
	return s.ticks
}

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.done)
		if s.closer != nil {
			err = s.closer()
		}
	})
	return err
}

func (s *stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *stream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.err = err
	}
}

// run pumps tokens from read until the stream ends, a terminal tick is seen
// or the channel is closed.
func (s *stream) run(read func() (string, error)) {
	defer close(s.ticks)

	for {
		token, err := read()
		if err != nil {
			if s.isClosed() {
				return
			}
			if errors.Is(err, errStreamEnded) {
				s.fail(domain.NetworkError("progress stream ended before completion", io.ErrUnexpectedEOF))
			} else {
				s.fail(domain.StreamError("progress stream failed", err))
			}
			return
		}

		tick := domain.ParseTick(token)
		if tick.Kind == domain.TickMalformed {
			s.logger.Debug().Str("token", tick.Raw).Msg("Ignoring malformed progress token")
			continue
		}

		select {
		case s.ticks <- tick:
		case <-s.done:
			return
		}

		if tick.Kind == domain.TickTerminal {
			return
		}
	}
}
