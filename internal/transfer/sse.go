package transfer

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

// maxEventLineSize bounds a single SSE line. Longer lines are discarded
// along with the event they belong to.
const maxEventLineSize = 64 * 1024

// EventParser reads Server-Sent Events and yields the data of each event
type EventParser struct {
	reader *bufio.Reader
}

// NewEventParser creates a new event parser
func NewEventParser(reader io.Reader) *EventParser {
	return &EventParser{
		reader: bufio.NewReader(reader),
	}
}

// Next returns the data of the next event. Multiple data lines of one event
// are joined with a newline. It returns io.EOF when the stream ends; a
// trailing event without its blank line is dropped, as is any event with a
// line longer than maxEventLineSize.
func (p *EventParser) Next() (string, error) {
	var (
		data      []string
		hasData   bool
		oversized bool
	)

	for {
		line, tooLong, err := p.readLine()
		if err != nil {
			return "", err
		}

		if tooLong {
			oversized = true
			continue
		}

		// Blank line dispatches the pending event
		if line == "" {
			if hasData && !oversized {
				return strings.Join(data, "\n"), nil
			}
			data, hasData, oversized = nil, false, false
			continue
		}

		// Comment
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			continue
		}
		data = append(data, strings.TrimPrefix(value, " "))
		hasData = true
	}
}

// readLine returns the next line without its terminator. A line over
// maxEventLineSize is consumed and reported as tooLong with no content.
func (p *EventParser) readLine() (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, isPrefix, err := p.reader.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxEventLineSize {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// SSEOpener opens progress channels over Server-Sent Events
type SSEOpener struct {
	client     *api.Client
	bufferSize int
	logger     *observability.Logger
}

// NewSSEOpener creates an opener for GET /progress event streams
func NewSSEOpener(client *api.Client, bufferSize int, logger *observability.Logger) *SSEOpener {
	if logger == nil {
		logger = observability.Nop()
	}
	return &SSEOpener{
		client:     client,
		bufferSize: bufferSize,
		logger:     logger.WithOperation("progress_sse"),
	}
}

// Open connects to the event stream
func (o *SSEOpener) Open(ctx context.Context) (Channel, error) {
	ctx, cancel := context.WithCancel(ctx)

	resp, err := o.client.TransferR(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		Get(o.client.URL(api.ProgressPath))
	if err := api.Check(resp, err, "open progress stream"); err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		cancel()
		return nil, err
	}

	body := resp.RawBody()
	s := newStream(o.bufferSize, func() error {
		cancel()
		return body.Close()
	}, o.logger)

	parser := NewEventParser(body)
	go s.run(parser.Next)

	o.logger.Debug().Str("url", o.client.URL(api.ProgressPath)).Msg("Progress stream opened")
	return s, nil
}
