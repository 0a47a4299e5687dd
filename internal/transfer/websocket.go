package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

// WebSocketOpener opens progress channels over a WebSocket, one token per frame
type WebSocketOpener struct {
	client     *api.Client
	dialer     *websocket.Dialer
	bufferSize int
	logger     *observability.Logger
}

// NewWebSocketOpener creates an opener for ws(s)://.../progress
func NewWebSocketOpener(client *api.Client, bufferSize int, logger *observability.Logger) *WebSocketOpener {
	if logger == nil {
		logger = observability.Nop()
	}
	return &WebSocketOpener{
		client:     client,
		dialer:     websocket.DefaultDialer,
		bufferSize: bufferSize,
		logger:     logger.WithOperation("progress_ws"),
	}
}

// Open dials the progress endpoint
func (o *WebSocketOpener) Open(ctx context.Context) (Channel, error) {
	wsURL, err := o.client.WebSocketURL(api.ProgressPath)
	if err != nil {
		return nil, err
	}

	conn, resp, err := o.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			if resp.StatusCode >= 300 {
				return nil, domain.HTTPError("open progress socket", resp.StatusCode)
			}
		}
		return nil, domain.NetworkError("open progress socket", err)
	}

	s := newStream(o.bufferSize, func() error {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return conn.Close()
	}, o.logger)

	go s.run(func() (string, error) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", errStreamEnded
			}
			return "", err
		}
		return strings.TrimSpace(string(msg)), nil
	})

	o.logger.Debug().Str("url", wsURL).Msg("Progress socket opened")
	return s, nil
}
