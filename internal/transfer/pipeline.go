package transfer

import (
	"bytes"
	"context"

	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

// Submitter sends a document for processing
type Submitter interface {
	Submit(ctx context.Context, file domain.File) error
}

// Uploader posts documents as multipart form data
type Uploader struct {
	client *api.Client
	logger *observability.Logger
}

// NewUploader creates a new uploader
func NewUploader(client *api.Client, logger *observability.Logger) *Uploader {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Uploader{
		client: client,
		logger: logger.WithOperation("upload"),
	}
}

// Submit posts file in a single "file" field. The response body is ignored.
func (u *Uploader) Submit(ctx context.Context, file domain.File) error {
	u.logger.Debug().Str("file", file.Name).Int64("bytes", file.Size()).Msg("Uploading document")

	resp, err := u.client.TransferR(ctx).
		SetFileReader("file", file.Name, bytes.NewReader(file.Data)).
		Post(u.client.URL(api.UploadPath))
	if err := api.Check(resp, err, "upload "+file.Name); err != nil {
		u.logger.Error().Err(err).Str("file", file.Name).Msg("Upload failed")
		return err
	}

	u.logger.Info().Str("file", file.Name).Int("status", resp.StatusCode()).Msg("Upload accepted")
	return nil
}

// Transfer is a started submission: the open progress channel plus the
// eventual upload result, delivered once on Upload.
type Transfer struct {
	Channel Channel
	Upload  <-chan error
}

// Pipeline fires the upload and opens the progress channel
type Pipeline struct {
	submitter Submitter
	opener    Opener
	logger    *observability.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(submitter Submitter, opener Opener, logger *observability.Logger) *Pipeline {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Pipeline{
		submitter: submitter,
		opener:    opener,
		logger:    logger.WithOperation("transfer"),
	}
}

// Start submits file in the background and opens the progress channel.
// The upload is not awaited; its result arrives on Transfer.Upload.
func (p *Pipeline) Start(ctx context.Context, file domain.File) (*Transfer, error) {
	upload := make(chan error, 1)
	go func() {
		upload <- p.submitter.Submit(ctx, file)
	}()

	ch, err := p.opener.Open(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to open progress channel")
		return nil, err
	}

	return &Transfer{Channel: ch, Upload: upload}, nil
}

// Apply folds tick into segs. It reports whether a segment changed state and
// whether tick ends the stream. Malformed ticks and unknown indices are no-ops.
func Apply(segs *domain.Segments, tick domain.Tick) (marked, terminal bool) {
	switch tick.Kind {
	case domain.TickIndex:
		return segs.Mark(tick.Index), false
	case domain.TickTerminal:
		return false, true
	default:
		return false, false
	}
}
