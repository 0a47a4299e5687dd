package commands

import (
	"io"

	"github.com/GordonCopestake/Logisplit/cmd/logisplit/ui"
	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/cache"
	"github.com/GordonCopestake/Logisplit/internal/completion"
	"github.com/GordonCopestake/Logisplit/internal/config"
	"github.com/GordonCopestake/Logisplit/internal/observability"
	"github.com/GordonCopestake/Logisplit/internal/patterns"
	"github.com/GordonCopestake/Logisplit/internal/pdf"
	"github.com/GordonCopestake/Logisplit/internal/preview"
	"github.com/GordonCopestake/Logisplit/internal/session"
	"github.com/GordonCopestake/Logisplit/internal/transfer"
)

// newAPIClient builds the processing service client from cfg.
func newAPIClient(cfg *config.Config) *api.Client {
	return api.NewClient(api.Options{
		BaseURL:      cfg.Backend.BaseURL,
		Timeout:      cfg.Backend.RequestTimeout,
		RetryCount:   cfg.Backend.RetryCount,
		RetryWait:    cfg.Backend.RetryWait,
		RetryMaxWait: cfg.Backend.RetryMaxWait,
	})
}

// newController wires preview, transfer and completion into a session controller.
func newController(cfg *config.Config, client *api.Client, logger *observability.Logger) (*session.Controller, error) {
	var sink preview.ThumbnailSink
	if cfg.Preview.ThumbnailDir != "" {
		writer, err := pdf.NewThumbnailWriter(cfg.Preview.ThumbnailDir, cfg.Preview.ThumbnailQuality)
		if err != nil {
			return nil, err
		}
		sink = writer
	}

	coordinator := preview.NewCoordinator(
		pdf.NewDecoder(logger),
		pdf.NewRenderer(cfg.Preview.Scale),
		sink,
		cfg.Preview.MaxConcurrentRenders,
		logger,
	)

	opener, err := transfer.NewOpener(client, cfg.Progress, logger)
	if err != nil {
		return nil, err
	}
	pipeline := transfer.NewPipeline(transfer.NewUploader(client, logger), opener, logger)

	handler := completion.NewHandler(client, cfg.Output, logger)
	handler.SetProgress(func(total int64) io.Writer {
		return ui.NewDownloadBar(total)
	})

	return session.NewController(coordinator, pipeline, handler, logger), nil
}

// newPatternClient builds the pattern registry client and its cache. The
// returned close function releases the cache.
func newPatternClient(cfg *config.Config, logger *observability.Logger) (*patterns.Client, func(), error) {
	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	if c != nil {
		closeFn = func() {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close cache")
			}
		}
	}

	return patterns.NewClient(newAPIClient(cfg), c, cfg.Cache.TTL, logger), closeFn, nil
}
