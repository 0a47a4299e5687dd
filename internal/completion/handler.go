// Package completion retrieves the processed archive once a document has been fully processed.
package completion

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/config"
	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

// DefaultFilename is the name the archive is saved under
const DefaultFilename = "processed.zip"

// ProgressFunc is called once the download size is known (-1 when the server
// does not announce it). The returned writer receives every downloaded byte.
type ProgressFunc func(total int64) io.Writer

// Handler downloads the archive into a temporary file and saves it
type Handler struct {
	client   *api.Client
	dir      string
	filename string
	tempDir  string
	progress ProgressFunc
	logger   *observability.Logger
}

// NewHandler creates a new completion handler
func NewHandler(client *api.Client, cfg config.OutputConfig, logger *observability.Logger) *Handler {
	if logger == nil {
		logger = observability.Nop()
	}
	filename := cfg.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	return &Handler{
		client:   client,
		dir:      dir,
		filename: filename,
		logger:   logger.WithOperation("download"),
	}
}

// SetProgress installs a download progress hook
func (h *Handler) SetProgress(fn ProgressFunc) {
	h.progress = fn
}

// SetTempDir changes where the temporary download is staged
func (h *Handler) SetTempDir(dir string) {
	h.tempDir = dir
}

// Complete downloads the archive and saves it. It returns the saved path.
// The temporary file is removed whether or not the save succeeds.
func (h *Handler) Complete(ctx context.Context) (string, error) {
	startTime := time.Now()

	resp, err := h.client.TransferR(ctx).
		SetDoNotParseResponse(true).
		Get(h.client.URL(api.DownloadPath))
	if resp != nil && resp.RawBody() != nil {
		defer resp.RawBody().Close()
	}
	if err := api.Check(resp, err, "download archive"); err != nil {
		h.logger.Error().Err(err).Msg("Download failed")
		return "", err
	}

	temp, err := os.CreateTemp(h.tempDir, "logisplit-*.zip")
	if err != nil {
		return "", domain.IOError("failed to create temporary file", err)
	}
	defer func() {
		temp.Close()
		if err := os.Remove(temp.Name()); err != nil && !os.IsNotExist(err) {
			h.logger.Warn().Err(err).Str("path", temp.Name()).Msg("Failed to remove temporary download")
		}
	}()

	var dst io.Writer = temp
	if h.progress != nil {
		var total int64 = -1
		if resp.RawResponse != nil {
			total = resp.RawResponse.ContentLength
		}
		if w := h.progress(total); w != nil {
			dst = io.MultiWriter(temp, w)
		}
	}

	written, err := io.Copy(dst, resp.RawBody())
	if err != nil {
		return "", domain.NetworkError("failed to read archive", err)
	}

	path, err := h.save(temp)
	if err != nil {
		return "", err
	}

	h.logger.Info().
		Str("path", path).
		Int64("bytes", written).
		Dur("duration", time.Since(startTime)).
		Msg("Archive saved")

	return path, nil
}

// save copies the staged download to its final location
func (h *Handler) save(temp *os.File) (string, error) {
	if _, err := temp.Seek(0, io.SeekStart); err != nil {
		return "", domain.IOError("failed to rewind temporary file", err)
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return "", domain.IOError("failed to create output directory", err)
	}

	path := filepath.Join(h.dir, h.filename)
	out, err := os.Create(path)
	if err != nil {
		return "", domain.IOError(fmt.Sprintf("failed to create %s", path), err)
	}

	if _, err := io.Copy(out, temp); err != nil {
		out.Close()
		return "", domain.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	if err := out.Close(); err != nil {
		return "", domain.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return path, nil
}
