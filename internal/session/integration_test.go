package session

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/completion"
	"github.com/GordonCopestake/Logisplit/internal/config"
	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/pdf"
	"github.com/GordonCopestake/Logisplit/internal/preview"
	"github.com/GordonCopestake/Logisplit/internal/transfer"
)

func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 14)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, fmt.Sprintf("Page %d", i+1))
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

// processingService fakes the remote splitter for one document
type processingService struct {
	uploads   atomic.Int32
	downloads atomic.Int32
	tokens    []string
}

func (p *processingService) router() http.Handler {
	r := chi.NewRouter()
	r.Post(api.UploadPath, func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.uploads.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	r.Get(api.ProgressPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, tok := range p.tokens {
			fmt.Fprintf(w, "data: %s\n\n", tok)
			flusher.Flush()
		}
	})
	r.Get(api.DownloadPath, func(w http.ResponseWriter, r *http.Request) {
		p.downloads.Add(1)
		w.Header().Set("Content-Type", "application/zip")
		w.Write([]byte("PK\x03\x04"))
	})
	return r
}

func TestRunEndToEnd(t *testing.T) {
	svc := &processingService{tokens: []string{"0", "2", "1", "done"}}
	srv := httptest.NewServer(svc.router())
	defer srv.Close()

	outDir := t.TempDir()
	client := api.NewClient(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})

	coordinator := preview.NewCoordinator(pdf.NewDecoder(nil), pdf.NewRenderer(0.5), nil, 2, nil)
	opener, err := transfer.NewOpener(client, config.ProgressConfig{Transport: config.TransportSSE, BufferSize: 4}, nil)
	require.NoError(t, err)
	pipeline := transfer.NewPipeline(transfer.NewUploader(client, nil), opener, nil)
	handler := completion.NewHandler(client, config.OutputConfig{Dir: outDir}, nil)

	observer := &recordingObserver{}
	c := NewController(coordinator, pipeline, handler, nil)
	c.SetObserver(observer)

	file := domain.File{Name: "invoices.pdf", Data: buildPDF(t, 3)}
	s, err := c.Run(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, 3, s.PageCount())
	assert.Equal(t, 3, s.Segments().Completed())
	require.NotNil(t, s.Preview())
	for _, p := range s.Preview().Placeholders {
		assert.NotNil(t, p.Thumbnail)
	}

	assert.Equal(t, filepath.Join(outDir, completion.DefaultFilename), s.ArchivePath())
	data, err := os.ReadFile(s.ArchivePath())
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), data)

	assert.Equal(t, int32(1), svc.downloads.Load())
	assert.Equal(t, []int{0, 2, 1}, observer.segments)
	assert.ElementsMatch(t, []int{0, 1, 2}, observer.rendered)
}

func TestRunEndToEndInvalidDocument(t *testing.T) {
	svc := &processingService{tokens: []string{"done"}}
	srv := httptest.NewServer(svc.router())
	defer srv.Close()

	client := api.NewClient(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	coordinator := preview.NewCoordinator(pdf.NewDecoder(nil), pdf.NewRenderer(0.5), nil, 2, nil)
	opener := transfer.NewSSEOpener(client, 4, nil)
	pipeline := transfer.NewPipeline(transfer.NewUploader(client, nil), opener, nil)
	handler := completion.NewHandler(client, config.OutputConfig{Dir: t.TempDir()}, nil)

	s, err := NewController(coordinator, pipeline, handler, nil).
		Run(context.Background(), domain.File{Name: "notes.pdf", Data: []byte("plain text")})
	require.Error(t, err)

	assert.True(t, domain.IsType(err, domain.ErrorTypeDecode))
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, int32(0), svc.uploads.Load())
	assert.Equal(t, int32(0), svc.downloads.Load())
}
