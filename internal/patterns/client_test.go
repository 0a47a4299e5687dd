package patterns

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GordonCopestake/Logisplit/internal/api"
	"github.com/GordonCopestake/Logisplit/internal/cache"
	"github.com/GordonCopestake/Logisplit/internal/domain"
)

// registry is a fake pattern service that counts calls
type registry struct {
	mu        sync.Mutex
	entries   []domain.PatternEntry
	lists     int
	saves     int
	saveFails bool
	received  []domain.PatternExample
}

func (reg *registry) router() http.Handler {
	r := chi.NewRouter()
	r.Get(api.PatternsPath, func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		reg.lists++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reg.entries)
	})
	r.Post(api.SavePatternPath, func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		reg.saves++
		if reg.saveFails {
			http.Error(w, "unable to derive pattern", http.StatusInternalServerError)
			return
		}
		var ex domain.PatternExample
		if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reg.received = append(reg.received, ex)
		reg.entries = append(reg.entries, domain.PatternEntry{Regex: `img_(\d+)`, Rename: "photo_$1"})
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (reg *registry) counts() (lists, saves int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.lists, reg.saves
}

func newTestClient(t *testing.T, reg *registry, c cache.Client) *Client {
	t.Helper()
	srv := httptest.NewServer(reg.router())
	t.Cleanup(srv.Close)
	client := api.NewClient(api.Options{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		RetryCount:   3,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
	})
	return NewClient(client, c, time.Minute, nil)
}

func TestListPreservesServerOrder(t *testing.T) {
	reg := &registry{entries: []domain.PatternEntry{
		{Regex: `^inv_(\d+)`, Rename: "invoice_$1"},
		{Regex: `scan`, Rename: "document"},
	}}
	c := newTestClient(t, reg, nil)

	entries, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{`/^inv_(\d+)/ → invoice_$1`, `/scan/ → document`}, Format(entries))
}

func TestListEmpty(t *testing.T) {
	reg := &registry{entries: []domain.PatternEntry{}}
	entries, err := newTestClient(t, reg, nil).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, Format(entries))
}

func TestAdd(t *testing.T) {
	reg := &registry{}
	c := newTestClient(t, reg, nil)

	entries, err := c.Add(context.Background(), "  img_001.jpg ", "photo_001.jpg")
	require.NoError(t, err)

	lists, saves := reg.counts()
	assert.Equal(t, 1, saves)
	assert.Equal(t, 1, lists)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	assert.Equal(t, []domain.PatternExample{{Example: "img_001.jpg", Output: "photo_001.jpg"}}, reg.received)
	assert.Equal(t, []string{`/img_(\d+)/ → photo_$1`}, Format(entries))
}

func TestAddRejectsBlankFields(t *testing.T) {
	reg := &registry{}
	c := newTestClient(t, reg, nil)

	tests := []struct {
		name    string
		example string
		output  string
	}{
		{"both empty", "", ""},
		{"blank example", "   ", "photo.jpg"},
		{"blank output", "img.jpg", "\t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Add(context.Background(), tt.example, tt.output)
			assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
		})
	}

	lists, saves := reg.counts()
	assert.Equal(t, 0, saves)
	assert.Equal(t, 0, lists)
}

func TestAddFailureIsNotRetried(t *testing.T) {
	reg := &registry{saveFails: true}
	c := newTestClient(t, reg, nil)

	_, err := c.Add(context.Background(), "img_001.jpg", "photo_001.jpg")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, domain.StatusCode(err))
	lists, saves := reg.counts()
	assert.Equal(t, 1, saves)
	assert.Equal(t, 0, lists)
}

func TestListCacheAndInvalidation(t *testing.T) {
	mem := cache.NewMemoryClient(8)
	defer mem.Close()

	reg := &registry{entries: []domain.PatternEntry{{Regex: "a", Rename: "b"}}}
	c := newTestClient(t, reg, mem)

	for i := 0; i < 3; i++ {
		entries, err := c.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	}
	lists, _ := reg.counts()
	assert.Equal(t, 1, lists)

	entries, err := c.Add(context.Background(), "img_7.jpg", "photo_7.jpg")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	lists, _ = reg.counts()
	assert.Equal(t, 2, lists)
}

func TestFormSubmit(t *testing.T) {
	reg := &registry{saveFails: true}
	c := newTestClient(t, reg, nil)

	form := &Form{Example: "img_001.jpg", Output: "photo_001.jpg"}
	_, err := form.Submit(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, "img_001.jpg", form.Example)
	assert.Equal(t, "photo_001.jpg", form.Output)

	reg.mu.Lock()
	reg.saveFails = false
	reg.mu.Unlock()

	entries, err := form.Submit(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Empty(t, form.Example)
	assert.Empty(t, form.Output)
}
