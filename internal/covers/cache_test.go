package covers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("fake image data"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewCache_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "covers")

	cache, err := NewCache(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cache.Dir())
	assert.DirExists(t, dir)
}

func TestGet_NoCover(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrNoCover)
}

func TestGet_FetchesOnceThenServesFromDisk(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	path1, err := cache.Get(context.Background(), 1, srv.URL+"/cover.jpg")
	require.NoError(t, err)
	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, "fake image data", string(data))

	path2, err := cache.Get(context.Background(), 1, srv.URL+"/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, path1, path2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGet_RejectsNonImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), 1, srv.URL)
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestGet_RejectsOversizedImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(bytes.Repeat([]byte{0}, MaxCoverBytes+10))
	}))
	defer srv.Close()
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), 1, srv.URL)
	assert.ErrorIs(t, err, ErrCoverTooLarge)
	entries, _ := os.ReadDir(cache.Dir())
	assert.Empty(t, entries, "temp file should be cleaned up")
}

func TestGet_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), 1, srv.URL+"/missing.jpg")
	assert.Error(t, err)
}

func TestInvalidateCover_RemovesOnlyThatBook(t *testing.T) {
	srv := imageServer(t, nil)
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	p1, err := cache.Get(context.Background(), 1, srv.URL+"/a.jpg")
	require.NoError(t, err)
	p11, err := cache.Get(context.Background(), 11, srv.URL+"/a.jpg")
	require.NoError(t, err)

	require.NoError(t, cache.InvalidateCover(1))
	assert.NoFileExists(t, p1)
	assert.FileExists(t, p11)
}

func TestFilename(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	a := cache.filename(1, "https://example.com/cover.jpg")
	assert.Equal(t, a, cache.filename(1, "https://example.com/cover.jpg"))
	assert.NotEqual(t, a, cache.filename(1, "https://example.com/other.jpg"))
	assert.NotEqual(t, a, cache.filename(2, "https://example.com/cover.jpg"))
}
