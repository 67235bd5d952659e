package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrlokans/shelfshare/internal/logging"
)

// MaxCoverBytes caps a single downloaded image.
const MaxCoverBytes = 5 << 20

var (
	ErrNoCover       = errors.New("book has no cover")
	ErrNotAnImage    = errors.New("cover is not an image")
	ErrCoverTooLarge = errors.New("cover image too large")
)

// Cache proxies remote cover images and keeps a copy on local disk, keyed by
// book and source URL. Changing a book's cover URL naturally misses the cache.
type Cache struct {
	dir        string
	httpClient *http.Client
}

// NewCache creates the cache directory if it does not exist.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cover dir: %w", err)
	}
	return &Cache{
		dir:        dir,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// Get returns the path of the cached image for bookID, downloading coverURL
// on a miss.
func (c *Cache) Get(ctx context.Context, bookID uint, coverURL string) (string, error) {
	if coverURL == "" {
		return "", ErrNoCover
	}

	path := filepath.Join(c.dir, c.filename(bookID, coverURL))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := c.download(ctx, coverURL, path); err != nil {
		return "", err
	}
	logging.Component("covers").WithField("book_id", bookID).Debug("cover cached")
	return path, nil
}

// InvalidateCover removes every cached image of a book.
func (c *Cache) InvalidateCover(bookID uint) error {
	matches, err := filepath.Glob(filepath.Join(c.dir, fmt.Sprintf("book_%d_*", bookID)))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) filename(bookID uint, coverURL string) string {
	sum := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("book_%d_%x.img", bookID, sum[:8])
}

func (c *Cache) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "ShelfShare/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch cover: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return ErrNotAnImage
	}

	tmp, err := os.CreateTemp(c.dir, "tmp_cover_")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, MaxCoverBytes+1))
	if err != nil {
		return err
	}
	if n > MaxCoverBytes {
		return ErrCoverTooLarge
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dest)
}
