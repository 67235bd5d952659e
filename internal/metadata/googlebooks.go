package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/mrlokans/shelfshare/internal/isbn"
)

const defaultGoogleBooksURL = "https://www.googleapis.com/books/v1"

// GoogleBooksClient queries the Google Books volumes API.
type GoogleBooksClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewGoogleBooksClient creates a client. The API key is optional; without it
// Google applies a lower anonymous quota.
func NewGoogleBooksClient(baseURL, apiKey string, timeout time.Duration) *GoogleBooksClient {
	if baseURL == "" {
		baseURL = defaultGoogleBooksURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleBooksClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
}

func (c *GoogleBooksClient) Name() string { return ProviderGoogleBooks }

func (c *GoogleBooksClient) SearchByISBN(ctx context.Context, code string) (*BookMetadata, error) {
	code = isbn.Canonical(code)
	if code == "" {
		return nil, ErrInvalidISBN
	}

	items, err := c.volumes(ctx, "isbn:"+code, 1)
	if err != nil {
		return nil, err
	}
	metadata := volumeToMetadata(items[0])
	if metadata.ISBN == "" {
		metadata.ISBN = code
	}
	return metadata, nil
}

func (c *GoogleBooksClient) Search(ctx context.Context, query string, limit int) ([]BookMetadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	items, err := c.volumes(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]BookMetadata, 0, len(items))
	for _, item := range items {
		out = append(out, *volumeToMetadata(item))
	}
	return out, nil
}

func (c *GoogleBooksClient) volumes(ctx context.Context, q string, limit int) ([]gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", fmt.Sprint(limit))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google books request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books: unexpected status %d: %s", resp.StatusCode,
			gjson.GetBytes(body, "error.message").String())
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("google books: invalid JSON response")
	}

	items := gjson.GetBytes(body, "items").Array()
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items, nil
}

func volumeToMetadata(item gjson.Result) *BookMetadata {
	info := item.Get("volumeInfo")

	metadata := &BookMetadata{
		Title:         info.Get("title").String(),
		Publisher:     info.Get("publisher").String(),
		PublishedYear: extractYear(info.Get("publishedDate").String()),
		Description:   info.Get("description").String(),
		PageCount:     int(info.Get("pageCount").Int()),
		Language:      info.Get("language").String(),
		Source:        ProviderGoogleBooks,
	}
	if subtitle := info.Get("subtitle").String(); subtitle != "" {
		metadata.Title += ": " + subtitle
	}
	for _, a := range info.Get("authors").Array() {
		metadata.Authors = append(metadata.Authors, a.String())
	}
	for _, s := range info.Get("categories").Array() {
		metadata.Subjects = append(metadata.Subjects, s.String())
	}

	// Prefer ISBN_13 over ISBN_10.
	for _, kind := range []string{"ISBN_13", "ISBN_10"} {
		id := info.Get(fmt.Sprintf(`industryIdentifiers.#(type==%q).identifier`, kind)).String()
		if code := isbn.Canonical(id); code != "" {
			metadata.ISBN = code
			break
		}
	}

	cover := info.Get("imageLinks.thumbnail").String()
	if cover == "" {
		cover = info.Get("imageLinks.smallThumbnail").String()
	}
	metadata.CoverURL = strings.Replace(cover, "http://", "https://", 1)
	return metadata
}
