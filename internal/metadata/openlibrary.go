package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/shelfshare/internal/isbn"
)

const (
	defaultOpenLibraryURL = "https://openlibrary.org"
	userAgent             = "ShelfShare/1.0 (https://github.com/mrlokans/shelfshare)"
)

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewOpenLibraryClient creates an OpenLibrary client limited to one request per second.
// An empty baseURL selects the public API.
func NewOpenLibraryClient(baseURL string, timeout time.Duration) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = defaultOpenLibraryURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenLibraryClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (c *OpenLibraryClient) Name() string { return ProviderOpenLibrary }

// SearchByISBN looks up a single edition by ISBN.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, code string) (*BookMetadata, error) {
	code = isbn.Canonical(code)
	if code == "" {
		return nil, ErrInvalidISBN
	}

	var book openLibraryBook
	if err := c.getJSON(ctx, fmt.Sprintf("/isbn/%s.json", code), &book); err != nil {
		return nil, err
	}

	metadata := c.convertToMetadata(&book, code)

	for _, ref := range book.Authors {
		name, err := c.fetchAuthorName(ctx, ref.Key)
		if err != nil {
			break
		}
		if name != "" {
			metadata.Authors = append(metadata.Authors, name)
		}
	}

	return metadata, nil
}

// Search runs a free-text search and returns up to limit results.
func (c *OpenLibraryClient) Search(ctx context.Context, query string, limit int) ([]BookMetadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	var result openLibrarySearchResult
	path := fmt.Sprintf("/search.json?q=%s&limit=%d", url.QueryEscape(query), limit)
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, err
	}
	if len(result.Docs) == 0 {
		return nil, ErrNotFound
	}

	out := make([]BookMetadata, 0, len(result.Docs))
	for i := range result.Docs {
		out = append(out, *convertSearchDoc(&result.Docs[i]))
	}
	return out, nil
}

// SearchByTitle searches by title and author and returns the best match,
// filling the ISBN from the cover edition when the search result lacks one.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	q := title
	if author != "" {
		q = title + " " + author
	}

	var result openLibrarySearchResult
	if err := c.getJSON(ctx, fmt.Sprintf("/search.json?q=%s&limit=5", url.QueryEscape(q)), &result); err != nil {
		return nil, err
	}
	if len(result.Docs) == 0 {
		return nil, ErrNotFound
	}

	candidates := make([]BookMetadata, 0, len(result.Docs))
	for i := range result.Docs {
		candidates = append(candidates, *convertSearchDoc(&result.Docs[i]))
	}
	best := BestMatch(candidates, title, author)
	doc := result.Docs[indexOf(candidates, best)]

	if best.ISBN == "" && doc.CoverEditionKey != "" {
		if edition, err := c.fetchEditionDetails(ctx, doc.CoverEditionKey); err == nil {
			enrichFromEdition(best, edition)
		}
	}
	return best, nil
}

func indexOf(list []BookMetadata, item *BookMetadata) int {
	for i := range list {
		if &list[i] == item {
			return i
		}
	}
	return 0
}

func (c *OpenLibraryClient) fetchEditionDetails(ctx context.Context, editionKey string) (*openLibraryEdition, error) {
	var edition openLibraryEdition
	if err := c.getJSON(ctx, fmt.Sprintf("/books/%s.json", editionKey), &edition); err != nil {
		return nil, err
	}
	return &edition, nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}
	var author struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, authorKey+".json", &author); err != nil {
		return "", err
	}
	return author.Name, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open library request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open library: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *OpenLibraryClient) convertToMetadata(book *openLibraryBook, code string) *BookMetadata {
	metadata := &BookMetadata{
		Title:     book.Title,
		ISBN:      code,
		PageCount: book.NumberOfPages,
		CoverURL:  fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", code),
		Source:    ProviderOpenLibrary,
	}
	if book.PublishDate != "" {
		metadata.PublishedYear = extractYear(book.PublishDate)
	}
	if len(book.Publishers) > 0 {
		metadata.Publisher = book.Publishers[0]
	}

	switch v := book.Description.(type) {
	case string:
		metadata.Description = v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			metadata.Description = val
		}
	}

	if len(book.Languages) > 0 {
		metadata.Language = strings.TrimPrefix(book.Languages[0].Key, "/languages/")
	}
	metadata.Subjects = limitSubjects(book.Subjects)
	return metadata
}

func enrichFromEdition(metadata *BookMetadata, edition *openLibraryEdition) {
	if metadata.ISBN == "" {
		if len(edition.ISBN13) > 0 {
			metadata.ISBN = edition.ISBN13[0]
		} else if len(edition.ISBN10) > 0 {
			metadata.ISBN = isbn.Canonical(edition.ISBN10[0])
		}
	}
	if metadata.ISBN != "" && metadata.CoverURL == "" {
		metadata.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", metadata.ISBN)
	}
	if metadata.Publisher == "" && len(edition.Publishers) > 0 {
		metadata.Publisher = edition.Publishers[0]
	}
	if metadata.PageCount == 0 && edition.NumberOfPages > 0 {
		metadata.PageCount = edition.NumberOfPages
	}
	if metadata.PublishedYear == 0 && edition.PublishDate != "" {
		metadata.PublishedYear = extractYear(edition.PublishDate)
	}
}

func convertSearchDoc(doc *openLibrarySearchDoc) *BookMetadata {
	metadata := &BookMetadata{
		Title:         doc.Title,
		Authors:       doc.AuthorName,
		PublishedYear: doc.FirstPublishYear,
		Source:        ProviderOpenLibrary,
	}
	if len(doc.Publisher) > 0 {
		metadata.Publisher = doc.Publisher[0]
	}
	for _, candidate := range doc.ISBN {
		if code := isbn.Canonical(candidate); code != "" {
			metadata.ISBN = code
			break
		}
	}
	if metadata.ISBN != "" {
		metadata.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", metadata.ISBN)
	} else if doc.CoverI != 0 {
		metadata.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverI)
	}
	if len(doc.Language) > 0 {
		metadata.Language = doc.Language[0]
	}
	metadata.Subjects = limitSubjects(doc.Subject)
	return metadata
}

func limitSubjects(subjects []string) []string {
	if len(subjects) > 10 {
		return subjects[:10]
	}
	return subjects
}

// OpenLibrary API response types (internal)

type openLibraryBook struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	Authors       []keyRef `json:"authors"`
	Publishers    []string `json:"publishers"`
	PublishDate   string   `json:"publish_date"`
	NumberOfPages int      `json:"number_of_pages"`
	Description   any      `json:"description"` // Can be string or {type, value}
	Subjects      []string `json:"subjects"`
	Languages     []keyRef `json:"languages"`
}

type keyRef struct {
	Key string `json:"key"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Publisher        []string `json:"publisher"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
	CoverEditionKey  string   `json:"cover_edition_key"`
	Subject          []string `json:"subject"`
	Language         []string `json:"language"`
}

type openLibraryEdition struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	Publishers    []string `json:"publishers"`
	PublishDate   string   `json:"publish_date"`
	ISBN10        []string `json:"isbn_10"`
	ISBN13        []string `json:"isbn_13"`
	NumberOfPages int      `json:"number_of_pages"`
}
