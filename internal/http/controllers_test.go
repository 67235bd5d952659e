package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfshare/internal/auth"
	"github.com/mrlokans/shelfshare/internal/database/audit"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/metadata"
	"github.com/mrlokans/shelfshare/internal/ocr"
	"github.com/mrlokans/shelfshare/internal/services"
)

func asUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, id)
		c.Next()
	}
}

func serve(router *gin.Engine, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type fakeBooks struct {
	BookManager
	checkoutBy  uint
	checkoutDue *time.Time
	checkoutErr error
	enrichErr   error
}

func (f *fakeBooks) Checkout(userID, bookID uint, dueAt *time.Time) (*entities.Book, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	f.checkoutBy, f.checkoutDue = userID, dueAt
	return &entities.Book{ID: bookID, Status: entities.BookStatusCheckedOut, CheckedOutByID: &userID}, nil
}

func (f *fakeBooks) Enrich(_ context.Context, _, bookID uint) (*metadata.EnrichmentResult, error) {
	if f.enrichErr != nil {
		return nil, f.enrichErr
	}
	return &metadata.EnrichmentResult{
		Book:          &entities.Book{ID: bookID, Title: "Dune"},
		FieldsUpdated: []string{"description"},
		Source:        metadata.ProviderOpenLibrary,
		SearchMethod:  "isbn",
	}, nil
}

func (f *fakeBooks) Search(_ uint, query string) ([]entities.Book, error) {
	return nil, nil
}

func TestBooksController_Checkout(t *testing.T) {
	books := &fakeBooks{}
	router := gin.New()
	router.Use(asUser(7))
	router.POST("/api/books/:id/checkout", NewBooksController(books).Checkout)

	t.Run("body is optional", func(t *testing.T) {
		w := serve(router, "POST", "/api/books/3/checkout", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uint(7), books.checkoutBy)
		assert.Nil(t, books.checkoutDue)
	})

	t.Run("passes the due date through", func(t *testing.T) {
		w := serve(router, "POST", "/api/books/3/checkout", []byte(`{"due_at":"2030-01-02T15:04:05Z"}`), "application/json")
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, books.checkoutDue)
		assert.Equal(t, 2030, books.checkoutDue.Year())
	})

	t.Run("already checked out is a conflict", func(t *testing.T) {
		books.checkoutErr = fmt.Errorf("%w: book is already checked out", services.ErrConflict)
		defer func() { books.checkoutErr = nil }()

		w := serve(router, "POST", "/api/books/3/checkout", nil, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "already checked out")
	})
}

func TestBooksController_Enrich(t *testing.T) {
	books := &fakeBooks{}
	router := gin.New()
	router.Use(asUser(1))
	router.POST("/api/books/:id/enrich", NewBooksController(books).Enrich)

	w := serve(router, "POST", "/api/books/5/enrich", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp EnrichBookResponse
	decodeJSON(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"description"}, resp.FieldsUpdated)
	assert.Equal(t, metadata.ProviderOpenLibrary, resp.Source)

	books.enrichErr = fmt.Errorf("book metadata %w", services.ErrNotFound)
	w = serve(router, "POST", "/api/books/5/enrich", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBooksController_SearchNeedsQuery(t *testing.T) {
	router := gin.New()
	router.Use(asUser(1))
	router.GET("/api/books", NewBooksController(&fakeBooks{}).Search)

	assert.Equal(t, http.StatusBadRequest, serve(router, "GET", "/api/books?q=", nil, "").Code)

	w := serve(router, "GET", "/api/books?q=dune", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"total":0}`, w.Body.String())
}

type fakeLookup struct {
	searchLimit int
}

func (f *fakeLookup) LookupISBN(_ context.Context, raw string) (*metadata.BookMetadata, error) {
	switch raw {
	case "9780441172719":
		return &metadata.BookMetadata{Title: "Dune", ISBN: raw, Source: metadata.ProviderGoogleBooks}, nil
	case "123":
		return nil, metadata.ErrInvalidISBN
	default:
		return nil, metadata.ErrNotFound
	}
}

func (f *fakeLookup) Search(_ context.Context, query string, limit int) ([]metadata.BookMetadata, error) {
	f.searchLimit = limit
	return []metadata.BookMetadata{{Title: query}}, nil
}

type fakeScanner struct {
	got []byte
}

func (f *fakeScanner) MaxBytes() int64 { return 1024 }

func (f *fakeScanner) Scan(_ context.Context, image []byte) (*ocr.Result, error) {
	if int64(len(image)) > f.MaxBytes() {
		return nil, ocr.ErrImageTooLarge
	}
	f.got = image
	return &ocr.Result{Lines: []string{"DUNE"}, ISBNs: []string{"9780441172719"}, ISBN: "9780441172719"}, nil
}

func TestLookupController(t *testing.T) {
	lookup := &fakeLookup{}
	scanner := &fakeScanner{}
	controller := NewLookupController(lookup, scanner)
	router := gin.New()
	router.GET("/isbn/:isbn", controller.ISBN)
	router.GET("/search", controller.Search)
	router.POST("/ocr", controller.OCR)

	t.Run("isbn", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(router, "GET", "/isbn/9780441172719", nil, "").Code)
		assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/isbn/9780000000002", nil, "").Code)
		assert.Equal(t, http.StatusBadRequest, serve(router, "GET", "/isbn/123", nil, "").Code)
	})

	t.Run("search clamps the limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve(router, "GET", "/search", nil, "").Code)

		w := serve(router, "GET", "/search?q=dune&limit=500", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, maxSearchLimit, lookup.searchLimit)

		serve(router, "GET", "/search?q=dune", nil, "")
		assert.Equal(t, defaultSearchLimit, lookup.searchLimit)
	})

	t.Run("ocr accepts base64 json", func(t *testing.T) {
		image := []byte("fake-jpeg-bytes")
		body := fmt.Sprintf(`{"image":"data:image/jpeg;base64,%s"}`, base64.StdEncoding.EncodeToString(image))

		w := serve(router, "POST", "/ocr", []byte(body), "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, image, scanner.got)
		assert.Contains(t, w.Body.String(), "9780441172719")
	})

	t.Run("ocr accepts multipart uploads", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "cover.jpg")
		require.NoError(t, err)
		_, _ = part.Write([]byte("multipart-image"))
		require.NoError(t, mw.Close())

		w := serve(router, "POST", "/ocr", buf.Bytes(), mw.FormDataContentType())
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []byte("multipart-image"), scanner.got)
	})

	t.Run("ocr rejects oversized images", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, _ := mw.CreateFormFile("image", "big.jpg")
		_, _ = part.Write(bytes.Repeat([]byte("x"), 2048))
		require.NoError(t, mw.Close())

		w := serve(router, "POST", "/ocr", buf.Bytes(), mw.FormDataContentType())
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("ocr caps multipart bodies before parsing", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, _ := mw.CreateFormFile("image", "huge.jpg")
		_, _ = part.Write(bytes.Repeat([]byte("x"), 1024+multipartOverhead+1))
		require.NoError(t, mw.Close())
		scanner.got = nil

		w := serve(router, "POST", "/ocr", buf.Bytes(), mw.FormDataContentType())
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "image_too_large")
		assert.Nil(t, scanner.got)

		// chunked uploads carry no Content-Length and hit the reader cap
		req := httptest.NewRequest("POST", "/ocr", bytes.NewReader(buf.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.ContentLength = -1
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "image_too_large")
		assert.Nil(t, scanner.got)
	})

	t.Run("ocr maps oversized base64 bodies to 413", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("x"), 4096))
		body := []byte(fmt.Sprintf(`{"image":"%s"}`, encoded))

		w := serve(router, "POST", "/ocr", body, "application/json")
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "image_too_large")

		req := httptest.NewRequest("POST", "/ocr", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = -1
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "image_too_large")
	})

	t.Run("ocr rejects bad base64", func(t *testing.T) {
		w := serve(router, "POST", "/ocr", []byte(`{"image":"***"}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLookupController_OCRDisabled(t *testing.T) {
	router := gin.New()
	router.POST("/ocr", NewLookupController(&fakeLookup{}, nil).OCR)

	w := serve(router, "POST", "/ocr", []byte(`{"image":"aGk="}`), "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeTaskStatus map[string]backlite.TaskStatus

func (f fakeTaskStatus) Status(_ context.Context, id string) (backlite.TaskStatus, error) {
	if id == "broken" {
		return backlite.TaskStatusNotFound, errors.New("database is locked")
	}
	status, ok := f[id]
	if !ok {
		return backlite.TaskStatusNotFound, nil
	}
	return status, nil
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	router := gin.New()
	router.GET("/tasks/:id", NewTasksController(fakeTaskStatus{"abc": backlite.TaskStatusSuccess}).GetTaskStatus)

	w := serve(router, "GET", "/tasks/abc", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"abc","status":"success"}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/tasks/missing", nil, "").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(router, "GET", "/tasks/broken", nil, "").Code)
}

type fakeAuditReader struct {
	filter audit.EventFilter
}

func (f *fakeAuditReader) GetEvents(filter audit.EventFilter) ([]entities.AuditEvent, int64, error) {
	f.filter = filter
	return []entities.AuditEvent{{ID: 1, Action: "login"}}, 3, nil
}

func TestAuditController_GetAuditEvents(t *testing.T) {
	reader := &fakeAuditReader{}
	router := gin.New()
	router.GET("/audit", NewAuditController(reader).GetAuditEvents)

	w := serve(router, "GET", "/audit?type=auth&user_id=4&limit=1000&offset=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, entities.AuditEventAuth, reader.filter.EventType)
	assert.Equal(t, uint(4), reader.filter.UserID)
	assert.Equal(t, defaultAuditLimit, reader.filter.Limit)

	var resp struct {
		Total   int64 `json:"total"`
		HasMore bool  `json:"has_more"`
	}
	decodeJSON(t, w, &resp)
	assert.Equal(t, int64(3), resp.Total)
	assert.True(t, resp.HasMore)

	assert.Equal(t, http.StatusBadRequest, serve(router, "GET", "/audit?limit=abc", nil, "").Code)
}

type fakeInvitations struct {
	InvitationManager
}

func (fakeInvitations) Inspect(token string) (*services.InvitationView, error) {
	if token != "good" {
		return nil, fmt.Errorf("invitation %w", services.ErrNotFound)
	}
	return &services.InvitationView{LocationName: "Home", State: entities.InvitationStateOpen}, nil
}

func TestInvitationsController_Inspect(t *testing.T) {
	router := gin.New()
	router.GET("/invitations/:token", NewInvitationsController(fakeInvitations{}).Inspect)

	w := serve(router, "GET", "/invitations/good", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"location_name":"Home"`)

	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/invitations/bad", nil, "").Code)
}
